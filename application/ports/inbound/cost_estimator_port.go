package inbound

import "video-production-service/domain"

// CostEstimatorPort prices a production run before any side effect. Pure and
// deterministic; rejects negative input with an invalid_argument error.
type CostEstimatorPort interface {
	Estimate(imageCount int, totalDurationSeconds float64) (domain.CostEstimate, error)
	EstimatePlan(plan domain.ScenePlan) (domain.CostEstimate, error)
}
