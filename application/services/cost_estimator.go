package services

import (
	"fmt"

	"video-production-service/application/ports/inbound"
	"video-production-service/config"
	"video-production-service/domain"
)

type costEstimator struct {
	costConfig *config.CostConfig
}

// NewCostEstimator builds the pure pricing function used to gate production.
func NewCostEstimator(costConfig *config.CostConfig) inbound.CostEstimatorPort {
	return &costEstimator{costConfig: costConfig}
}

func (e *costEstimator) Estimate(imageCount int, totalDurationSeconds float64) (domain.CostEstimate, error) {
	if imageCount < 0 {
		return domain.CostEstimate{}, domain.NewInvalidArgument(
			fmt.Sprintf("image count must not be negative, got %d", imageCount))
	}
	if totalDurationSeconds < 0 {
		return domain.CostEstimate{}, domain.NewInvalidArgument(
			fmt.Sprintf("total duration must not be negative, got %v", totalDurationSeconds))
	}

	imageCost := float64(imageCount) * e.costConfig.PricePerImage
	videoCost := totalDurationSeconds * e.costConfig.PricePerSecond

	return domain.CostEstimate{
		ImageCost: imageCost,
		VideoCost: videoCost,
		TotalCost: imageCost + videoCost,
	}, nil
}

// EstimatePlan prices a plan with the N+1 image formula: one end frame per
// scene plus the first scene's start frame.
func (e *costEstimator) EstimatePlan(plan domain.ScenePlan) (domain.CostEstimate, error) {
	return e.Estimate(plan.ImageCount(), plan.TotalDuration)
}
