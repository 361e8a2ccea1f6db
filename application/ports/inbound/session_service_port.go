package inbound

import (
	"context"

	"video-production-service/domain"
)

// SessionServicePort turns an approved scene plan into a durable session.
// The plan must already be validated and agreed upon; how it was produced is
// outside this boundary.
type SessionServicePort interface {
	Approve(ctx context.Context, plan domain.ScenePlan) (*domain.WorkflowState, error)
	Get(ctx context.Context, sessionID string) (*domain.WorkflowState, error)
	List(ctx context.Context) ([]string, error)
}
