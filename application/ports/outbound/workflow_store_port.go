package outbound

import (
	"context"

	"video-production-service/domain"
)

// WorkflowStorePort persists workflow state durably. Save must be atomic
// (write-to-temp-then-rename or equivalent) so a crash between transitions
// loses at most one in-flight unit. Load returns a not_found domain error
// for unknown sessions.
type WorkflowStorePort interface {
	Save(ctx context.Context, state *domain.WorkflowState) error
	Load(ctx context.Context, sessionID string) (*domain.WorkflowState, error)
	List(ctx context.Context) ([]string, error)
}
