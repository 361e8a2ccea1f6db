package inbound

import (
	"context"

	"video-production-service/domain"
)

type ProduceParams struct {
	SessionID string
}

// ProductionOrchestratorPort drives the image, video and concatenation
// phases for a session. Produce resumes at the first incomplete phase when
// re-entered; completed units are never re-requested. Events report unit and
// phase completions as they happen; the error channel carries at most the
// terminal outcome and is closed when the run settles.
type ProductionOrchestratorPort interface {
	Produce(ctx context.Context, params ProduceParams) (<-chan domain.ProductionEvent, <-chan error)
}
