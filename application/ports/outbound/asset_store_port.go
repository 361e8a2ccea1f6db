package outbound

import (
	"context"
	"io"

	"video-production-service/domain"
)

// AssetStorePort owns the per-session workspace layout and hands out asset
// references keyed by scene and kind. Workflow state holds references, never
// asset bytes.
type AssetStorePort interface {
	EnsureSession(sessionID string) error
	SaveImage(ctx context.Context, sessionID, sceneID string, kind domain.AssetKind, data []byte) (*domain.AssetReference, error)
	SaveVideo(ctx context.Context, sessionID, sceneID string, r io.Reader) (*domain.AssetReference, error)
	FinalVideoPath(sessionID string) string
}
