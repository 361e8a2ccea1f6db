package outbound

import (
	"context"
	"io"
)

type GenerateVideoRequest struct {
	Prompt         string
	StartImagePath string
	EndImagePath   string
	Resolution     string
}

// VideoGeneratorPort is the image-to-video interpolation collaborator. Both
// image paths are mandatory: a missing one is a caller-side contract
// violation, not a service error. Every generated segment has the fixed
// cap duration regardless of the scene's requested length.
type VideoGeneratorPort interface {
	Generate(ctx context.Context, req GenerateVideoRequest) (io.ReadCloser, error)
}
