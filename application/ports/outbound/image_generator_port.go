package outbound

import "context"

type GenerateImageRequest struct {
	Prompt      string
	AspectRatio string
	Quality     string
}

// ImageGeneratorPort is the text-to-image collaborator. Adapters normalize
// failures into domain error kinds before anything upstream inspects them.
type ImageGeneratorPort interface {
	Generate(ctx context.Context, req GenerateImageRequest) ([]byte, error)
}
