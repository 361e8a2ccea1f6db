package outbound

import "context"

type PublishVideoRequest struct {
	SessionID     string
	VideoFileName string
}

type PublishVideoResponse struct {
	VideoKey    string
	StoreRegion string
}

// VideoPublisherPort uploads the final artifact to durable object storage.
// Publishing is optional; the local final video path stays authoritative.
type VideoPublisherPort interface {
	Publish(ctx context.Context, req PublishVideoRequest) (*PublishVideoResponse, error)
}
