package outbound

import "context"

// ConcatenateVideosPort combines ordered video segments into one file. The
// caller passes paths sorted by scene order index; completion order of the
// video phase never reaches this boundary.
type ConcatenateVideosPort interface {
	Concatenate(ctx context.Context, outputPath string, inputPaths []string) (string, error)
}
