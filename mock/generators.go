package mock_generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"video-production-service/application/ports/outbound"
	"video-production-service/domain"
)

// The mock collaborators run the full pipeline locally without spending on
// generation APIs or requiring ffmpeg. Output files are tagged placeholders,
// not playable media.

type mockImageGenerator struct {
	logger outbound.LoggerPort
	delay  time.Duration
}

func NewMockImageGenerator(logger outbound.LoggerPort, delay time.Duration) outbound.ImageGeneratorPort {
	return &mockImageGenerator{logger: logger, delay: delay}
}

func (m *mockImageGenerator) Generate(ctx context.Context, req outbound.GenerateImageRequest) ([]byte, error) {
	if err := sleepCtx(ctx, m.delay); err != nil {
		return nil, err
	}
	m.logger.DebugWithFields("Mock image generated", map[string]interface{}{
		"prompt": req.Prompt,
	})
	return []byte(fmt.Sprintf("mock image: %s (%s, %s)", req.Prompt, req.AspectRatio, req.Quality)), nil
}

type mockVideoGenerator struct {
	logger outbound.LoggerPort
	delay  time.Duration
}

func NewMockVideoGenerator(logger outbound.LoggerPort, delay time.Duration) outbound.VideoGeneratorPort {
	return &mockVideoGenerator{logger: logger, delay: delay}
}

func (m *mockVideoGenerator) Generate(ctx context.Context, req outbound.GenerateVideoRequest) (io.ReadCloser, error) {
	if err := sleepCtx(ctx, m.delay); err != nil {
		return nil, err
	}
	m.logger.DebugWithFields("Mock video generated", map[string]interface{}{
		"prompt": req.Prompt,
	})
	payload := fmt.Sprintf("mock video: %s\nstart: %s\nend: %s\n", req.Prompt, req.StartImagePath, req.EndImagePath)
	return io.NopCloser(bytes.NewReader([]byte(payload))), nil
}

type mockConcatenator struct {
	logger outbound.LoggerPort
}

// NewMockConcatenator appends the segment files byte for byte so mock runs
// still produce a single ordered final artifact.
func NewMockConcatenator(logger outbound.LoggerPort) outbound.ConcatenateVideosPort {
	return &mockConcatenator{logger: logger}
}

func (m *mockConcatenator) Concatenate(_ context.Context, outputPath string, inputPaths []string) (string, error) {
	// Temp-then-rename like every other workspace write, so an interrupted
	// mock run never leaves a partial final video at the real path.
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".concat-*")
	if err != nil {
		return "", domain.NewConcatenation("creating mock final video", err)
	}

	for _, path := range inputPaths {
		segment, err := os.ReadFile(path)
		if err != nil {
			m.discardTemp(tmp)
			return "", domain.NewConcatenation(fmt.Sprintf("reading segment %s", path), err)
		}
		if _, err := tmp.Write(segment); err != nil {
			m.discardTemp(tmp)
			return "", domain.NewConcatenation("writing mock final video", err)
		}
	}

	if err := tmp.Close(); err != nil {
		return "", domain.NewConcatenation("closing mock final video", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil {
			m.logger.Error(removeErr, "Failed to remove orphaned mock temp file")
		}
		return "", domain.NewConcatenation("replacing mock final video", err)
	}

	return outputPath, nil
}

func (m *mockConcatenator) discardTemp(tmp *os.File) {
	if err := tmp.Close(); err != nil {
		m.logger.Error(err, "Failed to close mock temp file")
	}
	if err := os.Remove(tmp.Name()); err != nil {
		m.logger.Error(err, "Failed to remove mock temp file")
	}
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return domain.NewTransient("mock generation interrupted", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}
