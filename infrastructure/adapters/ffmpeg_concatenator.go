package adapters

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"video-production-service/application/ports/outbound"
	"video-production-service/domain"
)

type ffmpegConcatenator struct {
	logger outbound.LoggerPort
}

// NewFFmpegConcatenator assembles segments into the final video with the
// ffmpeg concat demuxer. Stream copy only, no re-encode: segments come from
// one generation service with identical codec parameters.
func NewFFmpegConcatenator(logger outbound.LoggerPort) (outbound.ConcatenateVideosPort, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &ffmpegConcatenator{logger: logger}, nil
}

func (f *ffmpegConcatenator) Concatenate(ctx context.Context, outputPath string, inputPaths []string) (string, error) {
	if len(inputPaths) == 0 {
		return "", domain.NewConcatenation("no segments to concatenate", nil)
	}

	listFileName, err := f.writeListFile(inputPaths)
	if err != nil {
		return "", domain.NewConcatenation("writing segment list file", err)
	}
	defer func(name string) {
		if removeErr := os.Remove(name); removeErr != nil {
			f.logger.Error(removeErr, "Failed to remove segment list file")
		}
	}(listFileName)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listFileName,
		"-c", "copy",
		outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		f.logger.ErrorWithFields(err, "Failed to concatenate segments", map[string]interface{}{
			"output": string(out),
		})
		return "", domain.NewConcatenation(fmt.Sprintf("ffmpeg concat failed: %s", out), err)
	}

	duration, err := f.probeDuration(ctx, outputPath)
	if err != nil {
		f.logger.Error(err, "Failed to probe the final video duration")
	} else {
		f.logger.InfoWithFields("Final video assembled", map[string]interface{}{
			"path":             outputPath,
			"duration_seconds": duration,
		})
	}

	return outputPath, nil
}

// writeListFile produces the concat demuxer input: one "file '<path>'" line
// per segment, already in playback order. Paths are made absolute so the
// list file's own location does not matter.
func (f *ffmpegConcatenator) writeListFile(inputPaths []string) (string, error) {
	listFile, err := os.Create(filepath.Join(os.TempDir(), uuid.NewString()))
	if err != nil {
		return "", err
	}
	defer func(listFile *os.File) {
		if closeErr := listFile.Close(); closeErr != nil {
			f.logger.Error(closeErr, "Failed to close segment list file")
		}
	}(listFile)

	writer := bufio.NewWriter(listFile)
	for _, path := range inputPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		if _, err := writer.WriteString("file '" + absPath + "'\n"); err != nil {
			return "", err
		}
	}
	if err := writer.Flush(); err != nil {
		return "", err
	}

	return listFile.Name(), nil
}

func (f *ffmpegConcatenator) probeDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath)

	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
