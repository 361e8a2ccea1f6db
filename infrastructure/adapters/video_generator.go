package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"video-production-service/application/ports/outbound"
	"video-production-service/config"
	"video-production-service/domain"
)

type videoJobRequest struct {
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
	// Frames are inlined base64 so the generation service needs no access to
	// the local workspace.
	StartImage string `json:"start_image,omitempty"`
	EndImage   string `json:"end_image,omitempty"`
}

type videoJobResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

const (
	jobStatusSucceeded = "succeeded"
	jobStatusFailed    = "failed"
)

type videoGenerator struct {
	ContentFetcher
	client      *http.Client
	logger      outbound.LoggerPort
	videoConfig *config.VideoServiceConfig
}

// NewVideoGenerator builds the segment generation client. Generation is a
// submit-and-poll job API: submit returns a job id, the job is polled until
// it settles, and the finished segment is streamed from the returned URL.
func NewVideoGenerator(contentFetcher ContentFetcher, videoConfig *config.VideoServiceConfig, logger outbound.LoggerPort) outbound.VideoGeneratorPort {
	return &videoGenerator{
		ContentFetcher: contentFetcher,
		client:         &http.Client{},
		logger:         logger,
		videoConfig:    videoConfig,
	}
}

func (v *videoGenerator) Generate(ctx context.Context, request outbound.GenerateVideoRequest) (io.ReadCloser, error) {
	job, err := v.submitJob(ctx, request)
	if err != nil {
		return nil, err
	}

	v.logger.DebugWithFields("Video job submitted", map[string]interface{}{
		"job_id": job.JobID,
	})

	settled, err := v.awaitJob(ctx, job.JobID)
	if err != nil {
		return nil, err
	}

	return v.downloadVideo(ctx, settled.VideoURL)
}

func (v *videoGenerator) submitJob(ctx context.Context, request outbound.GenerateVideoRequest) (*videoJobResponse, error) {
	startImage, err := encodeImageFile(request.StartImagePath)
	if err != nil {
		return nil, err
	}
	endImage, err := encodeImageFile(request.EndImagePath)
	if err != nil {
		return nil, err
	}

	jsonPayload, err := json.Marshal(videoJobRequest{
		Prompt:     request.Prompt,
		Resolution: request.Resolution,
		StartImage: startImage,
		EndImage:   endImage,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.videoConfig.ApiUrl+"/jobs", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}
	v.setHeaders(req)

	rawRes, err := v.FetchContent(req)
	if err != nil {
		v.logger.Error(err, "Failed to submit the video job")
		return nil, err
	}

	var job videoJobResponse
	if err := json.Unmarshal(rawRes, &job); err != nil {
		return nil, domain.NewTransient("unmarshalling video job response", err)
	}
	if job.JobID == "" {
		return nil, domain.NewTransient("video job response carried no job id", nil)
	}
	return &job, nil
}

// awaitJob polls until the job settles. The caller's context carries the
// request timeout, so an endlessly pending job fails transient and is
// eligible for another attempt.
func (v *videoGenerator) awaitJob(ctx context.Context, jobID string) (*videoJobResponse, error) {
	ticker := time.NewTicker(v.videoConfig.PollInterval)
	defer ticker.Stop()

	for {
		job, err := v.pollJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case jobStatusSucceeded:
			if job.VideoURL == "" {
				return nil, domain.NewTransient("succeeded video job carried no download URL", nil)
			}
			return job, nil
		case jobStatusFailed:
			return nil, domain.NewPermanent(fmt.Sprintf("video job %s failed: %s", jobID, job.Error), nil)
		}

		select {
		case <-ctx.Done():
			return nil, domain.NewTransient(fmt.Sprintf("video job %s did not settle in time", jobID), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (v *videoGenerator) pollJob(ctx context.Context, jobID string) (*videoJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", v.videoConfig.ApiUrl+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	v.setHeaders(req)

	rawRes, err := v.FetchContent(req)
	if err != nil {
		return nil, err
	}

	var job videoJobResponse
	if err := json.Unmarshal(rawRes, &job); err != nil {
		return nil, domain.NewTransient("unmarshalling video job status", err)
	}
	return &job, nil
}

// downloadVideo streams the finished segment rather than buffering it; the
// asset store copies the body straight to disk.
func (v *videoGenerator) downloadVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	v.setHeaders(req)

	res, err := v.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		if closeErr := res.Body.Close(); closeErr != nil {
			v.logger.Error(closeErr, "Failed to close the video download body")
		}
		return nil, classifyStatusCode(res.StatusCode, body)
	}

	return res.Body, nil
}

func (v *videoGenerator) setHeaders(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+v.videoConfig.ApiKey)
	if req.Method == "POST" {
		req.Header.Add("Content-Type", "application/json")
	}
}

func encodeImageFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewPermanent(fmt.Sprintf("reading frame image %s", path), err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
