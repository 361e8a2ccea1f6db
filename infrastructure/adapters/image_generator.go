package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"video-production-service/application/ports/outbound"
	"video-production-service/config"
	"video-production-service/domain"
)

type imageApiRequest struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio"`
	Quality        string `json:"quality"`
	Number         int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageApiResponse struct {
	Data []struct {
		B64Json string `json:"b64_json"`
	} `json:"data"`
}

type imageGenerator struct {
	ContentFetcher
	logger      outbound.LoggerPort
	imageConfig *config.ImageServiceConfig
	limiter     *rate.Limiter
}

// NewImageGenerator builds the keyframe generation client. When the service
// config sets a rate interval, requests are paced through a shared limiter
// on top of the orchestrator's concurrency ceiling.
func NewImageGenerator(contentFetcher ContentFetcher, imageConfig *config.ImageServiceConfig, logger outbound.LoggerPort) outbound.ImageGeneratorPort {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if imageConfig.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(imageConfig.RateInterval), 1)
	}
	return &imageGenerator{
		ContentFetcher: contentFetcher,
		logger:         logger,
		imageConfig:    imageConfig,
		limiter:        limiter,
	}
}

func (i *imageGenerator) Generate(ctx context.Context, request outbound.GenerateImageRequest) ([]byte, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		return nil, domain.NewTransient("waiting for image rate limiter", err)
	}

	req, err := i.getRequest(ctx, request)
	if err != nil {
		i.logger.Error(err, "Failed to create the HTTP request")
		return nil, err
	}

	rawRes, err := i.FetchContent(req)
	if err != nil {
		i.logger.Error(err, "Failed to fetch the generated image")
		return nil, err
	}

	var apiRes imageApiResponse
	if err := json.Unmarshal(rawRes, &apiRes); err != nil {
		i.logger.Error(err, "Failed to unmarshal the image response")
		return nil, domain.NewTransient("unmarshalling image response", err)
	}
	if len(apiRes.Data) == 0 {
		return nil, domain.NewPermanent("image response contained no data", nil)
	}

	decodedImage, err := base64.StdEncoding.DecodeString(apiRes.Data[0].B64Json)
	if err != nil {
		i.logger.Error(err, "Failed to decode the image payload")
		return nil, domain.NewPermanent("decoding image payload", err)
	}

	return decodedImage, nil
}

func (i *imageGenerator) getRequest(ctx context.Context, request outbound.GenerateImageRequest) (*http.Request, error) {
	reqBody := imageApiRequest{
		Prompt:         request.Prompt,
		AspectRatio:    request.AspectRatio,
		Quality:        request.Quality,
		Number:         1,
		ResponseFormat: "b64_json",
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", i.imageConfig.ApiUrl, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	req.Header.Add("Authorization", "Bearer "+i.imageConfig.ApiKey)
	req.Header.Add("Content-Type", "application/json")

	return req, nil
}
