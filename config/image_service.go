package config

import (
	"fmt"
	"os"
	"time"
)

type ImageServiceConfig struct {
	ApiUrl         string
	ApiKey         string
	AspectRatio    string
	Quality        string
	MaxConcurrent  int
	RateInterval   time.Duration
	RequestTimeout time.Duration
}

func GetImageServiceConfig() (*ImageServiceConfig, error) {
	apiUrl := os.Getenv("IMAGE_API_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("IMAGE_API_URL must be set")
	}
	apiKey := os.Getenv("IMAGE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("IMAGE_API_KEY must be set")
	}

	maxConcurrent, err := lookupInt("IMAGE_MAX_CONCURRENT", 4)
	if err != nil {
		return nil, err
	}
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("IMAGE_MAX_CONCURRENT must be at least 1")
	}
	rateInterval, err := lookupDuration("IMAGE_RATE_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := lookupDuration("IMAGE_REQUEST_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	if requestTimeout <= 0 {
		return nil, fmt.Errorf("IMAGE_REQUEST_TIMEOUT must be positive")
	}

	return &ImageServiceConfig{
		ApiUrl:         apiUrl,
		ApiKey:         apiKey,
		AspectRatio:    lookupString("IMAGE_ASPECT_RATIO", "16:9"),
		Quality:        lookupString("IMAGE_QUALITY", "hd"),
		MaxConcurrent:  maxConcurrent,
		RateInterval:   rateInterval,
		RequestTimeout: requestTimeout,
	}, nil
}
