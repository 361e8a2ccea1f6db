package config

import (
	"fmt"
	"os"
	"time"
)

type VideoServiceConfig struct {
	ApiUrl         string
	ApiKey         string
	Resolution     string
	PollInterval   time.Duration
	MaxConcurrent  int
	RequestTimeout time.Duration
}

func GetVideoServiceConfig() (*VideoServiceConfig, error) {
	apiUrl := os.Getenv("VIDEO_API_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("VIDEO_API_URL must be set")
	}
	apiKey := os.Getenv("VIDEO_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("VIDEO_API_KEY must be set")
	}

	pollInterval, err := lookupDuration("VIDEO_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	maxConcurrent, err := lookupInt("VIDEO_MAX_CONCURRENT", 2)
	if err != nil {
		return nil, err
	}
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("VIDEO_MAX_CONCURRENT must be at least 1")
	}
	requestTimeout, err := lookupDuration("VIDEO_REQUEST_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	// The timeout bounds the submit-and-poll loop; without one a job that
	// never settles would pin a worker forever.
	if requestTimeout <= 0 {
		return nil, fmt.Errorf("VIDEO_REQUEST_TIMEOUT must be positive")
	}

	return &VideoServiceConfig{
		ApiUrl:         apiUrl,
		ApiKey:         apiKey,
		Resolution:     lookupString("VIDEO_RESOLUTION", "1080p"),
		PollInterval:   pollInterval,
		MaxConcurrent:  maxConcurrent,
		RequestTimeout: requestTimeout,
	}, nil
}
