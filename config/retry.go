package config

import (
	"fmt"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func GetRetryConfig() (*RetryConfig, error) {
	maxAttempts, err := lookupInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	baseDelay, err := lookupDuration("RETRY_BASE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}

	return &RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
	}, nil
}
