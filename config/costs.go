package config

import "fmt"

// CostConfig carries the pricing constants and the per-segment duration cap.
// Read once at process start; never consulted from the environment again.
type CostConfig struct {
	PricePerImage  float64
	PricePerSecond float64
	SegmentCap     float64
}

func GetCostConfig() (*CostConfig, error) {
	pricePerImage, err := lookupFloat("PRICE_PER_IMAGE", 0.10)
	if err != nil {
		return nil, err
	}
	pricePerSecond, err := lookupFloat("PRICE_PER_SECOND", 0.40)
	if err != nil {
		return nil, err
	}
	segmentCap, err := lookupFloat("SEGMENT_CAP_SECONDS", 8)
	if err != nil {
		return nil, err
	}

	if pricePerImage < 0 || pricePerSecond < 0 {
		return nil, fmt.Errorf("prices must not be negative")
	}
	if segmentCap <= 0 {
		return nil, fmt.Errorf("SEGMENT_CAP_SECONDS must be positive")
	}

	return &CostConfig{
		PricePerImage:  pricePerImage,
		PricePerSecond: pricePerSecond,
		SegmentCap:     segmentCap,
	}, nil
}
