package domain

import (
	"fmt"
	"math"
	"sort"
)

// durationTolerance is how far the sum of scene durations may drift from the
// declared total before the plan is rejected.
const durationTolerance = 0.5

type Scene struct {
	ID               string  `json:"id"`
	OrderIndex       int     `json:"order_index"`
	Duration         float64 `json:"duration_seconds"`
	VideoPrompt      string  `json:"video_prompt"`
	EndImagePrompt   string  `json:"end_image_prompt"`
	StartImagePrompt string  `json:"start_image_prompt,omitempty"`
}

// IsFirst reports whether the scene opens the plan, which is the only scene
// that needs its own start-frame image.
func (s Scene) IsFirst() bool {
	return s.OrderIndex == 0
}

type ScenePlan struct {
	TotalDuration float64 `json:"total_duration"`
	Theme         string  `json:"theme,omitempty"`
	Scenes        []Scene `json:"scenes"`
}

func (p ScenePlan) SceneCount() int {
	return len(p.Scenes)
}

// ImageCount is the number of generation requests the image phase issues:
// one end frame per scene plus the first scene's start frame.
func (p ScenePlan) ImageCount() int {
	return len(p.Scenes) + 1
}

// OrderedScenes returns the scenes sorted by OrderIndex. Playback and
// continuity order is defined by OrderIndex, never by slice position.
func (p ScenePlan) OrderedScenes() []Scene {
	ordered := make([]Scene, len(p.Scenes))
	copy(ordered, p.Scenes)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})
	return ordered
}

// Validate checks the plan against the per-segment duration cap. A valid plan
// partitions TotalDuration into ceil(total/cap) scenes of at most cap seconds,
// every scene carries the prompts its position requires, and order indexes are
// contiguous from zero.
func (p ScenePlan) Validate(cap float64) error {
	if cap <= 0 {
		return NewInvalidArgument(fmt.Sprintf("segment cap must be positive, got %v", cap))
	}
	if len(p.Scenes) == 0 {
		return NewInvalidArgument("scene plan has no scenes")
	}
	if p.TotalDuration <= 0 {
		return NewInvalidArgument(fmt.Sprintf("total duration must be positive, got %v", p.TotalDuration))
	}

	expected := int(math.Ceil(p.TotalDuration / cap))
	if expected != len(p.Scenes) {
		return NewInvalidArgument(fmt.Sprintf("plan of %.1fs needs %d scenes of at most %.0fs, got %d",
			p.TotalDuration, expected, cap, len(p.Scenes)))
	}

	var sum float64
	seen := make(map[string]bool, len(p.Scenes))
	for i, scene := range p.OrderedScenes() {
		if scene.ID == "" {
			return NewInvalidArgument(fmt.Sprintf("scene at order %d has no id", scene.OrderIndex))
		}
		if seen[scene.ID] {
			return NewInvalidArgument(fmt.Sprintf("duplicate scene id %q", scene.ID))
		}
		seen[scene.ID] = true
		if scene.OrderIndex != i {
			return NewInvalidArgument(fmt.Sprintf("scene order indexes must be contiguous from 0, got %d at position %d",
				scene.OrderIndex, i))
		}
		if scene.Duration <= 0 || scene.Duration > cap {
			return NewInvalidArgument(fmt.Sprintf("scene %s duration %.1fs outside (0, %.0f]",
				scene.ID, scene.Duration, cap))
		}
		if scene.VideoPrompt == "" {
			return NewInvalidArgument(fmt.Sprintf("scene %s has no video prompt", scene.ID))
		}
		if scene.EndImagePrompt == "" {
			return NewInvalidArgument(fmt.Sprintf("scene %s has no end image prompt", scene.ID))
		}
		if scene.IsFirst() && scene.StartImagePrompt == "" {
			return NewInvalidArgument(fmt.Sprintf("first scene %s has no start image prompt", scene.ID))
		}
		if !scene.IsFirst() && scene.StartImagePrompt != "" {
			return NewInvalidArgument(fmt.Sprintf("scene %s carries a start image prompt but is not the first scene", scene.ID))
		}
		sum += scene.Duration
	}

	if math.Abs(sum-p.TotalDuration) > durationTolerance {
		return NewInvalidArgument(fmt.Sprintf("scene durations sum to %.1fs, plan declares %.1fs", sum, p.TotalDuration))
	}

	return nil
}

// PartitionDuration splits a total duration into cap-sized chunks with the
// final chunk allowed to be a remainder shorter than cap.
func PartitionDuration(total, cap float64) []float64 {
	if total <= 0 || cap <= 0 {
		return nil
	}
	count := int(math.Ceil(total / cap))
	chunks := make([]float64, 0, count)
	remaining := total
	for remaining > cap {
		chunks = append(chunks, cap)
		remaining -= cap
	}
	return append(chunks, remaining)
}
