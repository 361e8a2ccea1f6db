package dto

import "video-production-service/domain"

type EstimateRequest struct {
	ImageCount           int     `json:"image_count" binding:"min=0"`
	TotalDurationSeconds float64 `json:"total_duration_seconds" binding:"min=0"`
}

type EstimateResponse struct {
	ImageCost float64 `json:"image_cost"`
	VideoCost float64 `json:"video_cost"`
	TotalCost float64 `json:"total_cost"`
}

type SceneRequest struct {
	ID               string  `json:"id" binding:"required"`
	OrderIndex       int     `json:"order_index"`
	DurationSeconds  float64 `json:"duration_seconds" binding:"required"`
	VideoPrompt      string  `json:"video_prompt" binding:"required"`
	EndImagePrompt   string  `json:"end_image_prompt" binding:"required"`
	StartImagePrompt string  `json:"start_image_prompt,omitempty"`
}

type ApproveSessionRequest struct {
	Theme                string         `json:"theme,omitempty"`
	TotalDurationSeconds float64        `json:"total_duration_seconds" binding:"required"`
	Scenes               []SceneRequest `json:"scenes" binding:"required,dive"`
}

func (r ApproveSessionRequest) ToScenePlan() domain.ScenePlan {
	scenes := make([]domain.Scene, 0, len(r.Scenes))
	for _, s := range r.Scenes {
		scenes = append(scenes, domain.Scene{
			ID:               s.ID,
			OrderIndex:       s.OrderIndex,
			Duration:         s.DurationSeconds,
			VideoPrompt:      s.VideoPrompt,
			EndImagePrompt:   s.EndImagePrompt,
			StartImagePrompt: s.StartImagePrompt,
		})
	}
	return domain.ScenePlan{
		Theme:         r.Theme,
		TotalDuration: r.TotalDurationSeconds,
		Scenes:        scenes,
	}
}

type SessionResponse struct {
	SessionID    string               `json:"session_id"`
	Status       domain.WorkflowStatus `json:"status"`
	CostEstimate *domain.CostEstimate  `json:"cost_estimate,omitempty"`
}

type UnitFailureResponse struct {
	SceneID string `json:"scene_id"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type ProduceResponse struct {
	SessionID   string                `json:"session_id"`
	Status      domain.WorkflowStatus `json:"status"`
	FinalVideo  string                `json:"final_video,omitempty"`
	VideoKey    string                `json:"video_key,omitempty"`
	StoreRegion string                `json:"store_region,omitempty"`
	Failures    []UnitFailureResponse `json:"failures,omitempty"`
}
