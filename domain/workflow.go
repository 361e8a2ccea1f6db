package domain

import "time"

type WorkflowStatus string

const (
	StatusPlanned       WorkflowStatus = "planned"
	StatusImagesPending WorkflowStatus = "images_pending"
	StatusImagesDone    WorkflowStatus = "images_done"
	StatusVideosPending WorkflowStatus = "videos_pending"
	StatusVideosDone    WorkflowStatus = "videos_done"
	StatusConcatenating WorkflowStatus = "concatenating"
	StatusCompleted     WorkflowStatus = "completed"
	StatusFailed        WorkflowStatus = "failed"
)

type Phase string

const (
	ImagePhase         Phase = "images"
	VideoPhase         Phase = "videos"
	ConcatenationPhase Phase = "concatenation"
)

type CostEstimate struct {
	ImageCost float64 `json:"image_cost"`
	VideoCost float64 `json:"video_cost"`
	TotalCost float64 `json:"total_cost"`
}

// ProductionError is one recorded per-unit failure, kept in order of
// occurrence so a failed run names every outstanding scene and phase.
type ProductionError struct {
	SceneID string `json:"scene_id"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// WorkflowState is the durable record of a production session. It is mutated
// exclusively by the production orchestrator and persisted after every
// state-changing transition.
type WorkflowState struct {
	SessionID    string                  `json:"session_id"`
	Status       WorkflowStatus          `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	ScenePlan    ScenePlan               `json:"scene_plan"`
	CostEstimate *CostEstimate           `json:"cost_estimate,omitempty"`
	Assets       map[string]*SceneAssets `json:"asset_refs"`
	FinalVideo   *AssetReference         `json:"final_video,omitempty"`
	Errors       []ProductionError       `json:"errors,omitempty"`
}

func NewWorkflowState(sessionID string, plan ScenePlan, estimate CostEstimate) *WorkflowState {
	now := time.Now().UTC()
	return &WorkflowState{
		SessionID:    sessionID,
		Status:       StatusPlanned,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScenePlan:    plan,
		CostEstimate: &estimate,
		Assets:       make(map[string]*SceneAssets),
	}
}

// SceneAssets returns the asset slot for a scene, creating it on first use.
func (w *WorkflowState) SceneAssets(sceneID string) *SceneAssets {
	if w.Assets == nil {
		w.Assets = make(map[string]*SceneAssets)
	}
	assets, ok := w.Assets[sceneID]
	if !ok {
		assets = &SceneAssets{}
		w.Assets[sceneID] = assets
	}
	return assets
}

func (w *WorkflowState) SetStatus(status WorkflowStatus) {
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
}

func (w *WorkflowState) RecordError(sceneID string, phase Phase, message string) {
	w.Errors = append(w.Errors, ProductionError{SceneID: sceneID, Phase: phase, Message: message})
	w.UpdatedAt = time.Now().UTC()
}

// ClearErrors drops failures recorded by earlier attempts so a resumed run
// reports only its own outstanding units.
func (w *WorkflowState) ClearErrors() {
	w.Errors = nil
}

func (w *WorkflowState) MarkFailed(sceneID string, phase Phase, message string) {
	w.RecordError(sceneID, phase, message)
	w.SetStatus(StatusFailed)
}

// RequiredImageKinds lists the image references a scene's position demands:
// the first scene needs both frames, every other scene its end frame only.
func RequiredImageKinds(scene Scene) []AssetKind {
	if scene.IsFirst() {
		return []AssetKind{StartImageAsset, EndImageAsset}
	}
	return []AssetKind{EndImageAsset}
}

// MissingImageUnits lists the (scene, kind) pairs the image phase still has
// to produce. Resume dispatches exactly these units.
func (w *WorkflowState) MissingImageUnits() []UnitFailure {
	var missing []UnitFailure
	for _, scene := range w.ScenePlan.OrderedScenes() {
		assets := w.Assets[scene.ID]
		for _, kind := range RequiredImageKinds(scene) {
			if assets.Ref(kind) == nil {
				missing = append(missing, UnitFailure{SceneID: scene.ID, Kind: kind})
			}
		}
	}
	return missing
}

func (w *WorkflowState) ImagePhaseComplete() bool {
	return len(w.MissingImageUnits()) == 0
}

// MissingVideoScenes lists the scenes without a video reference yet.
func (w *WorkflowState) MissingVideoScenes() []Scene {
	var missing []Scene
	for _, scene := range w.ScenePlan.OrderedScenes() {
		if w.Assets[scene.ID].Ref(VideoAsset) == nil {
			missing = append(missing, scene)
		}
	}
	return missing
}

func (w *WorkflowState) VideoPhaseComplete() bool {
	return len(w.MissingVideoScenes()) == 0
}

func (w *WorkflowState) IsComplete() bool {
	return w.Status == StatusCompleted
}

// CanResume reports whether production can be (re-)entered. A failed run
// stays resumable: its errors name what to fix, and completed units are
// never re-requested.
func (w *WorkflowState) CanResume() bool {
	return w.Status != StatusCompleted
}

// ProductionEvent is emitted as units and phases complete. Consumers use it
// for progress reporting; it carries no state of its own.
type ProductionEvent struct {
	SessionID string    `json:"session_id"`
	SceneID   string    `json:"scene_id,omitempty"`
	Phase     Phase     `json:"phase"`
	Kind      AssetKind `json:"kind,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message"`
}
