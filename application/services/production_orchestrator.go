package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"video-production-service/application/ports/inbound"
	"video-production-service/application/ports/outbound"
	"video-production-service/channel_utils"
	"video-production-service/domain"
)

// OrchestratorConfig carries the per-service ceilings and request defaults
// the orchestrator applies to every generation unit.
type OrchestratorConfig struct {
	ImageConcurrency int64
	VideoConcurrency int64
	AspectRatio      string
	Quality          string
	Resolution       string
	ImageTimeout     time.Duration
	VideoTimeout     time.Duration
}

type productionOrchestrator struct {
	logger         outbound.LoggerPort
	workerPool     outbound.TaskDispatcher
	imageGenerator outbound.ImageGeneratorPort
	videoGenerator outbound.VideoGeneratorPort
	concatenator   outbound.ConcatenateVideosPort
	assetStore     outbound.AssetStorePort
	workflowStore  outbound.WorkflowStorePort
	retry          RetryPolicy
	cfg            OrchestratorConfig
	imageSlots     *semaphore.Weighted
	videoSlots     *semaphore.Weighted
}

func NewProductionOrchestrator(logger outbound.LoggerPort, workerPool outbound.TaskDispatcher,
	imageGenerator outbound.ImageGeneratorPort, videoGenerator outbound.VideoGeneratorPort,
	concatenator outbound.ConcatenateVideosPort, assetStore outbound.AssetStorePort,
	workflowStore outbound.WorkflowStorePort, retry RetryPolicy,
	cfg OrchestratorConfig) inbound.ProductionOrchestratorPort {
	if cfg.ImageConcurrency < 1 {
		cfg.ImageConcurrency = 1
	}
	if cfg.VideoConcurrency < 1 {
		cfg.VideoConcurrency = 1
	}
	return &productionOrchestrator{
		logger:         logger,
		workerPool:     workerPool,
		imageGenerator: imageGenerator,
		videoGenerator: videoGenerator,
		concatenator:   concatenator,
		assetStore:     assetStore,
		workflowStore:  workflowStore,
		retry:          retry,
		cfg:            cfg,
		imageSlots:     semaphore.NewWeighted(cfg.ImageConcurrency),
		videoSlots:     semaphore.NewWeighted(cfg.VideoConcurrency),
	}
}

func (o *productionOrchestrator) Produce(ctx context.Context, params inbound.ProduceParams) (<-chan domain.ProductionEvent, <-chan error) {
	errCh := make(chan error, 1)
	imageEvents := make(chan domain.ProductionEvent)
	videoEvents := make(chan domain.ProductionEvent)
	concatEvents := make(chan domain.ProductionEvent)

	events, err := channel_utils.MergeChannels[domain.ProductionEvent](o.workerPool, imageEvents, videoEvents, concatEvents)
	if err != nil {
		close(imageEvents)
		close(videoEvents)
		close(concatEvents)
		errCh <- err
		close(errCh)
		closed := make(chan domain.ProductionEvent)
		close(closed)
		return closed, errCh
	}

	submitErr := o.workerPool.Submit(func() {
		defer close(errCh)
		defer close(concatEvents)
		defer close(videoEvents)
		defer close(imageEvents)
		if runErr := o.run(ctx, params.SessionID, imageEvents, videoEvents, concatEvents); runErr != nil {
			errCh <- runErr
		}
	})
	if submitErr != nil {
		close(imageEvents)
		close(videoEvents)
		close(concatEvents)
		errCh <- submitErr
		close(errCh)
	}

	return events, errCh
}

// run resumes at the first incomplete phase. Phase completeness is judged by
// asset references, not by the persisted status alone, so a crash between a
// unit save and a phase transition costs at most the in-flight unit.
func (o *productionOrchestrator) run(ctx context.Context, sessionID string,
	imageEvents, videoEvents, concatEvents chan<- domain.ProductionEvent) error {
	state, err := o.workflowStore.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !state.CanResume() {
		return domain.NewInvalidArgument(fmt.Sprintf("session %s is already completed", sessionID))
	}
	if state.CostEstimate == nil {
		return domain.NewInvalidArgument(fmt.Sprintf("session %s has no cost estimate", sessionID))
	}

	state.ClearErrors()

	if !state.ImagePhaseComplete() {
		if err := o.runImagePhase(ctx, state, imageEvents); err != nil {
			return err
		}
	}

	if !state.VideoPhaseComplete() {
		if err := o.runVideoPhase(ctx, state, videoEvents); err != nil {
			return err
		}
	}

	if state.FinalVideo == nil {
		if err := o.runConcatenation(ctx, state, concatEvents); err != nil {
			return err
		}
	}

	return nil
}

type imageUnit struct {
	sceneID string
	kind    domain.AssetKind
	prompt  string
}

type unitOutcome struct {
	sceneID string
	kind    domain.AssetKind
	ref     *domain.AssetReference
	err     error
}

// pendingImageUnits lists the image requests still outstanding: both frames
// for the first scene, the end frame for every other, minus whatever a
// previous attempt already produced.
func (o *productionOrchestrator) pendingImageUnits(state *domain.WorkflowState) []imageUnit {
	var units []imageUnit
	for _, scene := range state.ScenePlan.OrderedScenes() {
		assets := state.Assets[scene.ID]
		if scene.IsFirst() && assets.Ref(domain.StartImageAsset) == nil {
			units = append(units, imageUnit{sceneID: scene.ID, kind: domain.StartImageAsset, prompt: scene.StartImagePrompt})
		}
		if assets.Ref(domain.EndImageAsset) == nil {
			units = append(units, imageUnit{sceneID: scene.ID, kind: domain.EndImageAsset, prompt: scene.EndImagePrompt})
		}
	}
	return units
}

func (o *productionOrchestrator) runImagePhase(ctx context.Context, state *domain.WorkflowState, events chan<- domain.ProductionEvent) error {
	units := o.pendingImageUnits(state)

	state.SetStatus(domain.StatusImagesPending)
	if err := o.workflowStore.Save(ctx, state); err != nil {
		return err
	}

	o.logger.InfoWithFields("Image phase started", map[string]interface{}{
		"session_id": state.SessionID,
		"units":      len(units),
	})

	// Buffered so a worker never blocks on delivery while the writer loop
	// is still persisting an earlier outcome.
	outcomes := make(chan unitOutcome, len(units))
	var wg sync.WaitGroup

	for _, unit := range units {
		unit := unit
		wg.Add(1)
		if err := o.workerPool.Submit(func() {
			defer wg.Done()
			outcomes <- o.generateImageUnit(ctx, state.SessionID, unit)
		}); err != nil {
			wg.Done()
			outcomes <- unitOutcome{sceneID: unit.sceneID, kind: unit.kind, err: err}
		}
	}
	if err := o.workerPool.Submit(func() {
		wg.Wait()
		close(outcomes)
	}); err != nil {
		return err
	}

	// Single-writer discipline: only this loop mutates and persists state.
	var failures []domain.UnitFailure
	for outcome := range outcomes {
		if outcome.err != nil {
			state.RecordError(outcome.sceneID, domain.ImagePhase, outcome.err.Error())
			failures = append(failures, domain.UnitFailure{SceneID: outcome.sceneID, Kind: outcome.kind, Err: outcome.err})
			o.logger.ErrorWithFields(outcome.err, "Image unit failed", map[string]interface{}{
				"session_id": state.SessionID,
				"scene_id":   outcome.sceneID,
				"kind":       outcome.kind,
			})
		} else {
			state.SceneAssets(outcome.sceneID).SetRef(outcome.kind, outcome.ref)
			events <- domain.ProductionEvent{
				SessionID: state.SessionID,
				SceneID:   outcome.sceneID,
				Phase:     domain.ImagePhase,
				Kind:      outcome.kind,
				Path:      outcome.ref.Path,
				Message:   "image generated",
			}
		}
		if err := o.workflowStore.Save(ctx, state); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		sortFailures(failures)
		// A halted run is failed, not pending: the per-unit errors above say
		// what is outstanding, CanResume keeps the session re-runnable.
		state.SetStatus(domain.StatusFailed)
		if err := o.workflowStore.Save(ctx, state); err != nil {
			return err
		}
		return &domain.PhaseError{Phase: domain.ImagePhase, Failures: failures}
	}

	state.SetStatus(domain.StatusImagesDone)
	return o.workflowStore.Save(ctx, state)
}

func (o *productionOrchestrator) generateImageUnit(ctx context.Context, sessionID string, unit imageUnit) unitOutcome {
	if err := o.imageSlots.Acquire(ctx, 1); err != nil {
		return unitOutcome{sceneID: unit.sceneID, kind: unit.kind,
			err: domain.NewTransient("image slot not acquired", err)}
	}
	defer o.imageSlots.Release(1)

	var data []byte
	err := o.retry.Do(ctx, func() error {
		callCtx, cancel := detachedCallContext(ctx, o.cfg.ImageTimeout)
		defer cancel()
		var genErr error
		data, genErr = o.imageGenerator.Generate(callCtx, outbound.GenerateImageRequest{
			Prompt:      unit.prompt,
			AspectRatio: o.cfg.AspectRatio,
			Quality:     o.cfg.Quality,
		})
		return genErr
	})
	if err != nil {
		return unitOutcome{sceneID: unit.sceneID, kind: unit.kind, err: err}
	}

	ref, err := o.assetStore.SaveImage(ctx, sessionID, unit.sceneID, unit.kind, data)
	if err != nil {
		return unitOutcome{sceneID: unit.sceneID, kind: unit.kind, err: err}
	}
	return unitOutcome{sceneID: unit.sceneID, kind: unit.kind, ref: ref}
}

type videoUnit struct {
	scene      domain.Scene
	startImage *domain.AssetReference
	endImage   *domain.AssetReference
}

func (o *productionOrchestrator) runVideoPhase(ctx context.Context, state *domain.WorkflowState, events chan<- domain.ProductionEvent) error {
	state.SetStatus(domain.StatusVideosPending)

	// Continuity is resolved once at phase entry: every scene after the
	// first starts on its predecessor's end frame, the same reference and
	// not a re-request. This is a data dependency only, so all units can
	// still be dispatched concurrently.
	ordered := state.ScenePlan.OrderedScenes()
	var units []videoUnit
	for _, scene := range state.MissingVideoScenes() {
		assets := state.SceneAssets(scene.ID)
		start := assets.Ref(domain.StartImageAsset)
		if !scene.IsFirst() {
			start = state.SceneAssets(ordered[scene.OrderIndex-1].ID).Ref(domain.EndImageAsset)
			assets.SetRef(domain.StartImageAsset, start)
		}
		end := assets.Ref(domain.EndImageAsset)
		if start == nil || end == nil {
			return domain.NewInvalidArgument(fmt.Sprintf(
				"scene %s entered the video phase without its image references", scene.ID))
		}
		units = append(units, videoUnit{scene: scene, startImage: start, endImage: end})
	}

	if err := o.workflowStore.Save(ctx, state); err != nil {
		return err
	}

	o.logger.InfoWithFields("Video phase started", map[string]interface{}{
		"session_id": state.SessionID,
		"units":      len(units),
	})

	outcomes := make(chan unitOutcome, len(units))
	var wg sync.WaitGroup

	for _, unit := range units {
		unit := unit
		wg.Add(1)
		if err := o.workerPool.Submit(func() {
			defer wg.Done()
			outcomes <- o.generateVideoUnit(ctx, state.SessionID, unit)
		}); err != nil {
			wg.Done()
			outcomes <- unitOutcome{sceneID: unit.scene.ID, kind: domain.VideoAsset, err: err}
		}
	}
	if err := o.workerPool.Submit(func() {
		wg.Wait()
		close(outcomes)
	}); err != nil {
		return err
	}

	var failures []domain.UnitFailure
	for outcome := range outcomes {
		if outcome.err != nil {
			state.RecordError(outcome.sceneID, domain.VideoPhase, outcome.err.Error())
			failures = append(failures, domain.UnitFailure{SceneID: outcome.sceneID, Kind: outcome.kind, Err: outcome.err})
			o.logger.ErrorWithFields(outcome.err, "Video unit failed", map[string]interface{}{
				"session_id": state.SessionID,
				"scene_id":   outcome.sceneID,
			})
		} else {
			state.SceneAssets(outcome.sceneID).SetRef(domain.VideoAsset, outcome.ref)
			events <- domain.ProductionEvent{
				SessionID: state.SessionID,
				SceneID:   outcome.sceneID,
				Phase:     domain.VideoPhase,
				Kind:      domain.VideoAsset,
				Path:      outcome.ref.Path,
				Message:   "video segment generated",
			}
		}
		if err := o.workflowStore.Save(ctx, state); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		sortFailures(failures)
		state.SetStatus(domain.StatusFailed)
		if err := o.workflowStore.Save(ctx, state); err != nil {
			return err
		}
		return &domain.PhaseError{Phase: domain.VideoPhase, Failures: failures}
	}

	state.SetStatus(domain.StatusVideosDone)
	return o.workflowStore.Save(ctx, state)
}

func (o *productionOrchestrator) generateVideoUnit(ctx context.Context, sessionID string, unit videoUnit) unitOutcome {
	if err := o.videoSlots.Acquire(ctx, 1); err != nil {
		return unitOutcome{sceneID: unit.scene.ID, kind: domain.VideoAsset,
			err: domain.NewTransient("video slot not acquired", err)}
	}
	defer o.videoSlots.Release(1)

	var ref *domain.AssetReference
	err := o.retry.Do(ctx, func() error {
		callCtx, cancel := detachedCallContext(ctx, o.cfg.VideoTimeout)
		defer cancel()
		body, genErr := o.videoGenerator.Generate(callCtx, outbound.GenerateVideoRequest{
			Prompt:         unit.scene.VideoPrompt,
			StartImagePath: unit.startImage.Path,
			EndImagePath:   unit.endImage.Path,
			Resolution:     o.cfg.Resolution,
		})
		if genErr != nil {
			return genErr
		}
		defer body.Close()
		var saveErr error
		ref, saveErr = o.assetStore.SaveVideo(ctx, sessionID, unit.scene.ID, body)
		return saveErr
	})
	if err != nil {
		return unitOutcome{sceneID: unit.scene.ID, kind: domain.VideoAsset, err: err}
	}
	return unitOutcome{sceneID: unit.scene.ID, kind: domain.VideoAsset, ref: ref}
}

// runConcatenation hands the segments over strictly in order index order.
// Never retried automatically: the usual causes are environment problems a
// blind retry cannot fix, and re-invoking after a manual fix is cheap.
func (o *productionOrchestrator) runConcatenation(ctx context.Context, state *domain.WorkflowState, events chan<- domain.ProductionEvent) error {
	state.SetStatus(domain.StatusConcatenating)
	if err := o.workflowStore.Save(ctx, state); err != nil {
		return err
	}

	ordered := state.ScenePlan.OrderedScenes()
	paths := make([]string, 0, len(ordered))
	for _, scene := range ordered {
		ref := state.SceneAssets(scene.ID).Ref(domain.VideoAsset)
		if ref == nil {
			return domain.NewInvalidArgument(fmt.Sprintf(
				"scene %s reached concatenation without a video reference", scene.ID))
		}
		paths = append(paths, ref.Path)
	}

	finalPath, err := o.concatenator.Concatenate(ctx, o.assetStore.FinalVideoPath(state.SessionID), paths)
	if err != nil {
		state.MarkFailed("", domain.ConcatenationPhase, err.Error())
		if saveErr := o.workflowStore.Save(ctx, state); saveErr != nil {
			o.logger.Error(saveErr, "Failed to persist failed state after concatenation error")
		}
		return err
	}

	state.FinalVideo = &domain.AssetReference{
		Kind:      domain.VideoAsset,
		Path:      finalPath,
		CreatedAt: time.Now().UTC(),
	}
	state.SetStatus(domain.StatusCompleted)
	if err := o.workflowStore.Save(ctx, state); err != nil {
		return err
	}

	events <- domain.ProductionEvent{
		SessionID: state.SessionID,
		Phase:     domain.ConcatenationPhase,
		Kind:      domain.VideoAsset,
		Path:      finalPath,
		Message:   "final video assembled",
	}

	o.logger.InfoWithFields("Production completed", map[string]interface{}{
		"session_id":  state.SessionID,
		"final_video": finalPath,
	})

	return nil
}

// detachedCallContext bounds one collaborator call without inheriting the
// run's cancellation, so an aborted run lets in-flight requests drain and
// their results still get persisted.
func detachedCallContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}

func sortFailures(failures []domain.UnitFailure) {
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].SceneID != failures[j].SceneID {
			return failures[i].SceneID < failures[j].SceneID
		}
		return failures[i].Kind < failures[j].Kind
	})
}
