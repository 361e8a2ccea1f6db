package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"video-production-service/application/ports/inbound"
	"video-production-service/application/ports/outbound"
	"video-production-service/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}

func (nopLogger) InfoWithFields(string, map[string]interface{}) {}

func (nopLogger) Error(error, string) {}

func (nopLogger) ErrorWithFields(error, string, map[string]interface{}) {}

func (nopLogger) Debug(string) {}

func (nopLogger) DebugWithFields(string, map[string]interface{}) {}

func (nopLogger) Warn(string) {}

func (nopLogger) WarnWithFields(string, map[string]interface{}) {}

type goroutineDispatcher struct{}

func (goroutineDispatcher) Submit(task func()) error {
	go task()
	return nil
}

type fakeImageGenerator struct {
	mu       sync.Mutex
	calls    []string
	failing  map[string]error
	failOnce map[string]error
	delays   map[string]time.Duration
	// When blockFirst is set, the first call reports its prompt on started
	// and holds until release closes.
	blockFirst bool
	started    chan string
	release    chan struct{}
}

func (f *fakeImageGenerator) Generate(_ context.Context, req outbound.GenerateImageRequest) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Prompt)
	failErr := f.failing[req.Prompt]
	if once, ok := f.failOnce[req.Prompt]; ok {
		failErr = once
		delete(f.failOnce, req.Prompt)
	}
	delay := f.delays[req.Prompt]
	blocked := f.blockFirst
	f.blockFirst = false
	f.mu.Unlock()

	if blocked {
		f.started <- req.Prompt
		<-f.release
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if failErr != nil {
		return nil, failErr
	}
	return []byte("image:" + req.Prompt), nil
}

func (f *fakeImageGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeVideoGenerator struct {
	mu     sync.Mutex
	calls  []outbound.GenerateVideoRequest
	delays map[string]time.Duration
}

func (f *fakeVideoGenerator) Generate(_ context.Context, req outbound.GenerateVideoRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	delay := f.delays[req.Prompt]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return io.NopCloser(strings.NewReader("video:" + req.Prompt)), nil
}

func (f *fakeVideoGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeConcatenator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeConcatenator) Concatenate(_ context.Context, outputPath string, inputPaths []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), inputPaths...))
	if f.err != nil {
		return "", f.err
	}
	return outputPath, nil
}

type fakeAssetStore struct {
	mu     sync.Mutex
	images map[string][]byte
	videos map[string][]byte
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{images: make(map[string][]byte), videos: make(map[string][]byte)}
}

func (f *fakeAssetStore) EnsureSession(string) error { return nil }

func (f *fakeAssetStore) SaveImage(_ context.Context, sessionID, sceneID string, kind domain.AssetKind, data []byte) (*domain.AssetReference, error) {
	path := fmt.Sprintf("%s/images/%s_%s.png", sessionID, sceneID, kind)
	f.mu.Lock()
	f.images[path] = data
	f.mu.Unlock()
	return &domain.AssetReference{SceneID: sceneID, Kind: kind, Path: path, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeAssetStore) SaveVideo(_ context.Context, sessionID, sceneID string, r io.Reader) (*domain.AssetReference, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s/videos/%s.mp4", sessionID, sceneID)
	f.mu.Lock()
	f.videos[path] = buf.Bytes()
	f.mu.Unlock()
	return &domain.AssetReference{SceneID: sceneID, Kind: domain.VideoAsset, Path: path, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeAssetStore) FinalVideoPath(sessionID string) string {
	return sessionID + "/final_video.mp4"
}

type fakeWorkflowStore struct {
	mu     sync.Mutex
	states map[string]*domain.WorkflowState
	saves  int
}

func newFakeWorkflowStore() *fakeWorkflowStore {
	return &fakeWorkflowStore{states: make(map[string]*domain.WorkflowState)}
}

func (f *fakeWorkflowStore) Save(_ context.Context, state *domain.WorkflowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.SessionID] = state
	f.saves++
	return nil
}

func (f *fakeWorkflowStore) Load(_ context.Context, sessionID string) (*domain.WorkflowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[sessionID]
	if !ok {
		return nil, domain.NewNotFound("no state for session " + sessionID)
	}
	return state, nil
}

func (f *fakeWorkflowStore) List(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.states))
	for id := range f.states {
		ids = append(ids, id)
	}
	return ids, nil
}

type orchestratorFixture struct {
	imageGen     *fakeImageGenerator
	videoGen     *fakeVideoGenerator
	concatenator *fakeConcatenator
	assetStore   *fakeAssetStore
	store        *fakeWorkflowStore
	orchestrator inbound.ProductionOrchestratorPort
}

func newFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		imageGen: &fakeImageGenerator{
			failing:  map[string]error{},
			failOnce: map[string]error{},
			delays:   map[string]time.Duration{},
		},
		videoGen:     &fakeVideoGenerator{delays: map[string]time.Duration{}},
		concatenator: &fakeConcatenator{},
		assetStore:   newFakeAssetStore(),
		store:        newFakeWorkflowStore(),
	}
	f.orchestrator = NewProductionOrchestrator(nopLogger{}, goroutineDispatcher{},
		f.imageGen, f.videoGen, f.concatenator, f.assetStore, f.store,
		NewRetryPolicy(2, time.Millisecond),
		OrchestratorConfig{
			ImageConcurrency: 4,
			VideoConcurrency: 2,
			AspectRatio:      "16:9",
			Quality:          "hd",
			Resolution:       "1080p",
		})
	return f
}

func testPlan() domain.ScenePlan {
	return domain.ScenePlan{
		TotalDuration: 20,
		Scenes: []domain.Scene{
			{ID: "scene_1", OrderIndex: 0, Duration: 8, VideoPrompt: "video-1",
				EndImagePrompt: "end-1", StartImagePrompt: "start-1"},
			{ID: "scene_2", OrderIndex: 1, Duration: 8, VideoPrompt: "video-2", EndImagePrompt: "end-2"},
			{ID: "scene_3", OrderIndex: 2, Duration: 4, VideoPrompt: "video-3", EndImagePrompt: "end-3"},
		},
	}
}

func (f *orchestratorFixture) seedSession(t *testing.T, sessionID string) *domain.WorkflowState {
	t.Helper()
	state := domain.NewWorkflowState(sessionID, testPlan(),
		domain.CostEstimate{ImageCost: 0.40, VideoCost: 8, TotalCost: 8.40})
	if err := f.store.Save(context.Background(), state); err != nil {
		t.Fatal(err)
	}
	return state
}

// produce runs the orchestrator to completion and returns the collected
// events and the terminal error, if any.
func (f *orchestratorFixture) produce(t *testing.T, sessionID string) ([]domain.ProductionEvent, error) {
	t.Helper()
	events, errCh := f.orchestrator.Produce(context.Background(), inbound.ProduceParams{SessionID: sessionID})

	collected := make(chan []domain.ProductionEvent, 1)
	go func() {
		var evs []domain.ProductionEvent
		for ev := range events {
			evs = append(evs, ev)
		}
		collected <- evs
	}()

	var runErr error
	for err := range errCh {
		runErr = err
	}
	return <-collected, runErr
}

func TestProduceEndToEnd(t *testing.T) {
	f := newFixture()
	f.seedSession(t, "session-e2e")

	events, err := f.produce(t, "session-e2e")
	if err != nil {
		t.Fatal("production failed:", err)
	}

	if got := f.imageGen.callCount(); got != 4 {
		t.Fatalf("expected 4 image requests (scene_1 start+end, scene_2 end, scene_3 end), got %d", got)
	}
	if got := f.videoGen.callCount(); got != 3 {
		t.Fatalf("expected 3 video requests, got %d", got)
	}
	if len(f.concatenator.calls) != 1 {
		t.Fatalf("expected exactly one concatenation call, got %d", len(f.concatenator.calls))
	}

	state, err := f.store.Load(context.Background(), "session-e2e")
	if err != nil {
		t.Fatal(err)
	}
	if state.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", state.Status)
	}
	if state.FinalVideo == nil || state.FinalVideo.Path != "session-e2e/final_video.mp4" {
		t.Fatalf("final video reference missing or wrong: %+v", state.FinalVideo)
	}
	if len(state.Errors) != 0 {
		t.Fatalf("completed run should have no recorded errors: %+v", state.Errors)
	}

	// 4 image units + 3 video units + 1 completion event.
	if len(events) != 8 {
		t.Fatalf("expected 8 events, got %d", len(events))
	}
}

func TestContinuityReusesPredecessorEndFrame(t *testing.T) {
	f := newFixture()
	f.seedSession(t, "session-cont")

	if _, err := f.produce(t, "session-cont"); err != nil {
		t.Fatal(err)
	}

	state, err := f.store.Load(context.Background(), "session-cont")
	if err != nil {
		t.Fatal(err)
	}

	scenes := state.ScenePlan.OrderedScenes()
	for i := 1; i < len(scenes); i++ {
		start := state.Assets[scenes[i].ID].StartImage
		prevEnd := state.Assets[scenes[i-1].ID].EndImage
		if start != prevEnd {
			t.Fatalf("scene %s start image is not its predecessor's end image reference", scenes[i].ID)
		}
	}

	// Scene 1's start frame is its own generated asset, not a shared one.
	if state.Assets["scene_1"].StartImage == state.Assets["scene_1"].EndImage {
		t.Fatal("first scene start and end frames should be distinct references")
	}

	for _, call := range f.videoGen.calls {
		if call.StartImagePath == "" || call.EndImagePath == "" {
			t.Fatalf("video request missing image path: %+v", call)
		}
	}
}

func TestConcatenationOrderIndependentOfCompletionOrder(t *testing.T) {
	f := newFixture()
	// Make the first scene finish last.
	f.videoGen.delays["video-1"] = 60 * time.Millisecond
	f.videoGen.delays["video-2"] = 20 * time.Millisecond
	f.seedSession(t, "session-order")

	if _, err := f.produce(t, "session-order"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"session-order/videos/scene_1.mp4",
		"session-order/videos/scene_2.mp4",
		"session-order/videos/scene_3.mp4",
	}
	got := f.concatenator.calls[0]
	if len(got) != len(want) {
		t.Fatalf("concatenation received %d paths, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("concatenation path %d = %s, want %s (must follow order index, not completion order)",
				i, got[i], want[i])
		}
	}
}

func TestPartialImageFailureKeepsSiblings(t *testing.T) {
	f := newFixture()
	f.imageGen.failing["end-2"] = domain.NewPermanent("prompt rejected", nil)
	f.seedSession(t, "session-partial")

	_, err := f.produce(t, "session-partial")
	if err == nil {
		t.Fatal("expected phase error")
	}

	var phaseErr *domain.PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("expected PhaseError, got %T: %v", err, err)
	}
	if phaseErr.Phase != domain.ImagePhase {
		t.Fatalf("expected image phase failure, got %s", phaseErr.Phase)
	}
	if len(phaseErr.Failures) != 1 {
		t.Fatalf("scene_2 should be the sole failure, got %+v", phaseErr.Failures)
	}
	if phaseErr.Failures[0].SceneID != "scene_2" || phaseErr.Failures[0].Kind != domain.EndImageAsset {
		t.Fatalf("wrong failed unit: %+v", phaseErr.Failures[0])
	}

	if f.videoGen.callCount() != 0 {
		t.Fatal("video phase must not start when the image phase is incomplete")
	}

	state, loadErr := f.store.Load(context.Background(), "session-partial")
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if state.Status != domain.StatusFailed {
		t.Fatalf("halted run must persist failed status, got %s", state.Status)
	}
	if !state.CanResume() {
		t.Fatal("a failed run must stay resumable")
	}
	if state.Assets["scene_1"].EndImage == nil || state.Assets["scene_1"].StartImage == nil {
		t.Fatal("scene_1 successes must remain persisted")
	}
	if state.Assets["scene_3"].EndImage == nil {
		t.Fatal("scene_3 success must remain persisted")
	}
	if len(state.Errors) != 1 || state.Errors[0].SceneID != "scene_2" || state.Errors[0].Phase != domain.ImagePhase {
		t.Fatalf("state errors should name scene_2 in the image phase: %+v", state.Errors)
	}
}

func TestResumeRequestsOnlyMissingUnits(t *testing.T) {
	f := newFixture()
	state := f.seedSession(t, "session-resume")

	// Simulate a run interrupted mid image phase: scene_1 fully done,
	// scene_2 end frame done, scene_3 outstanding.
	state.SetStatus(domain.StatusImagesPending)
	for _, done := range []struct {
		sceneID string
		kind    domain.AssetKind
	}{
		{"scene_1", domain.StartImageAsset},
		{"scene_1", domain.EndImageAsset},
		{"scene_2", domain.EndImageAsset},
	} {
		ref, err := f.assetStore.SaveImage(context.Background(), "session-resume", done.sceneID, done.kind, []byte("seeded"))
		if err != nil {
			t.Fatal(err)
		}
		state.SceneAssets(done.sceneID).SetRef(done.kind, ref)
	}
	if err := f.store.Save(context.Background(), state); err != nil {
		t.Fatal(err)
	}

	if _, err := f.produce(t, "session-resume"); err != nil {
		t.Fatal("resume failed:", err)
	}

	if got := f.imageGen.callCount(); got != 1 {
		t.Fatalf("resume should request only scene_3's end frame, got %d image requests", got)
	}
	if f.imageGen.calls[0] != "end-3" {
		t.Fatalf("resume requested %q, want end-3", f.imageGen.calls[0])
	}

	reloaded, err := f.store.Load(context.Background(), "session-resume")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != domain.StatusCompleted {
		t.Fatalf("resumed run should complete, got %s", reloaded.Status)
	}
}

func TestResumeAfterImagesSkipsImagePhase(t *testing.T) {
	f := newFixture()
	f.seedSession(t, "session-skip")

	// First run completes everything.
	if _, err := f.produce(t, "session-skip"); err != nil {
		t.Fatal(err)
	}

	// A completed session is not re-runnable.
	_, err := f.produce(t, "session-skip")
	if err == nil || !domain.IsInvalidArgument(err) {
		t.Fatalf("expected invalid_argument for completed session, got %v", err)
	}
	if got := f.imageGen.callCount(); got != 4 {
		t.Fatalf("no additional generation expected, got %d image calls", got)
	}
}

func TestProduceUnknownSession(t *testing.T) {
	f := newFixture()

	_, err := f.produce(t, "missing-session")
	if err == nil || !domain.IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestConcatenationFailureIsTerminal(t *testing.T) {
	f := newFixture()
	f.concatenator.err = domain.NewConcatenation("ffmpeg binary not found", nil)
	f.seedSession(t, "session-concat-fail")

	_, err := f.produce(t, "session-concat-fail")
	if err == nil || domain.KindOf(err) != domain.ConcatenationKind {
		t.Fatalf("expected concatenation error, got %v", err)
	}
	if len(f.concatenator.calls) != 1 {
		t.Fatalf("concatenation must not be retried automatically, got %d calls", len(f.concatenator.calls))
	}

	state, loadErr := f.store.Load(context.Background(), "session-concat-fail")
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if state.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", state.Status)
	}
	if len(state.Errors) == 0 || state.Errors[len(state.Errors)-1].Phase != domain.ConcatenationPhase {
		t.Fatalf("concatenation error should be preserved in state: %+v", state.Errors)
	}
}

func TestAbortDrainsInFlightUnitAndPersistsIt(t *testing.T) {
	f := newFixture()
	f.imageGen.blockFirst = true
	f.imageGen.started = make(chan string)
	f.imageGen.release = make(chan struct{})

	// One image slot, so exactly one unit is in flight when the run is
	// aborted and every other unit is still waiting on the semaphore.
	orchestrator := NewProductionOrchestrator(nopLogger{}, goroutineDispatcher{},
		f.imageGen, f.videoGen, f.concatenator, f.assetStore, f.store,
		NewRetryPolicy(1, time.Millisecond),
		OrchestratorConfig{ImageConcurrency: 1, VideoConcurrency: 1})

	f.seedSession(t, "session-abort")

	ctx, cancel := context.WithCancel(context.Background())
	events, errCh := orchestrator.Produce(ctx, inbound.ProduceParams{SessionID: "session-abort"})
	go func() {
		for range events {
		}
	}()

	inFlight := <-f.imageGen.started

	// Abort while the unit holds the slot: the waiting units observe the
	// cancellation before the slot ever frees up, then the in-flight call is
	// allowed to finish on its detached context.
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(f.imageGen.release)

	var runErr error
	for err := range errCh {
		runErr = err
	}

	var phaseErr *domain.PhaseError
	if !errors.As(runErr, &phaseErr) {
		t.Fatalf("expected PhaseError, got %v", runErr)
	}
	if len(phaseErr.Failures) != 3 {
		t.Fatalf("the 3 undispatched units should fail, got %+v", phaseErr.Failures)
	}

	if got := f.imageGen.callCount(); got != 1 {
		t.Fatalf("aborted run must not dispatch new units, got %d generator calls", got)
	}

	state, err := f.store.Load(context.Background(), "session-abort")
	if err != nil {
		t.Fatal(err)
	}

	units := map[string]struct {
		sceneID string
		kind    domain.AssetKind
	}{
		"start-1": {"scene_1", domain.StartImageAsset},
		"end-1":   {"scene_1", domain.EndImageAsset},
		"end-2":   {"scene_2", domain.EndImageAsset},
		"end-3":   {"scene_3", domain.EndImageAsset},
	}

	done, ok := units[inFlight]
	if !ok {
		t.Fatalf("unexpected in-flight prompt %q", inFlight)
	}
	if state.SceneAssets(done.sceneID).Ref(done.kind) == nil {
		t.Fatalf("in-flight unit %s/%s must be persisted after abort", done.sceneID, done.kind)
	}
	for prompt, unit := range units {
		if prompt == inFlight {
			continue
		}
		if state.SceneAssets(unit.sceneID).Ref(unit.kind) != nil {
			t.Fatalf("unit %s/%s was never dispatched but has an asset", unit.sceneID, unit.kind)
		}
	}
	if state.Status != domain.StatusFailed {
		t.Fatalf("aborted run should persist failed status, got %s", state.Status)
	}
}

func TestTransientImageFailureIsRetried(t *testing.T) {
	f := newFixture()
	f.imageGen.failOnce["end-3"] = domain.NewTransient("rate limited", nil)
	f.seedSession(t, "session-retry")

	if _, err := f.produce(t, "session-retry"); err != nil {
		t.Fatal("expected retry to recover the transient failure:", err)
	}

	retried := 0
	for _, prompt := range f.imageGen.calls {
		if prompt == "end-3" {
			retried++
		}
	}
	if retried != 2 {
		t.Fatalf("expected 2 attempts for end-3, got %d", retried)
	}

	state, err := f.store.Load(context.Background(), "session-retry")
	if err != nil {
		t.Fatal(err)
	}
	if state.Status != domain.StatusCompleted {
		t.Fatalf("expected completed after retry, got %s", state.Status)
	}
}
