package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
	"generate-video-pipeline/infrastructure/adapters"
)

// fixedSynthesizer returns a constant payload per call so the narration
// duration is fully deterministic.
type fixedSynthesizer struct {
	payload  []byte
	duration time.Duration
	calls    int
	onCall   func()
}

func (s *fixedSynthesizer) MaxInputLength() int { return 0 }

func (s *fixedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, domain.Cancelled(err)
	}
	return s.payload, s.duration, nil
}

type stagesUnderTest struct {
	cfg       *config.PipelineConfig
	textGen   *stubTextGenerator
	imageGen  *stubImageGenerator
	synth     *fixedSynthesizer
	encoder   *stubVideoEncoder
	publisher *stubPublisher
}

type stubPublisher struct {
	calls   int
	lastReq outbound.PublishVideoRequest
}

func (s *stubPublisher) Publish(ctx context.Context, req outbound.PublishVideoRequest) (*outbound.PublishVideoResponse, error) {
	s.calls++
	s.lastReq = req
	return &outbound.PublishVideoResponse{VideoKey: "videos/" + req.RunID, StoreRegion: "us-east-1"}, nil
}

func newOrchestratorUnderTest(t *testing.T, fixture *stagesUnderTest) inbound.PipelineOrchestratorPort {
	t.Helper()
	logger := adapters.NewZerologWrapper()
	policy := testRetryPolicy()

	storyStage := NewStoryStage(logger, fixture.textGen, fixture.cfg, policy)
	imageStage := NewImageStage(logger, fixture.imageGen, fixture.cfg, policy)
	narrationStage := NewNarrationStage(logger, fixture.synth, newTestPool(t), policy)
	assemblyStage := NewAssemblyStage(logger, fixture.encoder, fixture.cfg, policy)

	var publisher outbound.VideoPublisherPort
	if fixture.publisher != nil {
		publisher = fixture.publisher
	}

	return NewPipelineOrchestrator(logger, fixture.cfg,
		storyStage, imageStage, narrationStage, assemblyStage, publisher)
}

func defaultFixture(t *testing.T) *stagesUnderTest {
	t.Helper()
	return &stagesUnderTest{
		cfg:      testPipelineConfig(t),
		textGen:  &stubTextGenerator{responses: []string{"The keeper climbed the stairs one last time. The lamp went out."}},
		imageGen: &stubImageGenerator{content: []byte("png-bytes")},
		synth:    &fixedSynthesizer{payload: make([]byte, 1200), duration: 12 * time.Second},
		encoder:  &stubVideoEncoder{},
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestPipelineOrchestrator_EndToEndSuccess(t *testing.T) {
	fixture := defaultFixture(t)
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(context.Background(), "a lighthouse keeper's last night")
	if !result.Succeeded() {
		t.Fatal("expected success, got:", result.Failure)
	}

	video := result.Video
	if _, err := os.Stat(video.FileName); err != nil {
		t.Fatal("final video missing from output directory:", err)
	}

	files := listFiles(t, fixture.cfg.OutputDir)
	if len(files) != 1 {
		t.Fatalf("output directory should hold exactly the finished video, got %v", files)
	}
	if !strings.HasPrefix(files[0], "story_") || !strings.Contains(files[0], "a-lighthouse-keeper-s-last-night") {
		t.Errorf("unexpected final video name: %q", files[0])
	}

	// The encoder stub derives duration from the narration file, so the
	// video duration must match the stubbed audio duration exactly.
	if video.Duration != 12*time.Second {
		t.Errorf("video duration %v should equal the stubbed audio duration", video.Duration)
	}

	if _, err := os.Stat(fixture.cfg.WorkDir); !os.IsNotExist(err) {
		entries := listFiles(t, fixture.cfg.WorkDir)
		if len(entries) != 0 {
			t.Errorf("working directory should be purged on success, found %v", entries)
		}
	}
}

func TestPipelineOrchestrator_KeepIntermediates(t *testing.T) {
	fixture := defaultFixture(t)
	fixture.cfg.KeepIntermediates = true
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(context.Background(), "retention check")
	if !result.Succeeded() {
		t.Fatal("expected success, got:", result.Failure)
	}

	runDirs := listFiles(t, fixture.cfg.WorkDir)
	if len(runDirs) != 1 {
		t.Fatalf("expected the run working directory to survive, got %v", runDirs)
	}
}

func TestPipelineOrchestrator_ImageRejectionLeavesOutputUntouched(t *testing.T) {
	fixture := defaultFixture(t)
	fixture.imageGen.err = domain.ContentRejected(errors.New("unsafe prompt"))
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(context.Background(), "rejected run")
	if result.Succeeded() {
		t.Fatal("expected failure")
	}

	failure := result.Failure
	if failure.Stage != domain.ImageStage {
		t.Errorf("expected ImageStage failure, got %s", failure.Stage)
	}
	if failure.Kind != domain.KindContentRejected {
		t.Errorf("expected ContentRejected, got %s", failure.Kind)
	}

	if files := listFiles(t, fixture.cfg.OutputDir); len(files) != 0 {
		t.Errorf("output directory must stay empty on failure, found %v", files)
	}
	if fixture.encoder.calls != 0 {
		t.Error("assembly must not run after an earlier stage failure")
	}
}

func TestPipelineOrchestrator_CancellationDuringNarration(t *testing.T) {
	fixture := defaultFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	fixture.synth.onCall = cancel
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(ctx, "cancelled run")
	if result.Succeeded() {
		t.Fatal("expected failure")
	}

	failure := result.Failure
	if failure.Stage != domain.NarrationStage {
		t.Errorf("expected NarrationStage failure, got %s", failure.Stage)
	}
	if failure.Kind != domain.KindCancelled {
		t.Errorf("expected Cancelled, got %s", failure.Kind)
	}
	if fixture.encoder.calls != 0 {
		t.Error("assembly must not run after cancellation")
	}
	if files := listFiles(t, fixture.cfg.OutputDir); len(files) != 0 {
		t.Errorf("output directory must stay empty on cancellation, found %v", files)
	}
}

func TestPipelineOrchestrator_CancelDuringAssemblyKeepsOutputEmpty(t *testing.T) {
	fixture := defaultFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	// Interrupt arrives while the encode is in flight but the encoder still
	// finishes its file.
	fixture.encoder.onCall = cancel
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(ctx, "interrupted run")
	if result.Succeeded() {
		t.Fatal("expected failure")
	}

	failure := result.Failure
	if failure.Stage != domain.AssemblyStage {
		t.Errorf("expected AssemblyStage failure, got %s", failure.Stage)
	}
	if failure.Kind != domain.KindCancelled {
		t.Errorf("expected Cancelled, got %s", failure.Kind)
	}
	if files := listFiles(t, fixture.cfg.OutputDir); len(files) != 0 {
		t.Errorf("output directory must stay empty when the run is cancelled, found %v", files)
	}
}

func TestPipelineOrchestrator_PublishesWhenConfigured(t *testing.T) {
	fixture := defaultFixture(t)
	fixture.publisher = &stubPublisher{}
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(context.Background(), "published run")
	if !result.Succeeded() {
		t.Fatal("expected success, got:", result.Failure)
	}

	if fixture.publisher.calls != 1 {
		t.Fatalf("expected one publish call, got %d", fixture.publisher.calls)
	}
	if result.Video.PublishedKey == "" {
		t.Error("published key should be recorded on the artifact")
	}
	if fixture.publisher.lastReq.VideoFileName != result.Video.FileName {
		t.Error("publisher should receive the final video path")
	}
}

func TestPipelineOrchestrator_EmptyTopicStillSucceeds(t *testing.T) {
	fixture := defaultFixture(t)
	orchestrator := newOrchestratorUnderTest(t, fixture)

	result := orchestrator.Run(context.Background(), "")
	if !result.Succeeded() {
		t.Fatal("expected success, got:", result.Failure)
	}
	if !strings.Contains(result.Video.FileName, "untitled") {
		t.Errorf("empty topic should fall back to a default slug: %q", result.Video.FileName)
	}
}
