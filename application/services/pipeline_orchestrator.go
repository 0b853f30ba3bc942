package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type pipelineOrchestrator struct {
	logger         outbound.LoggerPort
	pipelineConfig *config.PipelineConfig
	storyStage     inbound.StoryStagePort
	imageStage     inbound.ImageStagePort
	narrationStage inbound.NarrationStagePort
	assemblyStage  inbound.AssemblyStagePort
	// videoPublisher is optional; nil disables post-placement upload.
	videoPublisher outbound.VideoPublisherPort
	slugRegexp     *regexp.Regexp
}

func NewPipelineOrchestrator(logger outbound.LoggerPort, pipelineConfig *config.PipelineConfig,
	storyStage inbound.StoryStagePort, imageStage inbound.ImageStagePort,
	narrationStage inbound.NarrationStagePort, assemblyStage inbound.AssemblyStagePort,
	videoPublisher outbound.VideoPublisherPort) inbound.PipelineOrchestratorPort {
	return &pipelineOrchestrator{
		logger:         logger,
		pipelineConfig: pipelineConfig,
		storyStage:     storyStage,
		imageStage:     imageStage,
		narrationStage: narrationStage,
		assemblyStage:  assemblyStage,
		videoPublisher: videoPublisher,
		slugRegexp:     regexp.MustCompile(`[^a-z0-9]+`),
	}
}

func (p *pipelineOrchestrator) Run(ctx context.Context, topic string) domain.RunResult {
	startedAt := time.Now()
	runID := fmt.Sprintf("%s-%s", startedAt.Format("20060102-150405"), uuid.NewString()[:8])
	workDir := filepath.Join(p.pipelineConfig.WorkDir, runID)

	state := domain.StateIdle

	fail := func(stage domain.Stage, err error) domain.RunResult {
		state = domain.StateFailed
		p.logger.ErrorWithFields(err, "Pipeline run failed", map[string]interface{}{
			"run_id": runID,
			"stage":  string(stage),
			"kind":   string(domain.KindOf(err)),
		})
		p.disposeWorkDir(workDir, false)
		return domain.Failed(stage, err)
	}

	advance := func(to domain.RunState) error {
		if err := ctx.Err(); err != nil {
			return domain.Cancelled(err)
		}
		if err := domain.Transition(state, to); err != nil {
			return domain.Permanent(err)
		}
		state = to
		p.logger.InfoWithFields("Run state transition", map[string]interface{}{
			"run_id": runID,
			"state":  string(to),
		})
		return nil
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fail(domain.StoryStage, domain.Permanent(fmt.Errorf("create working directory: %w", err)))
	}

	if err := advance(domain.StateStorying); err != nil {
		return fail(domain.StoryStage, err)
	}
	story, err := p.storyStage.Generate(ctx, topic, workDir)
	if err != nil {
		return fail(domain.StoryStage, err)
	}

	if err := advance(domain.StateImaging); err != nil {
		return fail(domain.ImageStage, err)
	}
	image, err := p.imageStage.Generate(ctx, story, workDir)
	if err != nil {
		return fail(domain.ImageStage, err)
	}

	if err := advance(domain.StateNarrating); err != nil {
		return fail(domain.NarrationStage, err)
	}
	audio, err := p.narrationStage.Synthesize(ctx, story, workDir)
	if err != nil {
		return fail(domain.NarrationStage, err)
	}

	if err := advance(domain.StateAssembling); err != nil {
		return fail(domain.AssemblyStage, err)
	}
	video, err := p.assemblyStage.Assemble(ctx, image, audio, workDir)
	if err != nil {
		return fail(domain.AssemblyStage, err)
	}

	finalVideo, err := p.placeVideo(video, topic, startedAt)
	if err != nil {
		return fail(domain.AssemblyStage, err)
	}

	if err := advance(domain.StateDone); err != nil {
		// Placement already happened, but a failed run must leave the
		// output directory empty.
		if removeErr := os.Remove(finalVideo.FileName); removeErr != nil {
			p.logger.Error(removeErr, "Failed to remove placed video after aborted run")
		}
		return fail(domain.AssemblyStage, err)
	}

	p.publish(ctx, &finalVideo, runID)
	p.disposeWorkDir(workDir, true)

	p.logger.InfoWithFields("Pipeline run complete", map[string]interface{}{
		"run_id":   runID,
		"video":    finalVideo.FileName,
		"duration": finalVideo.Duration.String(),
		"elapsed":  time.Since(startedAt).String(),
	})

	return domain.Success(finalVideo)
}

// placeVideo moves the assembled file into the output directory under its
// deterministic final name. Rename is atomic on the same filesystem, so the
// output directory only ever holds complete videos.
func (p *pipelineOrchestrator) placeVideo(video domain.VideoArtifact, topic string, startedAt time.Time) (domain.VideoArtifact, error) {
	if err := os.MkdirAll(p.pipelineConfig.OutputDir, 0755); err != nil {
		return domain.VideoArtifact{}, domain.Permanent(fmt.Errorf("create output directory: %w", err))
	}

	finalName := fmt.Sprintf("story_%s_%s.mp4", startedAt.Format("20060102_150405"), p.slugify(topic))
	finalPath := filepath.Join(p.pipelineConfig.OutputDir, finalName)

	if err := os.Rename(video.FileName, finalPath); err != nil {
		return domain.VideoArtifact{}, domain.Encoding(fmt.Errorf("place video into output directory: %w", err))
	}

	video.FileName = finalPath
	return video, nil
}

func (p *pipelineOrchestrator) publish(ctx context.Context, video *domain.VideoArtifact, runID string) {
	if p.videoPublisher == nil {
		return
	}

	// The local video is already the terminal artifact; a failed upload is
	// reported but does not fail the run.
	response, err := p.videoPublisher.Publish(ctx, outbound.PublishVideoRequest{
		VideoFileName: video.FileName,
		RunID:         runID,
	})
	if err != nil {
		p.logger.Warn("Failed to publish finished video: " + err.Error())
		return
	}

	video.PublishedKey = response.VideoKey
	p.logger.InfoWithFields("Published finished video", map[string]interface{}{
		"key":    response.VideoKey,
		"region": response.StoreRegion,
	})
}

func (p *pipelineOrchestrator) disposeWorkDir(workDir string, success bool) {
	if p.pipelineConfig.KeepIntermediates {
		p.logger.InfoWithFields("Keeping intermediate artifacts", map[string]interface{}{
			"work_dir": workDir,
			"success":  success,
		})
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		p.logger.Error(err, "Failed to remove working directory")
	}
}

func (p *pipelineOrchestrator) slugify(topic string) string {
	slug := p.slugRegexp.ReplaceAllString(strings.ToLower(topic), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
