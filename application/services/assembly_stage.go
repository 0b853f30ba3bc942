package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/application/retry"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

const assembledFileName = "assembled.mp4"

type assemblyStage struct {
	logger         outbound.LoggerPort
	videoEncoder   outbound.VideoEncoderPort
	pipelineConfig *config.PipelineConfig
	retryPolicy    retry.Policy
}

func NewAssemblyStage(logger outbound.LoggerPort, videoEncoder outbound.VideoEncoderPort,
	pipelineConfig *config.PipelineConfig, retryPolicy retry.Policy) inbound.AssemblyStagePort {
	return &assemblyStage{
		logger:         logger,
		videoEncoder:   videoEncoder,
		pipelineConfig: pipelineConfig,
		retryPolicy:    retryPolicy,
	}
}

// Assemble encodes into a temp path inside the working directory; the final
// placement into the output directory is the orchestrator's atomic rename, so
// a crash mid-encode never leaves a corrupt file at the final path.
func (s *assemblyStage) Assemble(ctx context.Context, image domain.ImageArtifact, audio domain.AudioArtifact, workDir string) (domain.VideoArtifact, error) {
	if err := s.validateInputs(image, audio); err != nil {
		return domain.VideoArtifact{}, err
	}

	maxLength := s.pipelineConfig.MaxVideoLength + s.pipelineConfig.DurationTolerance
	if s.pipelineConfig.MaxVideoLength > 0 && audio.Duration > maxLength {
		return domain.VideoArtifact{}, domain.Encoding(fmt.Errorf(
			"narration duration %s exceeds maximum video length %s (tolerance %s)",
			audio.Duration, s.pipelineConfig.MaxVideoLength, s.pipelineConfig.DurationTolerance))
	}

	outputFile := filepath.Join(workDir, assembledFileName)

	response, err := retry.Do(ctx, s.retryPolicy, s.logger, func(ctx context.Context) (*outbound.AssembleVideoResponse, error) {
		return s.videoEncoder.Assemble(ctx, outbound.AssembleVideoRequest{
			ImageFileName:  image.FileName,
			AudioFileName:  audio.FileName,
			Resolution:     s.pipelineConfig.OutputResolution,
			OutputFileName: outputFile,
		})
	})
	if err != nil {
		return domain.VideoArtifact{}, err
	}

	duration := time.Duration(response.Duration * float64(time.Second))
	s.logger.InfoWithFields("Assembled video", map[string]interface{}{
		"file":     response.FileName,
		"duration": duration.String(),
	})

	return domain.VideoArtifact{
		FileName:   response.FileName,
		Resolution: s.pipelineConfig.OutputResolution,
		Duration:   duration,
	}, nil
}

func (s *assemblyStage) validateInputs(image domain.ImageArtifact, audio domain.AudioArtifact) error {
	for _, input := range []struct {
		name string
		file string
	}{
		{"image", image.FileName},
		{"audio", audio.FileName},
	} {
		info, err := os.Stat(input.file)
		if err != nil {
			return domain.Encoding(fmt.Errorf("%s file not found: %s", input.name, input.file))
		}
		if info.Size() == 0 {
			return domain.Encoding(fmt.Errorf("%s file is empty: %s", input.name, input.file))
		}
	}
	return nil
}
