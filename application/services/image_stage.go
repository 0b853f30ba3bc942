package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/application/retry"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

const ImageFileName = "generated_image.png"

const (
	imagePromptBase   = "Create a modern, minimalist scene with dramatic lighting and shadows. "
	imagePromptStyle  = "Style: Cinematic digital art, muted colors with strong accents, clean lines. "
	imagePromptSafety = "Focus on atmosphere. Avoid explicit horror or disturbing imagery. Keep it subtle and psychological."
)

type imageStage struct {
	logger         outbound.LoggerPort
	imageGenerator outbound.ImageGeneratorPort
	pipelineConfig *config.PipelineConfig
	retryPolicy    retry.Policy
}

func NewImageStage(logger outbound.LoggerPort, imageGenerator outbound.ImageGeneratorPort,
	pipelineConfig *config.PipelineConfig, retryPolicy retry.Policy) inbound.ImageStagePort {
	return &imageStage{
		logger:         logger,
		imageGenerator: imageGenerator,
		pipelineConfig: pipelineConfig,
		retryPolicy:    retryPolicy,
	}
}

func (s *imageStage) Generate(ctx context.Context, story domain.StoryArtifact, workDir string) (domain.ImageArtifact, error) {
	prompt := BuildImagePrompt(story.Text, s.pipelineConfig.ImagePromptExcerptChars)

	content, err := retry.Do(ctx, s.retryPolicy, s.logger, func(ctx context.Context) ([]byte, error) {
		return s.imageGenerator.Generate(ctx, prompt, s.pipelineConfig.OutputResolution)
	})
	if err != nil {
		return domain.ImageArtifact{}, err
	}
	if len(content) == 0 {
		return domain.ImageArtifact{}, domain.Permanent(fmt.Errorf("image generator returned no bytes"))
	}

	imageFile := filepath.Join(workDir, ImageFileName)
	if err := os.WriteFile(imageFile, content, 0644); err != nil {
		s.logger.Error(err, "Failed to save the generated image")
		return domain.ImageArtifact{}, domain.Permanent(err)
	}

	s.logger.InfoWithFields("Generated image", map[string]interface{}{
		"bytes": len(content),
		"file":  imageFile,
	})

	return domain.ImageArtifact{
		FileName: imageFile,
		Prompt:   prompt,
	}, nil
}

// BuildImagePrompt derives the image prompt from the story text. It is a pure
// function of its inputs: the same story excerpt always produces the same
// prompt.
func BuildImagePrompt(storyText string, excerptChars int) string {
	excerpt := storyText
	if runes := []rune(storyText); excerptChars > 0 && len(runes) > excerptChars {
		excerpt = string(runes[:excerptChars])
	}
	return fmt.Sprintf("%s%sScene showing: %s. %s", imagePromptBase, imagePromptStyle, excerpt, imagePromptSafety)
}
