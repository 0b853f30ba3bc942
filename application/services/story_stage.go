package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/application/retry"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

const StoryFileName = "generated_story.txt"

type storyStage struct {
	logger         outbound.LoggerPort
	textGenerator  outbound.TextGeneratorPort
	pipelineConfig *config.PipelineConfig
	retryPolicy    retry.Policy
	thinkRegexp    *regexp.Regexp
	markupRegexp   *regexp.Regexp
	spaceRegexp    *regexp.Regexp
}

func NewStoryStage(logger outbound.LoggerPort, textGenerator outbound.TextGeneratorPort,
	pipelineConfig *config.PipelineConfig, retryPolicy retry.Policy) inbound.StoryStagePort {
	return &storyStage{
		logger:         logger,
		textGenerator:  textGenerator,
		pipelineConfig: pipelineConfig,
		retryPolicy:    retryPolicy,
		thinkRegexp:    regexp.MustCompile(`(?s)<think>.*?</think>`),
		markupRegexp:   regexp.MustCompile(`<[^>]+>`),
		spaceRegexp:    regexp.MustCompile(`\s+`),
	}
}

func (s *storyStage) Generate(ctx context.Context, topic string, workDir string) (domain.StoryArtifact, error) {
	text, err := retry.Do(ctx, s.retryPolicy, s.logger, func(ctx context.Context) (string, error) {
		raw, err := s.textGenerator.Generate(ctx, s.buildPrompt(topic))
		if err != nil {
			return "", err
		}
		cleaned := s.cleanStory(raw)
		if cleaned == "" {
			// Regenerating with the same input is expected to produce the
			// same empty result, so this is not retried.
			return "", domain.EmptyGeneration(fmt.Errorf("text generator returned an empty story"))
		}
		return cleaned, nil
	})
	if err != nil {
		return domain.StoryArtifact{}, err
	}

	if truncated := s.truncateAtSentence(text); truncated != text {
		s.logger.InfoWithFields("Truncated over-length story at sentence boundary", map[string]interface{}{
			"original_chars":  len([]rune(text)),
			"truncated_chars": len([]rune(truncated)),
		})
		text = truncated
	}

	storyFile := filepath.Join(workDir, StoryFileName)
	if err := os.WriteFile(storyFile, []byte(text), 0644); err != nil {
		s.logger.Error(err, "Failed to save the story text")
		return domain.StoryArtifact{}, domain.Permanent(err)
	}

	s.logger.InfoWithFields("Generated story", map[string]interface{}{
		"chars": len(text),
		"file":  storyFile,
	})

	return domain.StoryArtifact{
		Topic:       topic,
		Text:        text,
		FileName:    storyFile,
		GeneratedAt: time.Now(),
	}, nil
}

func (s *storyStage) buildPrompt(topic string) string {
	premise := "of your own choosing"
	if strings.TrimSpace(topic) != "" {
		premise = fmt.Sprintf("about: %s", topic)
	}

	return fmt.Sprintf("Create a short, suspenseful story %s suitable for video narration. The story should:\n"+
		"- Be concise (fitting within %.0f seconds when read aloud)\n"+
		"- Have a clear beginning, middle, and end\n"+
		"- Build tension through atmosphere rather than violence\n"+
		"- End with an unsettling twist\n"+
		"- Be between 200-250 words\n\n"+
		"Format the response as a single cohesive story, without any additional commentary.\n"+
		"Avoid gore, explicit violence, or extreme horror - focus on psychological tension.",
		premise, s.pipelineConfig.MaxVideoLength.Seconds())
}

func (s *storyStage) cleanStory(text string) string {
	result := s.thinkRegexp.ReplaceAllString(text, "")
	result = s.markupRegexp.ReplaceAllString(result, "")
	result = s.spaceRegexp.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// truncateAtSentence cuts text at the last sentence boundary at or below the
// configured maximum, keeping the downstream narration duration bounded. Text
// without any boundary inside the limit is hard-cut.
func (s *storyStage) truncateAtSentence(text string) string {
	maxChars := s.pipelineConfig.MaxStoryChars
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}

	window := runes[:maxChars]
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return strings.TrimSpace(string(window[:i+1]))
		}
	}
	return strings.TrimSpace(string(window))
}
