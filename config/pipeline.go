package config

import (
	"fmt"
	"time"

	"generate-video-pipeline/domain"
)

type PipelineConfig struct {
	OutputDir string
	WorkDir   string

	OutputResolution domain.Resolution
	MaxVideoLength   time.Duration
	// DurationTolerance is the slack allowed between narration length and
	// MaxVideoLength before assembly refuses the run.
	DurationTolerance time.Duration

	// MaxStoryChars bounds the narrated text; longer generations are
	// truncated at a sentence boundary.
	MaxStoryChars int
	// ImagePromptExcerptChars is how much of the story feeds the image prompt.
	ImagePromptExcerptChars int

	MaxRetries    int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration

	// KeepIntermediates leaves the per-run working directory in place after
	// the run, successful or not, for debugging.
	KeepIntermediates bool
}

func GetPipelineConfig() (*PipelineConfig, error) {
	resolution, err := parseResolution(envString("OUTPUT_RESOLUTION", "1024x1024"))
	if err != nil {
		return nil, err
	}

	maxVideoLength, err := envDuration("MAX_VIDEO_LENGTH", 180*time.Second)
	if err != nil {
		return nil, err
	}
	durationTolerance, err := envDuration("DURATION_TOLERANCE", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	maxStoryChars, err := envInt("MAX_STORY_CHARS", 2200)
	if err != nil {
		return nil, err
	}
	maxRetries, err := envInt("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retryDelay, err := envDuration("RETRY_DELAY", 5*time.Second)
	if err != nil {
		return nil, err
	}
	retryMaxDelay, err := envDuration("RETRY_MAX_DELAY", 60*time.Second)
	if err != nil {
		return nil, err
	}
	keepIntermediates, err := envBool("KEEP_INTERMEDIATES", false)
	if err != nil {
		return nil, err
	}

	return &PipelineConfig{
		OutputDir:               envString("OUTPUT_DIR", "output"),
		WorkDir:                 envString("WORK_DIR", "temp"),
		OutputResolution:        resolution,
		MaxVideoLength:          maxVideoLength,
		DurationTolerance:       durationTolerance,
		MaxStoryChars:           maxStoryChars,
		ImagePromptExcerptChars: 200,
		MaxRetries:              maxRetries,
		RetryDelay:              retryDelay,
		RetryMaxDelay:           retryMaxDelay,
		KeepIntermediates:       keepIntermediates,
	}, nil
}

func parseResolution(raw string) (domain.Resolution, error) {
	var res domain.Resolution
	if _, err := fmt.Sscanf(raw, "%dx%d", &res.Width, &res.Height); err != nil {
		return domain.Resolution{}, fmt.Errorf("parse OUTPUT_RESOLUTION %q: %w", raw, err)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return domain.Resolution{}, fmt.Errorf("invalid OUTPUT_RESOLUTION %q", raw)
	}
	return res, nil
}
