package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type PipelineOrchestratorPort interface {
	// Run drives one full story-to-video pipeline and always returns a
	// terminal RunResult: a finished video or the first stage failure.
	Run(ctx context.Context, topic string) domain.RunResult
}
