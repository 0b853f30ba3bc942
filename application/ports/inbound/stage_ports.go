package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type StoryStagePort interface {
	Generate(ctx context.Context, topic string, workDir string) (domain.StoryArtifact, error)
}

type ImageStagePort interface {
	Generate(ctx context.Context, story domain.StoryArtifact, workDir string) (domain.ImageArtifact, error)
}

type NarrationStagePort interface {
	Synthesize(ctx context.Context, story domain.StoryArtifact, workDir string) (domain.AudioArtifact, error)
}

type AssemblyStagePort interface {
	Assemble(ctx context.Context, image domain.ImageArtifact, audio domain.AudioArtifact, workDir string) (domain.VideoArtifact, error)
}
