package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type ImageGeneratorPort interface {
	Generate(ctx context.Context, prompt string, resolution domain.Resolution) ([]byte, error)
}
