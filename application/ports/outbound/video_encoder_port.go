package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type AssembleVideoRequest struct {
	ImageFileName  string
	AudioFileName  string
	Resolution     domain.Resolution
	OutputFileName string
}

type AssembleVideoResponse struct {
	FileName string
	Duration float64
}

type VideoEncoderPort interface {
	Assemble(ctx context.Context, req AssembleVideoRequest) (*AssembleVideoResponse, error)
}
