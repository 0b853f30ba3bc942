package adapters

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

type ffmpegVideoEncoder struct {
	logger outbound.LoggerPort
}

func NewFFMPEGVideoEncoder(logger outbound.LoggerPort) outbound.VideoEncoderPort {
	return &ffmpegVideoEncoder{
		logger: logger,
	}
}

func (v *ffmpegVideoEncoder) Assemble(ctx context.Context, req outbound.AssembleVideoRequest) (*outbound.AssembleVideoResponse, error) {
	// The still image is held for the full narration length; scaling pads to
	// the requested resolution without distorting the source aspect ratio.
	scaleFilter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		req.Resolution.Width, req.Resolution.Height, req.Resolution.Width, req.Resolution.Height)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-loop", "1",
		"-i", req.ImageFileName,
		"-i", req.AudioFileName,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-vf", scaleFilter,
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		req.OutputFileName)

	out, err := cmd.CombinedOutput()
	if err != nil {
		v.logger.ErrorWithFields(err, "error creating video", map[string]interface{}{
			"output": string(out),
		})
		return nil, domain.Encoding(fmt.Errorf("ffmpeg: %w", err))
	}

	duration, err := v.getMediaDuration(ctx, req.OutputFileName)
	if err != nil {
		v.logger.Error(err, "error getting video duration")
		return nil, domain.Encoding(err)
	}

	return &outbound.AssembleVideoResponse{
		FileName: req.OutputFileName,
		Duration: duration,
	}, nil
}

func (v *ffmpegVideoEncoder) getMediaDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse media duration: %w", err)
	}

	return duration, nil
}
