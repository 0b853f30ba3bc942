package outbound

import (
	"context"
	"time"
)

type SpeechSynthesizerPort interface {
	// Synthesize converts text to narration audio and reports its duration.
	Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error)
	// MaxInputLength is the longest text, in runes, that a single Synthesize
	// call accepts. Zero means unbounded.
	MaxInputLength() int
}
