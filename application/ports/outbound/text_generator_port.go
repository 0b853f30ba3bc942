package outbound

import "context"

type TextGeneratorPort interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
