package imagegen

import "context"

// Provider turns a text prompt into an image, returned as a data URL
// ready for the clients to render. A nil error with empty output is not
// allowed; failures must be explicit so the game can enter its error
// phase.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
