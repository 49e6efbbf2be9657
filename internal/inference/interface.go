package inference

import "context"

// Inferrer defines the contract for obtaining raw model text for a prompt
type Inferrer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}
