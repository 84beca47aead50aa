// Package oracle abstracts the external reasoning service that turns a
// serialized policy + calendar snapshot into scheduling suggestions.
// The pipeline only depends on the Client interface; the production
// implementation is a thin wrapper over the Gemini API.
package oracle

import "context"

// Client is the suggestion oracle collaborator: one blocking
// request/response round-trip, free text in, free text out.
type Client interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}
