package oracle

import "context"

// FakeClient returns a canned response for offline runs and tests.
type FakeClient struct {
	// Response is returned verbatim from Complete.
	Response string
	// Err, if set, is returned instead.
	Err error

	// Prompts records every prompt passed to Complete, in order.
	Prompts []string
}

func NewFakeClient(response string) *FakeClient {
	return &FakeClient{Response: response}
}

func (f *FakeClient) Name() string { return "FakeOracle" }

func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}
