package llm

import (
	"context"
	"time"
)

// WithTimeout returns a Provider that bounds every call to p by d. A
// non-positive d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: d}
}

type timeoutProvider struct {
	Provider
	timeout time.Duration
}

func (t *timeoutProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Chat(ctx, messages, opts)
}

func (t *timeoutProvider) Heartbeat(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Heartbeat(ctx)
}

func (t *timeoutProvider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.ModelAvailable(ctx, model)
}
