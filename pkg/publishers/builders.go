package publishers

import (
	"context"
	"fmt"
)

// Builder creates a Publisher from its config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps a publisher type to its constructor.
type Builders map[string]Builder

// DefaultBuilders knows every built-in publisher type.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// Build constructs the publisher for cfg.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	build, ok := b[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no publisher builder for type %q", cfg.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return build(ctx, cfg, ensureLogger(log))
}

// BuildAll constructs a publisher per config. On failure the publishers
// already built are closed.
func (b Builders) BuildAll(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			for _, built := range pubs {
				_ = built.Close()
			}
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
