package publishers

import (
	"context"
	"errors"
	"fmt"
)

// DeliveryError reports one publisher that failed to take an event.
type DeliveryError struct {
	ID   string
	Type string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s publisher %q: %v", e.Type, e.ID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Fanout hands each event to every configured publisher in turn.
type Fanout struct {
	pubs []Publisher
	log  Logger
}

// NewFanout drops nil publishers.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	f := &Fanout{log: ensureLogger(log)}
	for _, p := range pubs {
		if p != nil {
			f.pubs = append(f.pubs, p)
		}
	}
	return f
}

// Publish returns how many publishers accepted evt. Failures do not stop
// delivery to the rest and come back joined as *DeliveryError values.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil {
		return 0, nil
	}

	var errs []error
	for _, p := range f.pubs {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, &DeliveryError{ID: p.ID(), Type: p.Type(), Err: err})
			continue
		}
		f.log.InfoObj("change notification delivered", "delivery", map[string]string{
			"publisher_id":   p.ID(),
			"publisher_type": p.Type(),
		})
	}
	return len(f.pubs) - len(errs), errors.Join(errs...)
}

// Size is the number of publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.pubs)
}

// Close closes every publisher.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	errs := make([]error, 0, len(f.pubs))
	for _, p := range f.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, &DeliveryError{ID: p.ID(), Type: p.Type(), Err: fmt.Errorf("close: %w", err)})
		}
	}
	return errors.Join(errs...)
}
