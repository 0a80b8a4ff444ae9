package topics

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Next once the Subscription was closed
var ErrClosed = errors.New("subscription closed")

// subscriptionID is only unique within a single Topic
type subscriptionID uint

// Subscription is a handle to a Topic subscription.
// Subscription MUST always be closed with Close() when no longer used.
type Subscription[T any] struct {
	id subscriptionID

	mu    sync.Mutex
	topic *Topic[T]
	ch    <-chan T
}

// Channel returns the chan that receives the published values. It is
// closed when the Subscription is closed.
func (s *Subscription[T]) Channel() <-chan T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Next blocks until the next value is available or ctx is done.
// It returns ErrClosed after Close.
func (s *Subscription[T]) Next(ctx context.Context) (value T, err error) {
	var zero T
	ch := s.Channel()
	if ch == nil {
		return zero, ErrClosed
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case v, ok := <-ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	}
}

// Close terminates this subscription. Values still buffered are dropped.
// Close can safely be called multiple times, even from different goroutines.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.topic == nil {
		return
	}
	s.topic.unsubscribeID(s.id)
	s.ch = nil
	s.topic = nil
}
