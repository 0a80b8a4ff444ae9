package topics

import (
	"sync"
)

// New returns a new Topic
func New[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[subscriptionID]chan<- T),
	}
}

// Options configure a Subscription
type Options struct {
	// SendLast queues the last published value, if any, right away.
	// The channel then has room for at least one value.
	SendLast bool
	// Buffer is the channel capacity. Publish only blocks on this subscriber
	// once the buffer is full.
	Buffer int
}

// Topic fans out published values to all its subscribers.
// Publish holds the topic lock while sending, so a subscriber that stops
// reading without closing its Subscription blocks all publishers.
type Topic[T any] struct {
	mu          sync.Mutex
	subscribers map[subscriptionID]chan<- T
	lastID      subscriptionID
	last        T
	hasLast     bool
}

// Publish publishes a new value to all subscribers
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = v
	t.hasLast = true
	for _, ch := range t.subscribers {
		ch <- v // blocks when the buffer is full
	}
}

// Last returns the last published value, if available
func (t *Topic[T]) Last() (value T, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasLast {
		var zero T
		return zero, false
	}
	return t.last, true
}

// Len returns the number of open subscriptions
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Subscribe creates a new Subscription, which must be closed when done
func (t *Topic[T]) Subscribe(opt Options) *Subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	size := opt.Buffer
	if opt.SendLast && size < 1 {
		size = 1
	}
	ch := make(chan T, size)

	t.lastID++
	id := t.lastID
	t.subscribers[id] = ch

	if opt.SendLast && t.hasLast {
		// Cannot block: the channel is empty and publishers need the lock
		ch <- t.last
	}

	return &Subscription[T]{
		id:    id,
		topic: t,
		ch:    ch,
	}
}

// unsubscribeID removes a subscription and closes its channel
func (t *Topic[T]) unsubscribeID(id subscriptionID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, exists := t.subscribers[id]
	if !exists {
		return
	}
	close(ch)
	delete(t.subscribers, id)
}
