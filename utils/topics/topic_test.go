package topics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_unbuffered(t *testing.T) {
	tp := New[string]()
	sub := tp.Subscribe(Options{})
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		tp.Publish("a")
	}()

	select {
	case <-done:
		t.Fatal("publish returned before the value was received")
	case <-time.After(20 * time.Millisecond):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	<-done
}

func TestTopic_sendLastWithoutValue(t *testing.T) {
	tp := New[int]()
	sub := tp.Subscribe(Options{SendLast: true})
	defer sub.Close()
	assert.Equal(t, 1, cap(sub.Channel()))
	assert.Equal(t, 0, len(sub.Channel()))
}

func TestSubscription_Next_cancelled(t *testing.T) {
	tp := New[int]()
	sub := tp.Subscribe(Options{})
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscription_Close(t *testing.T) {
	tp := New[int]()
	sub := tp.Subscribe(Options{Buffer: 1})
	ch := sub.Channel()
	sub.Close()
	sub.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, tp.Len())
	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Publishing without subscribers never blocks
	tp.Publish(1)
}
