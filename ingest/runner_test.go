package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/programs/sage"
	"github.com/sagestream/sagestream/projection/memory"
)

type fakeSubscriber struct {
	mu    sync.Mutex
	subs  []*fakeSub
	fails int // number of initial Subscribe calls that fail
	calls int
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, program account.Pubkey) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return nil, errors.New("connection refused")
	}
	if len(f.subs) == 0 {
		// Block until cancelled
		s := newFakeSub()
		return s, nil
	}
	s := f.subs[0]
	f.subs = f.subs[1:]
	return s, nil
}

func TestRunner_streamEndedWithoutReconnect(t *testing.T) {
	sub := newFakeSub(update(key(1), (&sage.Star{Name: "a"}).AccountData(), 1))
	close(sub.ch)
	logger, _ := test.NewNullLogger()
	r := NewRunner(&fakeSubscriber{subs: []*fakeSub{sub}}, logger)
	store := memory.New()
	r.Add(sage.ProgramID, newProcessor(t, store, false))

	err := r.Run(ctx)
	assert.ErrorIs(t, err, ErrStreamEnded)
	n, err := store.Count(ctx, sage.RelationStars)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunner_subscribeFailed(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := NewRunner(&fakeSubscriber{fails: 1}, logger)
	r.Add(sage.ProgramID, newProcessor(t, memory.New(), false))

	err := r.Run(ctx)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "subscribe", te.Op)
}

func TestRunner_reconnect(t *testing.T) {
	first := newFakeSub(update(key(1), (&sage.Star{Name: "a"}).AccountData(), 1))
	first.err = errors.New("reset")
	close(first.ch)
	second := newFakeSub(update(key(2), (&sage.Star{Name: "b"}).AccountData(), 2))

	fs := &fakeSubscriber{subs: []*fakeSub{first, second}, fails: 1}
	logger, _ := test.NewNullLogger()
	r := NewRunner(fs, logger)
	r.ReconnectDelay = time.Millisecond
	subscribed := make(chan account.Pubkey, 10)
	r.OnSubscribed = func(program account.Pubkey) {
		subscribed <- program
	}
	store := memory.New()
	lp := r.Add(sage.ProgramID, newProcessor(t, store, false))

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(cctx)
	}()

	// Failed subscribe, then the failing stream, then the second stream
	for i := 0; i < 2; i++ {
		select {
		case p := <-subscribed:
			assert.Equal(t, sage.ProgramID, p)
		case <-time.After(5 * time.Second):
			t.Fatal("not subscribed")
		}
	}
	assert.Eventually(t, func() bool {
		n, _ := store.Count(ctx, sage.RelationStars)
		return n == 2
	}, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not return")
	}
	assert.True(t, second.unsubscribed.Load())
	assert.Equal(t, StatusCancelled, lp.Status())
}
