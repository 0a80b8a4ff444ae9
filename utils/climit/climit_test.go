package climit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestConcurrencyLimit(t *testing.T) {
	cl := New("test", "fetch", 2, nil)
	event := make(chan struct{})

	var count atomic.Int32

	var t1, t2, t4, t8 *Token
	go func() {
		t1 = cl.Acquire()
		count.Add(1)
		event <- struct{}{}
		t2 = cl.Acquire()
		count.Add(2)
		event <- struct{}{}
		t4 = cl.Acquire()
		count.Add(4)
		event <- struct{}{}
		t8 = cl.Acquire()
		count.Add(8)
		event <- struct{}{}
	}()

	<-event
	<-event
	assert.Equal(t, int32(3), count.Load())
	time.Sleep(10 * time.Millisecond)
	select {
	case <-event:
		t.Fatal("unexpected event")
	default:
		// OK
	}

	// Release a token
	t2.Release()
	<-event
	assert.Equal(t, int32(7), count.Load())

	// Release the same again, nothing happens
	t2.Release()
	time.Sleep(10 * time.Millisecond)
	select {
	case <-event:
		t.Fatal("unexpected event")
	default:
		// OK
	}
	assert.Equal(t, int32(7), count.Load())

	// Release another for the last increment
	t1.Release()
	<-event
	assert.Equal(t, int32(15), count.Load())

	t4.Release()
	t8.Release()
}

func TestAcquireContext(t *testing.T) {
	cl := New("test", "ctx", 1, nil)
	t1, err := cl.AcquireContext(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	t2, err := cl.AcquireContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, t2)

	t1.Release()
	t3, err := cl.AcquireContext(context.Background())
	assert.NoError(t, err)
	t3.Release()
}
