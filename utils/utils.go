package utils

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
)

// SleepContext sleeps for given duration. If the context closes in the
// meantime, it returns immediately with a context.Canceled error.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Canceled
	case <-t.C:
		return nil
	}
}

// SleepContextPerturb sleeps for given duration like SleepContent, but it
// perturbs the duration with a 20% random component to avoid multiple instances
// running at the exact same time.
// If the context closes in the meantime, it returns immediately with a
// context.Canceled error.
func SleepContextPerturb(ctx context.Context, d time.Duration) error {
	r := rand.Intn(400)
	// Random duration between 80% and 120% of original
	d = time.Duration(800+r) * d / 1000
	return SleepContext(ctx, d)
}

// IsCanceled checks if the context has been canceled.
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// DisplayData represents account data for humans: the hex encoded start of
// the data, followed by the total length if it was cut off.
func DisplayData(b []byte, max int) string {
	if len(b) <= max {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%s... (%s)", hex.EncodeToString(b[:max]), datasize.ByteSize(len(b)))
}

// ShortKey shortens a base58 key for log output, like "SAGE2H..7f7EE"
func ShortKey(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-5:]
}

// TimeDiff returns the difference between two times, rounded to milliseconds.
func TimeDiff(t1, t0 time.Time) time.Duration {
	return t1.Sub(t0).Round(time.Millisecond)
}

// GC runs the garbage collector and logs some memory stats
func GC() time.Duration {
	var before, after runtime.MemStats
	t0 := time.Now()
	runtime.ReadMemStats(&before)
	runtime.GC()
	runtime.ReadMemStats(&after)
	t1 := time.Now()
	dt := TimeDiff(t1, t0)
	freed := after.Frees - before.Frees
	logrus.WithFields(logrus.Fields{
		"time_gc":      dt,
		"freed":        datasize.ByteSize(freed),
		"alloc_before": datasize.ByteSize(before.Alloc),
		"alloc_after":  datasize.ByteSize(after.Alloc),
	}).Debug("GC stats")
	return dt
}
