package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayData(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		max  int
		want string
	}{
		{"empty", []byte{}, 8, ""},
		{"nil", nil, 8, ""},
		{"short", []byte{0x01, 0xab}, 8, "01ab"},
		{"exact", []byte{1, 2, 3, 4}, 4, "01020304"},
		{"long", []byte{1, 2, 3, 4, 5, 6}, 4, "01020304... (6B)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equalf(t, tt.want, DisplayData(tt.b, tt.max), "DisplayData(%v)", tt.b)
		})
	}
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "SAGE2H..7f7EE", ShortKey("SAGE2HAwep459SNq61LHvjxPk4pLPEJLoMETef7f7EE"))
	assert.Equal(t, "short", ShortKey("short"))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	t0 := time.Now()
	err := SleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(t0), time.Second)
	assert.True(t, IsCanceled(ctx))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))
}

func TestTimeDiff(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := t0.Add(1500*time.Microsecond + 400*time.Nanosecond)
	assert.Equal(t, 2*time.Millisecond, TimeDiff(t1, t0))
}
