package healthtracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthTracker_sequence(t *testing.T) {
	ht := New(HealthConfig{
		ErrorSequence: 3,
		WarnSequence:  1,
		ErrorDuration: time.Hour,
		WarnDuration:  time.Hour,
	}, "test", "write to store")

	assert.NoError(t, ht.CheckSequence())
	assert.NoError(t, ht.CheckDuration())

	ht.AddFailure()
	err := ht.CheckSequence()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 consecutive times")

	ht.AddFailure()
	ht.AddFailure()
	assert.EqualError(t, ht.CheckSequence(), "failed to write to store 3 consecutive times")
	assert.Equal(t, uint32(3), ht.Failures())
	assert.NoError(t, ht.CheckDuration(), "below duration thresholds")

	ht.AddSuccess()
	assert.NoError(t, ht.CheckSequence())
	assert.Equal(t, uint32(0), ht.Failures())
}

func TestHealthTracker_duration(t *testing.T) {
	ht := New(HealthConfig{ErrorSequence: 100}, "test", "write")
	ht.AddFailure()
	assert.Error(t, ht.CheckDuration())
}

func TestHealthConfig_Validated(t *testing.T) {
	hc := HealthConfig{WarnSequence: 5, ErrorSequence: 2}.Validated()
	assert.Equal(t, MinEvaluationInterval, hc.EvaluationInterval)
	assert.Equal(t, uint32(2), hc.WarnSequence)
	assert.Equal(t, uint32(1), HealthConfig{}.Validated().ErrorSequence)
}
