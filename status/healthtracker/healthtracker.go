// Package healthtracker reports consecutive failures of a repeated operation,
// like projection store writes, through healthz.
package healthtracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"
)

type HealthTracker struct {
	Config   HealthConfig
	sequence atomic.Uint32
	since    atomic.Time
	prefix   string
	activity string
	logger   logrus.FieldLogger
}

// New creates a HealthTracker. The prefix is used in the healthz check names
// and the activity in the error messages, e.g. "write to store".
func New(hc HealthConfig, prefix string, activity string) *HealthTracker {
	ht := &HealthTracker{
		Config:   hc.Validated(),
		prefix:   prefix,
		activity: activity,
		logger:   logrus.WithField("healthtracker", prefix),
	}
	return ht
}

// Register registers the healthz checks
func (ht *HealthTracker) Register() {
	healthz.Register(ht.prefix+"_failed_attempts", ht.Config.EvaluationInterval, ht.CheckSequence)
	healthz.Register(ht.prefix+"_failed_duration", ht.Config.EvaluationInterval, ht.CheckDuration)
	ht.logger.Info("registered trackers for consecutive failures")
}

// Deregister removes the healthz checks
func (ht *HealthTracker) Deregister() {
	healthz.Deregister(ht.prefix + "_failed_attempts")
	healthz.Deregister(ht.prefix + "_failed_duration")
}

// CheckSequence evaluates the number of consecutive failures
func (ht *HealthTracker) CheckSequence() error {
	conseqFails := ht.sequence.Load()
	if conseqFails >= ht.Config.ErrorSequence {
		ht.logger.Warnf("%d consecutive failures is violating the error threshold (%d)",
			conseqFails, ht.Config.ErrorSequence)
		return fmt.Errorf("failed to %s %d consecutive times", ht.activity, conseqFails)
	} else if conseqFails >= ht.Config.WarnSequence {
		return healthz.Warnf("failed to %s %d consecutive times", ht.activity, conseqFails)
	}
	return nil
}

// CheckDuration evaluates for how long the operation has been failing
func (ht *HealthTracker) CheckDuration() error {
	if ht.sequence.Load() == 0 {
		return nil
	}
	failingFor := time.Since(ht.since.Load()).Round(time.Second)
	if failingFor >= ht.Config.ErrorDuration {
		ht.logger.Warnf("failure for %s is violating the error threshold (%s)",
			failingFor, ht.Config.ErrorDuration)
		return fmt.Errorf("failed to %s for %s", ht.activity, failingFor)
	} else if failingFor >= ht.Config.WarnDuration {
		return healthz.Warnf("failed to %s for %s", ht.activity, failingFor)
	}
	return nil
}

func (ht *HealthTracker) AddFailure() {
	if ht.sequence.Inc() == 1 {
		ht.since.Store(time.Now())
	}
}

func (ht *HealthTracker) AddSuccess() {
	ht.sequence.Store(0)
}

// Failures returns the current number of consecutive failures
func (ht *HealthTracker) Failures() uint32 {
	return ht.sequence.Load()
}
