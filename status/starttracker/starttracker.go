// Package starttracker reports through healthz whether a program finished
// its startup: the initial projection load and the live subscription.
package starttracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"
)

type StartTracker struct {
	Config      StartConfig
	initialLoad atomic.Bool
	subscribed  atomic.Bool
	since       atomic.Time
	prefix      string
	logger      logrus.FieldLogger
}

func New(sc StartConfig, prefix string) *StartTracker {
	st := &StartTracker{
		Config: sc.Validated(),
		prefix: prefix,
		logger: logrus.WithField("starttracker", prefix),
	}
	st.since.Store(time.Now())
	return st
}

func (st *StartTracker) trackerName() string {
	return fmt.Sprintf("%s_startup_in_progress", st.prefix)
}

// Register registers the healthz check. The check deregisters itself once
// the startup phase completed.
func (st *StartTracker) Register() {
	if st.Config.ReportMetadata {
		healthz.SetMeta(st.prefix+"_startupCompleted", false)
	}
	healthz.Register(st.trackerName(), st.Config.EvaluationInterval, func() error {
		err := st.Check()
		if err == nil && st.Completed() {
			healthz.Deregister(st.trackerName())
		}
		return err
	})
	st.logger.Info("registered tracker for startup phase")
}

// Completed returns true when all startup steps passed
func (st *StartTracker) Completed() bool {
	return st.initialLoad.Load() && st.subscribed.Load()
}

// Check evaluates the startup phase
func (st *StartTracker) Check() error {
	if st.Completed() {
		if st.Config.ReportMetadata {
			healthz.SetMeta(st.prefix+"_startupCompleted", true)
		}
		return nil
	}
	if !st.Config.ReportHealthz {
		return nil
	}
	pendingFor := time.Since(st.since.Load()).Round(time.Second)
	if pendingFor >= st.Config.ErrorDuration {
		return fmt.Errorf("startup pending after %s", pendingFor)
	} else if pendingFor >= st.Config.WarnDuration {
		return healthz.Warnf("startup pending after %s", pendingFor)
	}
	return nil
}

// SetPassedInitialLoad marks the initial snapshot restore or bulk fetch done
func (st *StartTracker) SetPassedInitialLoad() {
	st.initialLoad.Store(true)
	st.logger.Debug("tracked successful initial load")
}

// SetPassedSubscribe marks the live subscription as established
func (st *StartTracker) SetPassedSubscribe() {
	st.subscribed.Store(true)
	st.logger.Debug("tracked successful subscribe")
}
