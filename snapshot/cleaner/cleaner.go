// Package cleaner removes old snapshot archives from storage.
package cleaner

import (
	"context"
	"slices"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/sagestream/sagestream/snapshot"
	"github.com/sagestream/sagestream/utils"
)

// Options configure a Worker
type Options struct {
	// KeepLast is the number of newest archives that are never removed
	KeepLast int
	// MustKeepInterval protects archives that appeared in the listing less
	// than this long ago, in case someone is still loading them.
	MustKeepInterval time.Duration
	// Interval between runs of Run
	Interval time.Duration
	// OneShot allows removing archives in the first run, for a single
	// RunOnce from the command line.
	OneShot bool
}

func New(program string, st simpleblob.Interface, opt Options, logger logrus.FieldLogger) *Worker {
	return &Worker{
		st:            st,
		program:       program,
		l:             logger.WithField("component", "cleaner").WithField("program", program),
		opt:           opt,
		snapFirstSeen: map[string]time.Time{},
	}
}

// Worker performs a periodic cleanup of the archives of a single program
type Worker struct {
	st            simpleblob.Interface
	program       string
	l             logrus.FieldLogger
	snapFirstSeen map[string]time.Time
	opt           Options
}

func (w *Worker) Run(ctx context.Context) error {
	if w.opt.KeepLast <= 0 || w.opt.Interval <= 0 {
		// If disabled, simply wait for the context to close
		<-ctx.Done()
		return context.Canceled
	}
	for {
		err := w.RunOnce(ctx, time.Now())
		if err != nil {
			w.l.WithError(err).Warn("Clean run failed")
		}
		if err = utils.SleepContextPerturb(ctx, w.opt.Interval); err != nil {
			return err
		}
	}
}

// RunOnce removes all archives except the KeepLast newest ones.
// A KeepLast of 0 disables cleaning.
func (w *Worker) RunOnce(ctx context.Context, now time.Time) error {
	if w.opt.KeepLast <= 0 {
		return nil
	}

	list, err := snapshot.List(ctx, w.st, w.program)
	metricListCalls.Inc()
	if err != nil {
		metricListFailed.Inc()
		return err
	}
	nTotal := len(list)

	// Clean old entries from the snapFirstSeen map (files that no longer appear
	// in the listing)
	seen := make(map[string]bool, len(list))
	for _, ni := range list {
		seen[ni.FullName] = true
	}
	for name := range w.snapFirstSeen {
		if !seen[name] {
			delete(w.snapFirstSeen, name)
		}
	}

	const (
		doNotDelete        = false
		continueEvaluation = true
	)

	// Sort from newest to oldest
	slices.Reverse(list)

	removalCandidates := lo.Filter(list, func(ni snapshot.NameInfo, index int) bool {
		firstSeenTime, exists := w.snapFirstSeen[ni.FullName]
		if !exists {
			w.snapFirstSeen[ni.FullName] = now
		}
		if index < w.opt.KeepLast {
			return doNotDelete
		}
		if !exists && !w.opt.OneShot {
			return doNotDelete
		}
		if exists && now.Sub(firstSeenTime) <= w.opt.MustKeepInterval {
			return doNotDelete
		}
		return continueEvaluation
	})

	nCleaned := 0
	nError := 0
	for _, ni := range removalCandidates {
		l := w.l.WithField("snapshot", ni.FullName)
		l.Debug("Cleaning old snapshot")
		metricDeleteCalls.WithLabelValues(w.program).Inc()
		if err := w.st.Delete(ctx, ni.FullName); err != nil {
			l.WithError(err).Warn("Could not delete old snapshot")
			metricDeleteFailed.Inc()
			nError++
			continue
		}
		delete(w.snapFirstSeen, ni.FullName)
		nCleaned++
	}

	w.l.WithFields(logrus.Fields{
		"cleaned": nCleaned,
		"failed":  nError,
		"total":   nTotal,
	}).Debug("Cleaning stats")

	return nil
}
