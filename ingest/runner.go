package ingest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/utils"
)

// ErrStreamEnded is returned by Runner.Run when a stream ended and
// reconnecting is disabled.
var ErrStreamEnded = errors.New("subscription stream ended")

// Subscriber opens subscriptions, like rpc.PubSub
type Subscriber interface {
	Subscribe(ctx context.Context, program account.Pubkey) (Subscription, error)
}

// NewRunner creates a Runner that subscribes through the given Subscriber
func NewRunner(subscriber Subscriber, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		subscriber: subscriber,
		l:          logger,
	}
}

// Runner runs one Loop per program. The loops only share the store that
// their Processors write to.
type Runner struct {
	// ReconnectDelay is the time to wait before subscribing again after a
	// stream ended or failed. Zero disables reconnecting.
	ReconnectDelay time.Duration
	// OnSubscribed is called after every successful subscribe
	OnSubscribed func(program account.Pubkey)

	subscriber Subscriber
	l          logrus.FieldLogger
	loops      []runnerLoop
}

type runnerLoop struct {
	program account.Pubkey
	loop    *Loop
}

// Add adds a program to watch and returns its Loop
func (r *Runner) Add(program account.Pubkey, p *Processor) *Loop {
	lp := NewLoop(p)
	r.loops = append(r.loops, runnerLoop{program: program, loop: lp})
	return lp
}

// Run runs all loops until ctx is cancelled or one of them returns an
// error. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, rl := range r.loops {
		eg.Go(func() error {
			return r.runLoop(ctx, rl)
		})
	}
	return eg.Wait()
}

func (r *Runner) runLoop(ctx context.Context, rl runnerLoop) error {
	l := r.l.WithField("program", rl.loop.p.Program())
	for {
		sub, err := r.subscriber.Subscribe(ctx, rl.program)
		if err != nil {
			if utils.IsCanceled(ctx) {
				return nil
			}
			metricSubscribeFailed.WithLabelValues(rl.loop.p.Program()).Inc()
			err = &TransportError{Op: "subscribe", Err: err}
			if r.ReconnectDelay == 0 {
				return err
			}
			l.WithError(err).Warn("Subscribe failed, retrying")
			if utils.SleepContextPerturb(ctx, r.ReconnectDelay) != nil {
				return nil
			}
			continue
		}
		if r.OnSubscribed != nil {
			r.OnSubscribed(rl.program)
		}

		res := rl.loop.Run(ctx, sub)
		switch res.Status {
		case StatusCancelled:
			return nil
		case StatusFailed:
			if r.ReconnectDelay == 0 {
				return res.Err
			}
		default:
			if r.ReconnectDelay == 0 {
				return ErrStreamEnded
			}
		}
		l.WithField("delay", r.ReconnectDelay).Info("Reconnecting")
		if utils.SleepContextPerturb(ctx, r.ReconnectDelay) != nil {
			return nil
		}
	}
}
