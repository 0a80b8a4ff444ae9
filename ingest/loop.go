package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/utils"
)

// UnsubscribeTimeout limits how long an orderly unsubscribe may take after
// the loop was cancelled.
const UnsubscribeTimeout = 5 * time.Second

// Subscription is a live stream of account updates for one program
type Subscription interface {
	// Updates returns the channel of updates. It is closed when the stream
	// ends, for whatever reason.
	Updates() <-chan account.Update
	// Err returns the error that terminated the stream, or nil if it ended
	// normally. Only valid after Updates was closed.
	Err() error
	// Unsubscribe ends the subscription and releases the transport.
	Unsubscribe(ctx context.Context) error
}

// Status is the state of a Loop
type Status int32

const (
	StatusIdle Status = iota
	StatusConnected
	StatusStreaming
	StatusCancelled
	StatusStreamEnded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnected:
		return "connected"
	case StatusStreaming:
		return "streaming"
	case StatusCancelled:
		return "cancelled"
	case StatusStreamEnded:
		return "stream_ended"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by Loop.Run
type Result struct {
	Program      string
	Status       Status
	Applied      uint64
	Skipped      uint64
	DecodeFailed uint64
	StoreFailed  uint64
	// Err is a TransportError for StatusFailed. For StatusCancelled it is
	// set when the unsubscribe failed.
	Err error
}

func (r *Result) add(o Outcome) {
	switch o {
	case Applied:
		r.Applied++
	case Skipped:
		r.Skipped++
	case DecodeFailed:
		r.DecodeFailed++
	case StoreFailed:
		r.StoreFailed++
	}
}

// NewLoop creates a Loop that applies updates with the given Processor
func NewLoop(p *Processor) *Loop {
	return &Loop{
		p: p,
		l: p.l,
	}
}

// Loop drives a single subscription until it ends or is cancelled
type Loop struct {
	p      *Processor
	l      logrus.FieldLogger
	status atomic.Int32
}

// Status returns the current status
func (lp *Loop) Status() Status {
	return Status(lp.status.Load())
}

func (lp *Loop) setStatus(s Status) {
	lp.status.Store(int32(s))
}

// Run applies updates from the subscription in arrival order.
//
// Cancellation of ctx is checked before every receive, so no update is
// consumed after it was observed. An update that is already being applied
// finishes its writes. On cancellation the subscription is unsubscribed
// before Run returns.
func (lp *Loop) Run(ctx context.Context, sub Subscription) Result {
	lp.setStatus(StatusConnected)
	res := Result{Program: lp.p.Program()}
	updates := sub.Updates()

	lp.l.Info("Streaming updates")
	lp.setStatus(StatusStreaming)
	for {
		if utils.IsCanceled(ctx) {
			return lp.finish(lp.cancel(ctx, sub, res))
		}
		select {
		case <-ctx.Done():
			return lp.finish(lp.cancel(ctx, sub, res))
		case u, ok := <-updates:
			if !ok {
				if err := sub.Err(); err != nil {
					res.Status = StatusFailed
					res.Err = &TransportError{Op: "stream", Err: err}
				} else {
					res.Status = StatusStreamEnded
				}
				return lp.finish(res)
			}
			if utils.IsCanceled(ctx) {
				// Lost the race against cancellation
				lp.l.WithField("pubkey", u.Pubkey.String()).Debug("Dropped update received after cancel")
				return lp.finish(lp.cancel(ctx, sub, res))
			}
			o, _ := lp.p.Apply(context.WithoutCancel(ctx), u)
			res.add(o)
		}
	}
}

func (lp *Loop) cancel(ctx context.Context, sub Subscription, res Result) Result {
	res.Status = StatusCancelled
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), UnsubscribeTimeout)
	defer cancel()
	if err := sub.Unsubscribe(uctx); err != nil {
		res.Err = &TransportError{Op: "unsubscribe", Err: err}
	}
	return res
}

func (lp *Loop) finish(res Result) Result {
	lp.setStatus(res.Status)
	metricStreamsFinished.WithLabelValues(res.Program, res.Status.String()).Inc()

	l := lp.l.WithFields(logrus.Fields{
		"status":        res.Status.String(),
		"applied":       res.Applied,
		"skipped":       res.Skipped,
		"decode_failed": res.DecodeFailed,
		"store_failed":  res.StoreFailed,
		"highest_slot":  lp.p.HighestSlot(),
	})
	if res.Err != nil {
		l.WithError(res.Err).Warn("Stream finished with error")
	} else {
		l.Info("Stream finished")
	}

	if ev := lp.p.opt.Events; ev != nil {
		ev.Status.Publish(res)
	}
	return res
}
