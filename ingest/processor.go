// Package ingest applies account updates to a projection store, either one
// by one or from a live subscription.
package ingest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/projection"
	"github.com/sagestream/sagestream/registry"
	"github.com/sagestream/sagestream/status/healthtracker"
	"github.com/sagestream/sagestream/utils"
)

// Outcome is the result of applying a single update
type Outcome int

const (
	Applied Outcome = iota
	Skipped
	DecodeFailed
	StoreFailed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case DecodeFailed:
		return "decode_failed"
	case StoreFailed:
		return "store_failed"
	default:
		return "unknown"
	}
}

// Options configure a Processor
type Options struct {
	// Program is the name used in logs and metrics
	Program string
	// RawAccounts also writes every update to the raw_accounts relation
	RawAccounts bool
	// Logger defaults to the standard logger
	Logger logrus.FieldLogger
	// Health tracks consecutive store failures, optional
	Health *healthtracker.HealthTracker
	// Events receives an Applied event for every written update, optional
	Events *Events
}

// NewProcessor creates a Processor that decodes with the given registry
// and writes to the given store.
func NewProcessor(reg *registry.Registry, store projection.Store, opt Options) *Processor {
	l := opt.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	l = l.WithField("program", opt.Program)
	return &Processor{
		reg:   reg,
		store: store,
		opt:   opt,
		l:     l,
		slotsMu: utils.MonitoredMutex{
			Logger: l,
			Name:   "slots",
		},
		slots: make(map[account.Pubkey]uint64),
	}
}

// Processor applies single account updates. It is safe for concurrent use,
// but updates for the same account must be applied in order by the caller
// for the store to end up with the latest image.
type Processor struct {
	reg   *registry.Registry
	store projection.Store
	opt   Options
	l     logrus.FieldLogger

	slotsMu utils.MonitoredMutex
	slots   map[account.Pubkey]uint64
	highest atomic.Uint64
}

// Apply decodes the update and writes the record with all its related rows
// and children to the store.
//
// Updates without a known discriminator, or owned by another program than
// the one registered for it, are skipped. A decode failure writes
// nothing and returns a DecodeError. A store failure returns a StoreError.
// Both are logged and counted here, so callers that only need to continue can
// ignore the error.
func (p *Processor) Apply(ctx context.Context, u account.Update) (Outcome, error) {
	t0 := time.Now()
	defer func() {
		metricApplySeconds.WithLabelValues(p.opt.Program).Observe(time.Since(t0).Seconds())
	}()

	p.trackSlot(u)

	if p.opt.RawAccounts {
		raw := projection.RawAccount{Update: u}
		if err := p.store.Upsert(ctx, u.Pubkey, raw); err != nil {
			return p.storeFailed(u, raw.Relation(), err)
		}
	}

	d, ok := u.Discriminator()
	if !ok {
		return p.skipped(u, "no discriminator")
	}
	e, ok := p.reg.Lookup(d)
	if !ok {
		return p.skipped(u, "unknown discriminator")
	}
	if e.Program != u.Owner {
		// Same discriminator in an account of another program
		return p.skipped(u, "owner mismatch")
	}

	rec, err := e.Decode(u.Data[account.DiscriminatorSize:])
	if err != nil {
		err = &DecodeError{Pubkey: u.Pubkey, Type: e.Name, Err: err}
		p.logger(u).WithError(err).WithField("relation", e.Relation).Warn("Decode failed")
		p.count(DecodeFailed)
		return DecodeFailed, err
	}

	if relation, err := p.write(ctx, u.Pubkey, rec); err != nil {
		return p.storeFailed(u, relation, err)
	}

	if p.opt.Health != nil {
		p.opt.Health.AddSuccess()
	}
	p.count(Applied)
	metricRecords.WithLabelValues(p.opt.Program, e.Relation).Inc()
	if p.opt.Events != nil && p.opt.Events.Applied.Len() > 0 {
		p.opt.Events.Applied.Publish(AppliedInfo{
			Program:  p.opt.Program,
			Pubkey:   u.Pubkey,
			Relation: e.Relation,
			Slot:     u.Slot,
		})
	}
	return Applied, nil
}

// write stores the full image of a record. Stores that implement
// projection.Replacer do this atomically. For other stores the children and
// related rows go first, so a failed write leaves the previous parent row
// in place. It returns the relation that failed.
func (p *Processor) write(ctx context.Context, id account.Pubkey, rec projection.Record) (string, error) {
	img := projection.ImageOf(rec)
	if r, ok := p.store.(projection.Replacer); ok {
		if err := r.Replace(ctx, id, img); err != nil {
			var we projection.WriteError
			if errors.As(err, &we) {
				return we.Relation, err
			}
			return rec.Relation(), err
		}
		return "", nil
	}

	if img.ChildRelation != "" {
		if err := p.store.UpsertChildren(ctx, id, img.ChildRelation, img.Children); err != nil {
			return img.ChildRelation, err
		}
	}
	for _, rel := range img.Related {
		if err := p.store.Upsert(ctx, id, rel); err != nil {
			return rel.Relation(), err
		}
	}
	if err := p.store.Upsert(ctx, id, rec); err != nil {
		return rec.Relation(), err
	}
	return "", nil
}

func (p *Processor) skipped(u account.Update, reason string) (Outcome, error) {
	p.logger(u).WithField("reason", reason).Trace("Skipped update")
	p.count(Skipped)
	return Skipped, nil
}

func (p *Processor) storeFailed(u account.Update, relation string, err error) (Outcome, error) {
	err = &StoreError{Pubkey: u.Pubkey, Relation: relation, Err: err}
	p.logger(u).WithError(err).WithField("relation", relation).Error("Store write failed")
	if p.opt.Health != nil {
		p.opt.Health.AddFailure()
	}
	p.count(StoreFailed)
	return StoreFailed, err
}

func (p *Processor) count(o Outcome) {
	metricUpdates.WithLabelValues(p.opt.Program, o.String()).Inc()
}

func (p *Processor) logger(u account.Update) logrus.FieldLogger {
	return p.l.WithFields(logrus.Fields{
		"pubkey": u.Pubkey.String(),
		"slot":   u.Slot,
	})
}

// trackSlot records the slot of the update. Updates are not reordered: a
// stale update is still applied, and only logged.
func (p *Processor) trackSlot(u account.Update) {
	for {
		h := p.highest.Load()
		if u.Slot <= h {
			break
		}
		if p.highest.CompareAndSwap(h, u.Slot) {
			metricHighestSlot.WithLabelValues(p.opt.Program).Set(float64(u.Slot))
			break
		}
	}

	p.slotsMu.Lock()
	prev, seen := p.slots[u.Pubkey]
	if !seen || u.Slot >= prev {
		p.slots[u.Pubkey] = u.Slot
	}
	p.slotsMu.Unlock()

	if seen && u.Slot < prev {
		metricStaleUpdates.WithLabelValues(p.opt.Program).Inc()
		p.logger(u).WithField("previous_slot", prev).Debug("Stale update, applying anyway")
	}
}

// HighestSlot returns the highest slot seen in any update
func (p *Processor) HighestSlot() uint64 {
	return p.highest.Load()
}

// Program returns the configured program name
func (p *Processor) Program() string {
	return p.opt.Program
}
