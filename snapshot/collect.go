package snapshot

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/utils"
	"github.com/sagestream/sagestream/utils/climit"
)

// Fetcher fetches all accounts of a program that start with the given
// discriminator, like rpc.Client.
type Fetcher interface {
	GetProgramAccounts(ctx context.Context, program account.Pubkey, d account.Discriminator) (account.Batch, error)
}

type CollectOptions struct {
	Concurrency int           // concurrent fetches, at least 1
	Timeout     time.Duration // per fetch, 0 for no timeout
	Logger      logrus.FieldLogger
}

// Collect fetches all accounts for the discriminators and returns them as an
// Archive. Meta.Slot is set to the lowest context slot of all fetches, which
// is the slot at which the whole archive is known to be complete.
func Collect(ctx context.Context, f Fetcher, name string, program account.Pubkey, discs []account.Discriminator, opt CollectOptions) (*Archive, error) {
	l := opt.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	l = l.WithField("program", name)
	hostname, _ := os.Hostname()
	t0 := time.Now()

	archive := NewArchive(Meta{
		Program:       name,
		ProgramID:     program.String(),
		TimestampNano: uint64(t0.UnixNano()),
		Hostname:      hostname,
	})

	var mu sync.Mutex // protects archive
	var minSlot uint64
	cl := climit.New(name, "fetch", opt.Concurrency, l)
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range discs {
		eg.Go(func() error {
			token, err := cl.AcquireContext(ctx)
			if err != nil {
				return err
			}
			defer token.Release()

			fctx := ctx
			if opt.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, opt.Timeout)
				defer cancel()
			}
			tf := time.Now()
			batch, err := f.GetProgramAccounts(fctx, program, d)
			if err != nil {
				metricFetchFailed.WithLabelValues(name).Inc()
				return errors.Wrapf(err, "fetch %s", d)
			}
			l.WithFields(logrus.Fields{
				"discriminator": d.String(),
				"accounts":      len(batch.Accounts),
				"slot":          batch.Slot,
				"time_fetch":    utils.TimeDiff(time.Now(), tf),
			}).Info("Fetched accounts")

			mu.Lock()
			defer mu.Unlock()
			if batch.Slot > 0 && (minSlot == 0 || batch.Slot < minSlot) {
				minSlot = batch.Slot
			}
			entries := archive.Groups[d]
			if entries == nil {
				entries = make([]Entry, 0, len(batch.Accounts))
			}
			for _, k := range batch.Accounts {
				entries = append(entries, Entry{Pubkey: k.Pubkey, Account: k.Account})
			}
			archive.Groups[d] = entries
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	archive.Meta.Slot = minSlot

	l.WithFields(logrus.Fields{
		"accounts":   archive.Len(),
		"slot":       minSlot,
		"time_total": utils.TimeDiff(time.Now(), t0),
	}).Info("Collected snapshot")
	return archive, nil
}
