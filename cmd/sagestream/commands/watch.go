package commands

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wojas/go-healthz"
	"golang.org/x/sync/errgroup"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/ingest"
	"github.com/sagestream/sagestream/registry"
	"github.com/sagestream/sagestream/snapshot"
	"github.com/sagestream/sagestream/snapshot/cleaner"
	"github.com/sagestream/sagestream/status"
	"github.com/sagestream/sagestream/status/healthtracker"
	"github.com/sagestream/sagestream/status/starttracker"
	"github.com/sagestream/sagestream/utils"
	"github.com/sagestream/sagestream/utils/topics"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringP("program", "p", "", "Only watch this program")
	watchCmd.Flags().Bool("skip-initial-load", false,
		"Subscribe right away, without restoring or fetching the current accounts")
}

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Load the current accounts and project live updates",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, err := cmd.Flags().GetString("program")
		if err != nil {
			return err
		}
		skipInitial, err := cmd.Flags().GetBool("skip-initial-load")
		if err != nil {
			return err
		}
		return runWatch(only, skipInitial)
	},
}

func runWatch(only string, skipInitial bool) error {
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	reg := registry.Default()
	progs, err := programs(reg, only)
	if err != nil {
		return err
	}
	st, err := openStorage(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Store close failed")
		}
	}()
	status.SetStorage(st)
	status.SetStore(store, relations(reg))

	health := healthtracker.New(conf.Health.StoreFailures, "store", "write to the projection store")
	health.Register()
	defer health.Deregister()
	start := starttracker.New(conf.Health.StartPhase, "watch")
	start.Register()

	healthz.AddBuildInfo()
	if hostname, err := os.Hostname(); err == nil {
		healthz.SetMeta("hostname", hostname)
	}
	healthz.SetMeta("version", version)
	status.StartHTTPServer(conf)

	client := newClient()
	if slot, err := client.GetSlot(ctx); err != nil {
		logrus.WithError(err).Warn("RPC node not reachable")
	} else {
		logrus.WithField("slot", slot).Info("RPC node reachable")
	}
	ps, err := newPubSub()
	if err != nil {
		return err
	}
	events := ingest.NewEvents()
	runner := ingest.NewRunner(ps, logrus.StandardLogger())
	runner.ReconnectDelay = conf.RPC.ReconnectDelay
	runner.OnSubscribed = subscribedTracker(len(progs), start)

	for _, p := range progs {
		proc := ingest.NewProcessor(reg, store, ingest.Options{
			Program:     p.name,
			RawAccounts: conf.Store.RawAccounts,
			Logger:      logrus.StandardLogger(),
			Health:      health,
			Events:      events,
		})
		if !skipInitial {
			if err := initialLoad(ctx, st, client, p, proc); err != nil {
				return err
			}
		}
		lp := runner.Add(p.id, proc)
		status.AddLoop(p.name, lp, proc)
	}
	start.SetPassedInitialLoad()

	// Publishing blocks, so the status consumer must outlive the runner
	statusSub := events.Status.Subscribe(topics.Options{Buffer: len(progs)})
	statusCtx, statusDone := context.WithCancel(context.Background())
	defer statusDone()
	go func() {
		defer statusSub.Close()
		for {
			res, err := statusSub.Next(statusCtx)
			if err != nil {
				return
			}
			healthz.SetMeta(res.Program+"_stream", res.Status.String())
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return runner.Run(ctx)
	})
	for _, p := range progs {
		if conf.Snapshot.Interval > 0 {
			eg.Go(func() error {
				return periodicSnapshots(ctx, st, client, p)
			})
		}
		if conf.Snapshot.KeepLast > 0 {
			w := cleaner.New(p.name, st, cleaner.Options{
				KeepLast:         conf.Snapshot.KeepLast,
				MustKeepInterval: conf.Snapshot.MustKeepInterval,
				Interval:         conf.Snapshot.CleanupInterval,
			}, logrus.StandardLogger())
			eg.Go(func() error {
				return w.Run(ctx)
			})
		}
	}

	logrus.WithField("programs", len(progs)).Info("Watching")
	err = eg.Wait()
	if rootCtx.Err() != nil {
		logrus.Info("Watch stopped")
		return nil
	}
	return err
}

// subscribedTracker marks the start phase as passed once every program was
// subscribed at least once.
func subscribedTracker(n int, start *starttracker.StartTracker) func(account.Pubkey) {
	var mu sync.Mutex
	seen := make(map[account.Pubkey]struct{}, n)
	return func(program account.Pubkey) {
		mu.Lock()
		defer mu.Unlock()
		seen[program] = struct{}{}
		if len(seen) == n {
			start.SetPassedSubscribe()
		}
	}
}

// initialLoad fills the store before the live subscription starts, from the
// newest archive if configured, otherwise with a bulk fetch.
// Changes between the load and the subscribe are only picked up when the
// account changes again.
func initialLoad(ctx context.Context, st simpleblob.Interface, f snapshot.Fetcher, p program, proc *ingest.Processor) error {
	l := logrus.WithField("program", p.name)
	if conf.Snapshot.RestoreOnStart {
		ni, ok, err := snapshot.Latest(ctx, st, p.name)
		if err != nil {
			return errors.Wrap(err, "list archives")
		}
		if ok {
			a, err := snapshot.Load(ctx, st, ni.FullName)
			if err == nil {
				return restore(ctx, l.WithField("archive", ni.FullName), a, proc)
			}
			l.WithError(err).Warn("Newest archive unusable, fetching accounts instead")
		} else {
			l.Info("No archive to restore, fetching accounts")
		}
	}

	a, err := collect(ctx, f, p)
	if err != nil {
		return errors.Wrap(err, "initial fetch")
	}
	return restore(ctx, l, a, proc)
}

func restore(ctx context.Context, l logrus.FieldLogger, a *snapshot.Archive, proc *ingest.Processor) error {
	t0 := time.Now()
	rs, err := snapshot.Restore(ctx, a, proc)
	l = l.WithFields(logrus.Fields{
		"time":          utils.TimeDiff(time.Now(), t0),
		"slot":          a.Meta.Slot,
		"archive_time":  snapshot.TimestampFromNano(a.Meta.TimestampNano),
		"applied":       rs.Applied,
		"skipped":       rs.Skipped,
		"decode_failed": rs.DecodeFailed,
		"store_failed":  rs.StoreFailed,
	})
	if err != nil {
		l.WithError(err).Error("Initial load failed")
		return err
	}
	l.Info("Initial load done")
	utils.GC()
	return nil
}

func periodicSnapshots(ctx context.Context, st simpleblob.Interface, f snapshot.Fetcher, p program) error {
	l := logrus.WithField("program", p.name)
	for {
		if err := utils.SleepContextPerturb(ctx, conf.Snapshot.Interval); err != nil {
			return err
		}
		a, err := collect(ctx, f, p)
		if err != nil {
			if utils.IsCanceled(ctx) {
				return ctx.Err()
			}
			l.WithError(err).Warn("Snapshot fetch failed")
			continue
		}
		name, stats, err := snapshot.Save(ctx, st, a)
		if err != nil {
			if utils.IsCanceled(ctx) {
				return ctx.Err()
			}
			l.WithError(err).Warn("Snapshot store failed")
			continue
		}
		l.WithFields(logrus.Fields{
			"snapshot":        name,
			"accounts":        stats.Entries,
			"protobuf_size":   stats.ProtobufSize.HR(),
			"compressed_size": stats.CompressedSize.HR(),
			"time_compress":   stats.TCompressed.Round(time.Millisecond).String(),
		}).Info("Stored snapshot")
	}
}
