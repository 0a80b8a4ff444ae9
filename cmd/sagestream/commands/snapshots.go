package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/ingest"
	"github.com/sagestream/sagestream/registry"
	"github.com/sagestream/sagestream/snapshot"
	"github.com/sagestream/sagestream/snapshot/cleaner"
	"github.com/sagestream/sagestream/utils"
)

func init() {
	rootCmd.AddCommand(snapshotsCmd)

	snapshotsCmd.AddCommand(snapshotsCreateCmd)
	snapshotsCreateCmd.Flags().StringP("program", "p", "", "Only snapshot this program")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsListCmd.Flags().StringP("prefix", "p", "", "Prefix filter")
	snapshotsListCmd.Flags().BoolP("long", "l", false, "Add extra information, like size")
	snapshotsListCmd.Flags().BoolP("time", "t", false, "Sort by snapshot time")

	snapshotsCmd.AddCommand(snapshotsRemoveCmd)

	snapshotsCmd.AddCommand(snapshotsDumpCmd)
	snapshotsDumpCmd.Flags().StringP("type", "T", "", "Only output accounts of this type name")
	snapshotsDumpCmd.Flags().BoolP("local", "l", false,
		"Dump a local file instead of a remote snapshot")
	snapshotsDumpCmd.Flags().Int("max-data", 32, "Maximum number of data bytes to display per account")

	snapshotsCmd.AddCommand(snapshotsRestoreCmd)
	snapshotsRestoreCmd.Flags().BoolP("local", "l", false,
		"Restore a local file instead of a remote snapshot")

	snapshotsCmd.AddCommand(snapshotsGetCmd)
	snapshotsGetCmd.Flags().StringP("output", "o", "",
		"Output filename, if not the same as the remote name")

	snapshotsCmd.AddCommand(snapshotsPutCmd)
	snapshotsPutCmd.Flags().StringP("name", "n", "",
		"Name to store the snapshot as, if different from the local name")
	snapshotsPutCmd.Flags().Bool("force", false, "Force the use of an invalid snapshot name")

	snapshotsCmd.AddCommand(snapshotsCleanCmd)
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Snapshot archive operations (create, list, dump, restore, etc)",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var snapshotsCreateCmd = &cobra.Command{
	Use:          "create",
	Short:        "Fetch all accounts and store them as snapshot archives",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		only, err := cmd.Flags().GetString("program")
		if err != nil {
			return err
		}
		progs, err := programs(registry.Default(), only)
		if err != nil {
			return err
		}
		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		client := newClient()
		for _, p := range progs {
			a, err := collect(ctx, client, p)
			if err != nil {
				return fmt.Errorf("program %q: %w", p.name, err)
			}
			name, stats, err := snapshot.Save(ctx, st, a)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"program":         p.name,
				"slot":            a.Meta.Slot,
				"accounts":        stats.Entries,
				"compressed_size": stats.CompressedSize.HR(),
			}).Info("Stored snapshot")
			fmt.Println(name)
		}
		return nil
	},
}

var snapshotsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List snapshots",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}

		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			return err
		}
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return err
		}
		byTime, err := cmd.Flags().GetBool("time")
		if err != nil {
			return err
		}

		list, err := st.List(ctx, prefix)
		if err != nil {
			return err
		}
		if byTime {
			sortByTime(list)
		}

		for _, blob := range list {
			if long {
				fmt.Printf("%12d\t%s\n", blob.Size, blob.Name)
			} else {
				fmt.Printf("%s\n", blob.Name)
			}
		}
		return nil
	},
}

var snapshotsRemoveCmd = &cobra.Command{
	Use:          "remove",
	Short:        "Remove snapshot",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		return st.Delete(ctx, args[0])
	},
}

// loadArchive loads a remote archive, or a local file if local is set
func loadArchive(ctx context.Context, name string, local bool) (*snapshot.Archive, error) {
	if local {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		return snapshot.Decode(data)
	}
	st, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Load(ctx, st, name)
}

var snapshotsDumpCmd = &cobra.Command{
	Use:          "dump",
	Short:        "Dump snapshot contents for debugging",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		typeName, err := cmd.Flags().GetString("type")
		if err != nil {
			return err
		}
		local, err := cmd.Flags().GetBool("local")
		if err != nil {
			return err
		}
		maxData, err := cmd.Flags().GetInt("max-data")
		if err != nil {
			return err
		}

		a, err := loadArchive(ctx, args[0], local)
		if err != nil {
			return err
		}

		reg := registry.Default()
		discs := a.Discriminators()
		if typeName != "" {
			e, ok := reg.ByName(typeName)
			if !ok {
				return fmt.Errorf("unknown account type: %s", typeName)
			}
			discs = lo.Filter(discs, func(d account.Discriminator, _ int) bool {
				return d == e.Discriminator
			})
		}

		// Buffered output speeds things up
		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()
		outf := func(sfmt string, args ...any) {
			_, _ = fmt.Fprintf(out, sfmt, args...)
		}

		outf("%+v\n", a.Meta)
		outf("format_version=%d entries=%d taken=%s\n",
			a.FormatVersion, a.Len(), time.Unix(0, int64(a.Meta.TimestampNano)).UTC())
		for _, d := range discs {
			name := "unknown"
			if e, ok := reg.Lookup(d); ok {
				name = e.Name
			}
			entries := a.Groups[d]
			outf("\n### %s (%s, %d accounts)\n\n", name, d, len(entries))
			for _, e := range entries {
				outf("%s  lamports=%d owner=%s len=%d  %s\n",
					e.Pubkey,
					e.Account.Lamports,
					utils.ShortKey(e.Account.Owner.String()),
					len(e.Account.Data),
					utils.DisplayData(e.Account.Data, maxData),
				)
			}
		}
		return nil
	},
}

var snapshotsRestoreCmd = &cobra.Command{
	Use:          "restore",
	Short:        "Replay a snapshot into the projection store",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		local, err := cmd.Flags().GetBool("local")
		if err != nil {
			return err
		}
		a, err := loadArchive(ctx, args[0], local)
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

		proc := ingest.NewProcessor(registry.Default(), store, ingest.Options{
			Program:     a.Meta.Program,
			RawAccounts: conf.Store.RawAccounts,
			Logger:      logrus.StandardLogger(),
		})
		l := logrus.WithFields(logrus.Fields{
			"program":  a.Meta.Program,
			"snapshot": args[0],
		})
		return restore(ctx, l, a, proc)
	},
}

var snapshotsGetCmd = &cobra.Command{
	Use:          "get",
	Short:        "Download a snapshot",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		outName, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if outName == "" {
			outName = args[0]
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		data, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}
		return os.WriteFile(outName, data, 0666)
	},
}

var snapshotsPutCmd = &cobra.Command{
	Use:          "put",
	Short:        "Upload a snapshot",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		name, err := cmd.Flags().GetString("name")
		if err != nil {
			return err
		}
		if name == "" {
			name = filepath.Base(args[0])
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		if _, err = snapshot.ParseName(name); err != nil {
			if !force {
				return fmt.Errorf(
					"invalid snapshot name (use -n to specify a different one, or "+
						"--force to skip this check): %v", err)
			}
			logrus.WithError(err).Warn("Invalid snapshot name forced")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		// Refuse to upload something that would fail to restore
		if _, err := snapshot.Decode(data); err != nil && !force {
			return fmt.Errorf("invalid snapshot contents (use --force to skip this check): %v", err)
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		return st.Store(ctx, name, data)
	},
}

var snapshotsCleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove old snapshots, keeping snapshot.keep_last per program",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Minute)
		defer cancel()

		if conf.Snapshot.KeepLast <= 0 {
			return fmt.Errorf("snapshot.keep_last is not set, refusing to clean")
		}
		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		for _, name := range lo.Keys(conf.Programs) {
			w := cleaner.New(name, st, cleaner.Options{
				KeepLast: conf.Snapshot.KeepLast,
				OneShot:  true,
			}, logrus.StandardLogger())
			if err := w.RunOnce(ctx, time.Now()); err != nil {
				return err
			}
		}
		return nil
	},
}

func sortByTime(list simpleblob.BlobList) {
	slices.SortFunc(list, func(a, b simpleblob.Blob) int {
		na, errA := snapshot.ParseName(a.Name)
		nb, errB := snapshot.ParseName(b.Name)
		switch {
		case errA != nil && errB != nil:
			// Invalid names are sorted by name
			if a.Name < b.Name {
				return -1
			}
			if a.Name > b.Name {
				return 1
			}
			return 0
		case errA != nil:
			// Invalid names come before valid names
			return -1
		case errB != nil:
			return 1
		}
		return na.Timestamp.Compare(nb.Timestamp)
	})
}
