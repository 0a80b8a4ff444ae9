package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/projection"
	"github.com/sagestream/sagestream/registry"
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeChildrenCmd)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the projection store",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// withReader opens the configured store and runs fn if it can be queried
func withReader(ctx context.Context, fn func(r projection.Reader) error) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Store close failed")
		}
	}()
	r, ok := store.(projection.Reader)
	if !ok {
		return fmt.Errorf("store type %q cannot be queried", conf.Store.Type)
	}
	return fn(r)
}

func printRow(row projection.Row) {
	for _, f := range row {
		fmt.Printf("  %-24s %v\n", f.Name, f.Value)
	}
}

var storeStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show the number of rows per relation",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		return withReader(ctx, func(r projection.Reader) error {
			for _, name := range relations(registry.Default()) {
				n, err := r.Count(ctx, name)
				if err != nil {
					return fmt.Errorf("count %s: %w", name, err)
				}
				fmt.Printf("%-24s %12d\n", name, n)
			}
			return nil
		})
	},
}

var storeGetCmd = &cobra.Command{
	Use:          "get <relation> <pubkey>",
	Short:        "Print a projected row",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		id, err := account.ParsePubkey(args[1])
		if err != nil {
			return err
		}
		return withReader(ctx, func(r projection.Reader) error {
			row, err := r.Get(ctx, args[0], id)
			if err != nil {
				return err
			}
			fmt.Printf("### %s %s\n", args[0], id)
			printRow(row)
			return nil
		})
	},
}

var storeChildrenCmd = &cobra.Command{
	Use:          "children <relation> <parent>",
	Short:        "Print the projected child rows of a parent account",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		parent, err := account.ParsePubkey(args[1])
		if err != nil {
			return err
		}
		return withReader(ctx, func(r projection.Reader) error {
			rows, err := r.Children(ctx, args[0], parent)
			if err != nil {
				return err
			}
			for i, row := range rows {
				fmt.Printf("### %s %s [%d]\n", args[0], parent, i)
				printRow(row)
			}
			return nil
		})
	},
}
