package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("long", "l", false, "Include the Go version and platform")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Overrides the root one, no config loading needed
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		long, err := cmd.Flags().GetBool("long")
		if err != nil {
			return err
		}
		if long {
			fmt.Printf("%s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		}
		fmt.Println(version)
		return nil
	},
}
