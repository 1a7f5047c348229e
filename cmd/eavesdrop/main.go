// Command eavesdrop demonstrates the event registry against live event
// sources: a scripted dispatch walkthrough, filesystem watches, terminal
// input, and Lua scripting.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "eavesdrop",
		Short:         "In-process event registry demos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML config file")

	root.AddCommand(
		demoCmd(&cfgPath),
		watchCmd(&cfgPath),
		keysCmd(&cfgPath),
		scriptCmd(&cfgPath),
	)
	return root
}
