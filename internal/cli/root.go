// Package cli implements the queuectl command tree.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	json bool
	open Opener
}

// NewRootCmd builds the command tree. A nil open uses OpenFromEnv.
func NewRootCmd(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromEnv
	}
	opts := &rootOptions{open: open}

	rootCmd := &cobra.Command{
		Use:          "queuectl",
		Short:        "A local background job queue with retries and a dead letter queue",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	rootCmd.AddCommand(enqueueCmd(opts))
	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(getCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(workerCmd(opts))
	rootCmd.AddCommand(dlqCmd(opts))
	rootCmd.AddCommand(configCmd(opts))
	return rootCmd
}

// wordSepNormalizeFunc makes --max_retries an alias of --max-retries, matching
// the config key spelling.
func wordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute is the entry point called from cmd/queuectl/main.go.
func Execute() {
	if err := NewRootCmd(nil).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// withSession opens a session for the duration of fn.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(*Session, printer) error) error {
	s, err := o.open(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, printer{w: cmd.OutOrStdout(), json: o.json})
}
