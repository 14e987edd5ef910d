// Package cli implements the sercha-courses command line: the API server
// plus one-shot commands for asking questions and managing the corpus.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-courses/internal/config"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// options are the persistent flags shared by every command
type options struct {
	configFile string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sercha-courses",
		Short: "Course materials assistant",
		Long: `sercha-courses answers questions about course materials. A language
model decides when to search the indexed lessons, and answers carry the
course and lesson they were drawn from.

Configuration is read from sercha-courses.yaml in the working directory
(or --config) and overridden by environment variables such as
LLM_PROVIDER, LLM_API_KEY, DATABASE_URL and REDIS_URL.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newCoursesCmd(opts),
		newIngestCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sercha-courses %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// loadApp resolves configuration and wires the application for a command
func loadApp(ctx context.Context, cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return newApp(ctx, cfg, logger)
}
