package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"flightsnap/config"
	"flightsnap/internal/snapshot"
	"flightsnap/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitNotFound  = 3
	ExitMalformed = 4
)

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, snapshot.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, snapshot.ErrMalformedData):
		return ExitMalformed
	default:
		return ExitFailure
	}
}

type rootOptions struct {
	configPath   string
	snapshotsDir string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	copts := &compareOptions{}
	cmd := &cobra.Command{
		Use:           "comparator (--date1 YYYYMMDD --date2 YYYYMMDD | --latest)",
		Short:         "comparator compares flight price snapshots collected by the fetcher.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts, copts)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	addCompareFlags(cmd, copts)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (defaults to the config search paths).")
	cmd.PersistentFlags().StringVar(&opts.snapshotsDir, "snapshots-dir", "", "Snapshot root directory (overrides snapshot.dir).")

	cmd.AddCommand(newCompareCmd(opts), newListCmd(opts))
	return cmd
}

// Execute runs the comparator with args and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return ExitCode(err)
}

// load reads the configuration and builds a logger writing to the
// command's stderr, so report tables own stdout.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.snapshotsDir != "" {
		cfg.Snapshot.Dir = o.snapshotsDir
	}
	cfg.Log.Output = "stderr"

	log, err := logger.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
