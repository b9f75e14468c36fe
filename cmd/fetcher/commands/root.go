package commands

import (
	"context"
	"fmt"
	"io"

	"flightsnap/config"
	"flightsnap/internal/fetcher"
	"flightsnap/internal/snapshot"
	"flightsnap/logger"
	"flightsnap/pkg/archive"
	"flightsnap/pkg/storage"
	"flightsnap/pkg/travelpayouts"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath   string
	snapshotsDir string
	date         string
}

// NewRootCmd returns the fetcher command. It collects one snapshot of the
// configured routes and prints the collection report to stdout.
func NewRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "fetcher",
		Short:         "fetcher collects the latest flight prices into a dated snapshot.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.snapshotsDir != "" {
				cfg.Snapshot.Dir = opts.snapshotsDir
			}
			if opts.date != "" {
				if _, err := snapshot.ParseDate(opts.date); err != nil {
					return err
				}
			}
			if cfg.IsProd() {
				store, err := config.NewSSMParameterStore(cmd.Context())
				if err != nil {
					return err
				}
				if err := config.ResolveSecrets(cmd.Context(), cfg, store); err != nil {
					return err
				}
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer log.Sync()

			return run(cmd.Context(), cfg, opts, log, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (defaults to the config search paths).")
	cmd.Flags().StringVar(&opts.snapshotsDir, "snapshots-dir", "", "Snapshot root directory (overrides snapshot.dir).")
	cmd.Flags().StringVar(&opts.date, "date", "", "Publish under this date key (YYYYMMDD) instead of today.")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts *options, log *zap.Logger, stdout io.Writer) error {
	tp := cfg.Travelpayouts
	if tp.Token == "" {
		return fmt.Errorf("%w: set TRAVELPAYOUTS_TOKEN", travelpayouts.ErrMissingToken)
	}
	if _, err := travelpayouts.ParseSorting(tp.Sorting); err != nil {
		return err
	}

	client := travelpayouts.NewClient(travelpayouts.Options{
		BaseURL:   tp.BaseURL,
		Token:     tp.Token,
		Timeout:   tp.Timeout,
		UserAgent: tp.UserAgent,
	})

	var fopts []fetcher.Option
	if opts.date != "" {
		fopts = append(fopts, fetcher.WithDate(opts.date))
	}

	// history and archive are optional: a setup failure only disables them
	sink, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Warn("price history disabled", zap.String("driver", cfg.History.Driver), zap.Error(err))
	} else if sink != nil {
		defer sink.Close()
		fopts = append(fopts, fetcher.WithHistorySink(sink))
	}
	if cfg.Archive.Enabled {
		arch, err := archive.NewFromConfig(ctx, cfg.Archive)
		if err != nil {
			log.Warn("snapshot archive disabled", zap.String("bucket", cfg.Archive.Bucket), zap.Error(err))
		} else {
			fopts = append(fopts, fetcher.WithArchiver(arch))
		}
	}

	f := fetcher.New(cfg, client, snapshot.NewStore(cfg.Snapshot.Dir), log, fopts...)
	res, err := f.Run(ctx)
	if err != nil {
		return err
	}
	fetcher.RenderReport(stdout, res)
	return nil
}
