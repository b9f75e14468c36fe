package commands

import (
	"errors"
	"fmt"

	"flightsnap/internal/compare"
	"flightsnap/internal/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type compareOptions struct {
	date1     string
	date2     string
	latest    bool
	mode      string
	match     string
	outputDir string
	format    string
	top       int
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare (--date1 YYYYMMDD --date2 YYYYMMDD | --latest)",
		Short: "Compares two snapshots and writes the price change report.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, root, opts)
		},
	}
	addCompareFlags(cmd, opts)
	return cmd
}

// addCompareFlags registers the comparison flags on cmd. The root command
// carries them too, so "comparator --date1 ... --date2 ..." works without
// the compare subcommand.
func addCompareFlags(cmd *cobra.Command, opts *compareOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.date1, "date1", "", "Earlier snapshot date (YYYYMMDD).")
	f.StringVar(&opts.date2, "date2", "", "Later snapshot date (YYYYMMDD).")
	f.BoolVar(&opts.latest, "latest", false, "Compare the two most recent snapshots.")
	f.StringVar(&opts.mode, "mode", "", "Report mode: pairwise, ota_analysis, route_analysis or full.")
	f.StringVar(&opts.match, "match", "", "Join key: route_ota or flight.")
	f.StringVar(&opts.outputDir, "output-dir", "", "Directory for report files (overrides report.output_dir).")
	f.StringVar(&opts.format, "format", "", "Report file format: csv, json or none.")
	f.IntVar(&opts.top, "top", 0, "Number of biggest increases and decreases to show.")
	cmd.MarkFlagsRequiredTogether("date1", "date2")
	cmd.MarkFlagsMutuallyExclusive("date1", "latest")
}

func orDefault(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func runCompare(cmd *cobra.Command, root *rootOptions, opts *compareOptions) error {
	if !opts.latest && (opts.date1 == "" || opts.date2 == "") {
		return errors.New("either --date1 and --date2 or --latest is required")
	}

	cfg, log, err := root.load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	mode, err := compare.ParseMode(orDefault(opts.mode, cfg.Report.Mode))
	if err != nil {
		return err
	}
	match, err := compare.ParseMatchMode(orDefault(opts.match, cfg.Report.Match))
	if err != nil {
		return err
	}
	format := orDefault(opts.format, cfg.Report.Format)
	switch format {
	case compare.FormatCSV, compare.FormatJSON, compare.FormatNone:
	default:
		return fmt.Errorf("invalid format %q: expected csv, json or none", format)
	}
	top := opts.top
	if top <= 0 {
		top = cfg.Report.TopN
	}
	outputDir := orDefault(opts.outputDir, cfg.Report.OutputDir)

	c := compare.NewComparator(snapshot.NewStore(cfg.Snapshot.Dir), log)
	copts := compare.Options{Match: match, TopN: top}

	var res *compare.Result
	if opts.latest {
		res, err = c.CompareLatest(copts)
	} else {
		res, err = c.CompareDates(opts.date1, opts.date2, copts)
	}
	if err != nil {
		log.Error("comparison failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	compare.Render(out, res, mode)

	paths, err := compare.WriteFiles(outputDir, res, format)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, p := range paths {
		log.Info("report written", zap.String("path", p))
		fmt.Fprintf(out, "report: %s\n", p)
	}
	return nil
}
