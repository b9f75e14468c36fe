package commands

import (
	"fmt"

	"flightsnap/internal/snapshot"
	"flightsnap/pkg/storage"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists the available snapshots with their summary totals.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			store := snapshot.NewStore(cfg.Snapshot.Dir)
			dates, err := store.List()
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no snapshots under %s\n", store.Root())
				return nil
			}

			history, err := storage.Open(cmd.Context(), cfg)
			if err != nil {
				log.Warn("price history unavailable", zap.Error(err))
			}
			if history != nil {
				defer history.Close()
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			header := table.Row{"Date", "Flights", "Routes", "OTAs", "Average price", "Failed routes"}
			if history != nil {
				header = append(header, "History rows")
			}
			t.AppendHeader(header)
			for _, date := range dates {
				var row table.Row
				sum, err := store.LoadSummary(date)
				if err != nil {
					log.Warn("snapshot summary unavailable", zap.String("date", date), zap.Error(err))
					row = table.Row{date, "-", "-", "-", "-", "-"}
				} else {
					row = table.Row{
						date,
						sum.TotalFlights,
						fmt.Sprintf("%d / %d", sum.RoutesWithData, sum.RoutesCovered),
						sum.ActiveOTAs,
						fmt.Sprintf("%.2f %s", sum.AveragePrice, sum.Currency),
						len(sum.FailedRoutes),
					}
				}
				if history != nil {
					row = append(row, historyCount(cmd, history, date, log))
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}
}

func historyCount(cmd *cobra.Command, history storage.History, date string, log *zap.Logger) any {
	n, err := history.Count(cmd.Context(), date)
	if err != nil {
		log.Warn("failed to count price history", zap.String("date", date), zap.Error(err))
		return "-"
	}
	return n
}
