package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/forexgate/forexgate/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Export the trade journal",
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export trades as org-mode or CSV",
	Long: `Export a learner's trades. Org output carries each trade's plan and
debrief; CSV carries one row per trade.

Examples:
  forexgate journal export -u <id> --format org --day 2026-03-02
  forexgate journal export -u <id> --format csv --out trades.csv`,
	Args: cobra.NoArgs,
	RunE: runJournalExport,
}

var (
	exportFormat string
	exportDay    string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalExportCmd.Flags().StringVar(&exportFormat, "format", "org", "org|csv")
	journalExportCmd.Flags().StringVar(&exportDay, "day", "", "only trades closed on this UTC day (YYYY-MM-DD)")
	journalExportCmd.Flags().StringVar(&exportOut, "out", "", "write to file instead of stdout")
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	if exportFormat != "org" && exportFormat != "csv" {
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var trades []journal.Trade
	if exportDay != "" {
		day, err := time.Parse(time.DateOnly, exportDay)
		if err != nil {
			return fmt.Errorf("invalid --day: %w", err)
		}
		trades, err = a.store.ListTradesClosedBetween(ctx, id, day, day.Add(24*time.Hour))
		if err != nil {
			return err
		}
	} else {
		trades, err = a.svc.Trades(ctx, journal.TradeFilter{UserID: id})
		if err != nil {
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if exportFormat == "csv" {
		return journal.WriteTradesCSV(w, trades)
	}
	plans, err := a.store.ListPlans(ctx, id, "")
	if err != nil {
		return err
	}
	byID := make(map[string]journal.TradePlan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	_, err = io.WriteString(w, journal.FormatTradesOrg(trades, byID))
	return err
}
