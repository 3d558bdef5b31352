package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Inspect risk state and size positions",
}

var riskStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live risk state and stage limits",
	Args:  cobra.NoArgs,
	RunE:  runRiskStatus,
}

var riskSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Suggest a position size at the stage's maximum risk",
	Long: `Suggest a position size for a stop distance, sized at the current
stage's maximum risk per trade and clamped to its lot cap.

Example:
  forexgate risk size -u <id> --pair EUR/USD --stop-pips 50`,
	Args: cobra.NoArgs,
	RunE: runRiskSize,
}

var (
	sizePair     string
	sizeStopPips float64
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskStatusCmd, riskSizeCmd)

	riskSizeCmd.Flags().StringVar(&sizePair, "pair", "EUR/USD", "currency pair")
	riskSizeCmd.Flags().Float64Var(&sizeStopPips, "stop-pips", 0, "stop distance in pips")
	riskSizeCmd.MarkFlagRequired("stop-pips")
}

func runRiskStatus(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.svc.RiskStatus(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), st, func(w io.Writer) {
		fmt.Fprintf(w, "Stage:              %s\n", st.Stage.Label())
		fmt.Fprintf(w, "Balance:            %.2f\n", st.AccountBalance)
		fmt.Fprintf(w, "Daily P&L:          %+.2f (%.2f%% drawdown)\n", st.DailyPnL, st.DailyDrawdown)
		fmt.Fprintf(w, "Weekly P&L:         %+.2f (%.2f%% drawdown)\n", st.WeeklyPnL, st.WeeklyDrawdown)
		fmt.Fprintf(w, "Trades today:       %d\n", st.DailyTradeCount)
		fmt.Fprintf(w, "Open positions:     %d\n", st.OpenPositionCount)
		fmt.Fprintf(w, "Consecutive losses: %d\n", st.ConsecutiveLosses)
		if st.InCooldown {
			fmt.Fprintf(w, "Cooldown:           %s remaining (%s)\n", st.CooldownRemaining, st.BlockReason)
		}
		if l := st.Limits; l != nil {
			fmt.Fprintln(w, "Limits:")
			fmt.Fprintf(w, "  risk per trade    %.2f%%\n", l.MaxRiskPerTradePercent)
			fmt.Fprintf(w, "  daily drawdown    %.2f%%\n", l.MaxDailyDrawdownPercent)
			fmt.Fprintf(w, "  weekly drawdown   %.2f%%\n", l.MaxWeeklyDrawdownPercent)
			fmt.Fprintf(w, "  open positions    %d\n", l.MaxOpenPositions)
			fmt.Fprintf(w, "  trades per day    %d\n", l.MaxDailyTrades)
			fmt.Fprintf(w, "  min reward:risk   %.1f\n", l.MinRiskRewardRatio)
			fmt.Fprintf(w, "  max lots          %.2f\n", l.MaxLotSize)
		}
	})
}

func runRiskSize(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.SuggestSize(cmd.Context(), id, sizePair, sizeStopPips)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), s, func(w io.Writer) {
		fmt.Fprintf(w, "%.2f lots (risk %.2f, %.2f%%)\n", s.Lots, s.RiskAmount, s.RiskPercent)
	})
}
