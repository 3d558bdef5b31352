package cmd

import (
	"fmt"
	"io"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/sim"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Execute, close and review trades",
}

var tradeExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute an approved plan",
	Long: `Execute an approved plan through the risk gate. A blocked execution
prints its blockers and exits successfully; the plan stays approved.

Example:
  forexgate trade execute -u <id> --plan <plan> --entry 1.1000 --stop 1.0950 --target 1.1100 --lots 0.2`,
	Args: cobra.NoArgs,
	RunE: runTradeExecute,
}

var tradeCloseCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Close an open trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeClose,
}

var tradeCancelCmd = &cobra.Command{
	Use:   "cancel <trade-id>",
	Short: "Cancel an open trade without settling it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeCancel,
}

var tradeDebriefCmd = &cobra.Command{
	Use:   "debrief <trade-id>",
	Short: "Record the debrief of a closed trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeDebrief,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades",
	Args:  cobra.NoArgs,
	RunE:  runTradeList,
}

var (
	execIn      academy.ExecuteInput
	execTarget  float64
	closeExit   float64
	closeReason string
	debriefIn   academy.DebriefInput
	listStatus  string
	listSession string
	listLimit   int
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeExecuteCmd, tradeCloseCmd, tradeCancelCmd, tradeDebriefCmd, tradeShowCmd, tradeListCmd)

	f := tradeExecuteCmd.Flags()
	f.StringVar(&execIn.PlanID, "plan", "", "approved plan id (required)")
	f.StringVar(&execIn.SessionID, "session", "", "practice session id")
	f.Float64Var(&execIn.EntryPrice, "entry", 0, "entry price")
	f.Float64Var(&execIn.StopLossPrice, "stop", 0, "stop loss price")
	f.Float64Var(&execTarget, "target", 0, "take profit price")
	f.Float64Var(&execIn.LotSize, "lots", 0, "position size in lots")
	tradeExecuteCmd.MarkFlagRequired("plan")

	tradeCloseCmd.Flags().Float64Var(&closeExit, "exit", 0, "exit price")
	tradeCloseCmd.Flags().StringVar(&closeReason, "reason", "", "tp_hit|sl_hit|manual_exit|time_exit|forced_close (derived when empty)")
	tradeCloseCmd.MarkFlagRequired("exit")

	d := tradeDebriefCmd.Flags()
	d.BoolVar(&debriefIn.FollowedPlan, "followed-plan", false, "the trade followed its plan")
	d.StringVar(&debriefIn.EmotionalState, "emotion", "", "emotional state during the trade")
	d.StringVar(&debriefIn.LessonsLearned, "lessons", "", "lessons learned")
	d.IntVar(&debriefIn.Rating, "rating", 0, "process rating 1-5")

	tradeListCmd.Flags().StringVar(&listStatus, "status", "", "open|closed|cancelled")
	tradeListCmd.Flags().StringVar(&listSession, "session", "", "only trades in this session")
	tradeListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of trades")
}

func runTradeExecute(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	in := execIn
	if cmd.Flags().Changed("target") {
		in.TakeProfitPrice = &execTarget
	}
	res, err := a.svc.ExecuteTrade(cmd.Context(), id, in)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), res, func(w io.Writer) {
		if res.Executed {
			fmt.Fprintf(w, "Executed %s: risk %.2f (%.2f%%), stop %.1f pips\n",
				res.TradeID, res.Calculated.RiskAmount, res.Calculated.RiskPercent, res.Calculated.StopDistancePips)
		} else {
			fmt.Fprintln(w, "Blocked")
		}
		if res.Fill != nil {
			fmt.Fprintf(w, "  fill:     %.5f (spread %.5f, slippage %.5f)\n", res.Fill.ExecutionPrice, res.Fill.Spread, res.Fill.Slippage)
		}
		for _, b := range res.Blockers {
			fmt.Fprintf(w, "  blocker:  %s %s\n", b.Code, b.Msg)
		}
		for _, x := range res.Warnings {
			fmt.Fprintf(w, "  warning:  %s\n", x)
		}
		for _, f := range res.Flags {
			fmt.Fprintf(w, "  flag:     %s [%s] %s\n", f.Type, f.Severity, f.Details)
		}
		if res.Cooldown != nil {
			fmt.Fprintf(w, "  cooldown: %s (%d minutes)\n", res.Cooldown.Name, res.Cooldown.DurationMinutes)
		}
	})
}

func runTradeClose(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.CloseTrade(cmd.Context(), id, args[0], academy.CloseInput{
		ExitPrice:  closeExit,
		ExitReason: sim.ExitReason(closeReason),
	})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), res, func(w io.Writer) {
		t := res.Trade
		fmt.Fprintf(w, "Closed %s (%s): %s\n", t.ID, t.ExitReason, signed(t.PnLAmount))
		fmt.Fprintf(w, "  balance:  %.2f\n", res.State.AccountBalance)
		fmt.Fprintf(w, "  daily:    %.2f\n", res.State.DailyPnL)
		for _, f := range res.Flags {
			fmt.Fprintf(w, "  flag:     %s [%s] %s\n", f.Type, f.Severity, f.Details)
		}
		if res.Cooldown != nil {
			fmt.Fprintf(w, "  cooldown: %s\n", res.Cooldown.Message)
		}
	})
}

func runTradeCancel(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.svc.CancelTrade(cmd.Context(), id, args[0])
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), t, func(w io.Writer) {
		fmt.Fprintf(w, "Cancelled %s\n", t.ID)
	})
}

func runTradeDebrief(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.SubmitDebrief(cmd.Context(), id, args[0], debriefIn); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Debrief recorded for %s\n", args[0])
	return nil
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	t, err := a.svc.Trade(ctx, id, args[0])
	if err != nil {
		return err
	}
	var tp *journal.TradePlan
	if t.PlanID != "" {
		p, err := a.store.GetPlan(ctx, t.PlanID)
		if err != nil {
			return err
		}
		tp = &p
	}
	return render(cmd.OutOrStdout(), t, func(w io.Writer) {
		io.WriteString(w, journal.FormatTradeOrg(t, tp))
	})
}

func runTradeList(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	trades, err := a.svc.Trades(cmd.Context(), journal.TradeFilter{
		UserID:    id,
		SessionID: listSession,
		Status:    journal.TradeStatus(listStatus),
		Limit:     listLimit,
	})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), trades, func(w io.Writer) {
		fmt.Fprintf(w, "%-26s  %-8s  %-5s  %8s  %-9s  %10s\n", "ID", "PAIR", "DIR", "LOTS", "STATUS", "PNL")
		for _, t := range trades {
			fmt.Fprintf(w, "%-26s  %-8s  %-5s  %8.2f  %-9s  %10s\n",
				t.ID, t.Pair, t.Direction, t.LotSize, t.Status, signed(t.PnLAmount))
		}
	})
}

func signed(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f", *v)
}
