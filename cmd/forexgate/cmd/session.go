package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/sim"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start and end practice sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a practice session",
	Long: `Start a practice session. Trades executed with --session receive the
session's simulated spread and slippage.

Session types: demo_basic, demo_realistic, market_replay, stress_test`,
	Args: cobra.NoArgs,
	RunE: runSessionStart,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session with its final performance",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionEnd,
}

var (
	sessionType     string
	sessionPair     string
	sessionScenario string
	sessionPerf     academy.EndSessionInput
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd)

	sessionStartCmd.Flags().StringVar(&sessionType, "type", string(sim.DemoBasic), "session type")
	sessionStartCmd.Flags().StringVar(&sessionPair, "pair", "", "currency pair (default EUR/USD)")
	sessionStartCmd.Flags().StringVar(&sessionScenario, "scenario", "", "replay or stress scenario id")

	f := sessionEndCmd.Flags()
	f.IntVar(&sessionPerf.TotalTrades, "trades", 0, "number of trades taken")
	f.Float64Var(&sessionPerf.WinRate, "win-rate", 0, "win rate percent")
	f.Float64Var(&sessionPerf.AvgRR, "avg-rr", 0, "average reward to risk")
	f.Float64Var(&sessionPerf.MaxDrawdown, "max-drawdown", 0, "maximum drawdown percent")
	f.IntVar(&sessionPerf.BehaviorScore, "behavior-score", 100, "behavior score over the session")
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.StartSession(cmd.Context(), id, academy.StartSessionInput{
		Type:       sim.SessionType(sessionType),
		Pair:       sessionPair,
		ScenarioID: sessionScenario,
	})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), s, func(w io.Writer) {
		fmt.Fprintf(w, "Session %s (%s)\n", s.ID, s.Type)
		fmt.Fprintf(w, "  pair:     %s\n", s.Config.Pair)
		fmt.Fprintf(w, "  spread:   %.1f pips\n", s.Config.SpreadPips)
		fmt.Fprintf(w, "  slippage: up to %.1f pips\n", s.Config.SlippagePips)
	})
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.EndSession(cmd.Context(), id, args[0], sessionPerf)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), s, func(w io.Writer) { printSession(w, s) })
}

func printSession(w io.Writer, s journal.SimulationSession) {
	verdict := "PASSED"
	if !s.Passed {
		verdict = "FAILED"
	}
	fmt.Fprintf(w, "Session %s %s\n", s.ID, verdict)
	if len(s.FailureReasons) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(s.FailureReasons, "\n  "))
	}
}
