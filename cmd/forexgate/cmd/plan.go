package cmd

import (
	"fmt"
	"io"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/market"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Write trade plans for mentor review",
}

var planSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a trade plan",
	Long: `Submit a trade plan for review. The plan is read from --file (yaml or
json, keys as in the json output) or built from flags.

Example:
  forexgate plan submit -u <id> --pair EUR/USD --direction long \
    --bias "Bullish above the weekly open" \
    --bias-reasoning "Higher highs on H4 after the range break" \
    --setup break-retest --trigger "Engulfing on the 1.1000 retest" \
    --invalidation "Below 1.0950" \
    --invalidation-reasoning "A close below the retest breaks structure" \
    --risk-amount 100 --risk-percent 1 --rr 2`,
	Args: cobra.NoArgs,
	RunE: runPlanSubmit,
}

var (
	planFile      string
	plan          academy.PlanInput
	planDirection string
)

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planSubmitCmd)

	f := planSubmitCmd.Flags()
	f.StringVarP(&planFile, "file", "f", "", "plan file (yaml or json)")
	f.StringVar(&plan.Pair, "pair", "", "currency pair")
	f.StringVar(&planDirection, "direction", "", "long|short")
	f.StringVar(&plan.MarketBias, "bias", "", "market bias")
	f.StringVar(&plan.BiasReasoning, "bias-reasoning", "", "evidence for the bias")
	f.StringVar(&plan.SetupType, "setup", "", "setup or pattern")
	f.StringVar(&plan.EntryTrigger, "trigger", "", "entry trigger")
	f.StringVar(&plan.InvalidationPoint, "invalidation", "", "invalidation point")
	f.StringVar(&plan.InvalidationReasoning, "invalidation-reasoning", "", "why the invalidation point disproves the idea")
	f.Float64Var(&plan.RiskAmount, "risk-amount", 0, "amount at risk")
	f.Float64Var(&plan.RiskPercent, "risk-percent", 0, "percent of balance at risk")
	f.Float64Var(&plan.RiskRewardRatio, "rr", 0, "planned reward to risk")
}

func runPlanSubmit(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	in := plan
	in.Direction = market.Direction(planDirection)
	if planFile != "" {
		if err := readInput(planFile, &in); err != nil {
			return err
		}
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.svc.SubmitPlan(cmd.Context(), id, in)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), p, func(w io.Writer) {
		fmt.Fprintf(w, "Plan %s: %s\n", p.ID, p.Status)
		m := p.Mentoring
		if m == nil {
			return
		}
		fmt.Fprintf(w, "  confidence: %s\n", m.Confidence)
		for _, g := range m.LogicGaps {
			fmt.Fprintf(w, "  gap:        %s\n", g)
		}
		for _, x := range m.Warnings {
			fmt.Fprintf(w, "  warning:    %s\n", x)
		}
		for _, x := range m.Suggestions {
			fmt.Fprintf(w, "  suggestion: %s\n", x)
		}
	})
}
