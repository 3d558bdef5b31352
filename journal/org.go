package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/forexgate/forexgate/market"
)

// FormatTradeOrg renders a trade as an Org-mode block for a personal
// journal. Structured facts go in the PROPERTIES drawer. When the plan is
// known its reasoning fills the Thesis and Execution sections.
func FormatTradeOrg(t Trade, plan *TradePlan) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Pair, strings.ToUpper(string(t.Direction)), shortID(t.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":TYPE: %s\n", t.Type)
	fmt.Fprintf(&b, ":PAIR: %s\n", t.Pair)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", t.Direction)
	fmt.Fprintf(&b, ":LOTS: %.2f\n", t.LotSize)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", market.FormatPrice(t.EntryPrice, t.Pair))
	fmt.Fprintf(&b, ":STOP_LOSS: %s\n", market.FormatPrice(t.StopLossPrice, t.Pair))
	if t.TakeProfitPrice != nil {
		fmt.Fprintf(&b, ":TAKE_PROFIT: %s\n", market.FormatPrice(*t.TakeProfitPrice, t.Pair))
	}
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339))
	if t.ExitPrice != nil {
		fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", market.FormatPrice(*t.ExitPrice, t.Pair))
	}
	if t.ExitTime != nil {
		fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":RISK: %.2f (%.2f%%)\n", t.RiskAmount, t.RiskPercent)
	if t.PnLPips != nil {
		fmt.Fprintf(&b, ":PNL_PIPS: %s\n", market.FormatPips(*t.PnLPips))
	}
	if t.PnLAmount != nil {
		fmt.Fprintf(&b, ":PNL: %.2f\n", *t.PnLAmount)
	}
	if t.ExitReason != "" {
		fmt.Fprintf(&b, ":EXIT_REASON: %s\n", t.ExitReason)
	}
	fmt.Fprintf(&b, ":STATUS: %s\n", t.Status)
	if len(t.BehaviorFlags) > 0 {
		fmt.Fprintf(&b, ":FLAGS: %s\n", strings.Join(t.BehaviorFlags, " "))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")

	thesis, execution := "- ", "- "
	if plan != nil {
		thesis = fmt.Sprintf("- Bias: %s\n- %s", plan.MarketBias, plan.BiasReasoning)
		execution = fmt.Sprintf("- Setup: %s\n- Trigger: %s\n- Invalid if: %s (%s)",
			plan.SetupType, plan.EntryTrigger, plan.InvalidationPoint, plan.InvalidationReasoning)
	}
	review := "- "
	if t.Debrief.Completed {
		review = fmt.Sprintf("- Followed plan: %t\n- Rating: %d\n- %s", t.Debrief.FollowedPlan, t.Debrief.Rating, t.Debrief.LessonsLearned)
	}
	fmt.Fprintf(&b, "*** Thesis\n%s\n\n", thesis)
	fmt.Fprintf(&b, "*** Execution\n%s\n\n", execution)
	fmt.Fprintf(&b, "*** Review\n%s\n", review)

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines. plans
// is keyed by plan id and may be nil.
func FormatTradesOrg(trades []Trade, plans map[string]TradePlan) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		var plan *TradePlan
		if p, ok := plans[t.PlanID]; ok {
			plan = &p
		}
		b.WriteString(FormatTradeOrg(t, plan))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
