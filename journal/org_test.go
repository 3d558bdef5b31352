package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/sim"
	"github.com/stretchr/testify/assert"
)

func closedTrade() Trade {
	exit := time.Date(2025, 3, 4, 11, 30, 0, 0, time.UTC)
	return Trade{
		ID:              "01HV3ZK8Q6W2M7E4T9A1B2C3D4",
		Type:            DemoBasic,
		Pair:            "EUR/USD",
		Direction:       market.Long,
		EntryPrice:      1.1,
		EntryTime:       time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
		ExitPrice:       ptr(1.105),
		ExitTime:        &exit,
		LotSize:         0.2,
		StopLossPrice:   1.095,
		TakeProfitPrice: ptr(1.11),
		RiskAmount:      100,
		RiskPercent:     1,
		PnLPips:         ptr(50.0),
		PnLAmount:       ptr(100.0),
		ExitReason:      sim.ManualExit,
		Status:          TradeClosed,
		BehaviorFlags:   []string{"early_exit"},
	}
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradeOrg(closedTrade(), nil)

	assert.True(t, strings.HasPrefix(out, "** Trade: EUR/USD LONG (01HV3ZK8)\n"))
	assert.Contains(t, out, ":TRADE_ID: 01HV3ZK8Q6W2M7E4T9A1B2C3D4\n")
	assert.Contains(t, out, ":ENTRY_PRICE: 1.10000\n")
	assert.Contains(t, out, ":EXIT_PRICE: 1.10500\n")
	assert.Contains(t, out, ":TAKE_PROFIT: 1.11000\n")
	assert.Contains(t, out, ":OPEN_TIME: 2025-03-04T10:00:00Z\n")
	assert.Contains(t, out, ":CLOSE_TIME: 2025-03-04T11:30:00Z\n")
	assert.Contains(t, out, ":PNL_PIPS: +50.0 pips\n")
	assert.Contains(t, out, ":PNL: 100.00\n")
	assert.Contains(t, out, ":EXIT_REASON: manual_exit\n")
	assert.Contains(t, out, ":FLAGS: early_exit\n")
	assert.Contains(t, out, "*** Thesis\n- \n\n")
	assert.Contains(t, out, "*** Review\n- \n")
}

func TestFormatTradeOrg_OpenTradeWithPlan(t *testing.T) {
	t.Parallel()

	tr := closedTrade()
	tr.ExitPrice, tr.ExitTime, tr.PnLPips, tr.PnLAmount = nil, nil, nil, nil
	tr.ExitReason, tr.Status, tr.BehaviorFlags = "", TradeOpen, nil
	tr.Debrief = Debrief{}
	plan := &TradePlan{
		MarketBias:            "bullish",
		BiasReasoning:         "higher highs on H4",
		SetupType:             "break-retest",
		EntryTrigger:          "engulfing on retest",
		InvalidationPoint:     "1.0950",
		InvalidationReasoning: "structure broken",
	}

	out := FormatTradeOrg(tr, plan)

	assert.NotContains(t, out, ":EXIT_PRICE:")
	assert.NotContains(t, out, ":PNL:")
	assert.NotContains(t, out, ":FLAGS:")
	assert.Contains(t, out, "*** Thesis\n- Bias: bullish\n- higher highs on H4\n")
	assert.Contains(t, out, "- Invalid if: 1.0950 (structure broken)")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	a := closedTrade()
	b := closedTrade()
	b.ID = "short"
	b.PlanID = "p1"
	out := FormatTradesOrg([]Trade{a, b}, map[string]TradePlan{"p1": {MarketBias: "bearish"}})

	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Contains(t, out, "(short)")
	assert.Contains(t, out, "\n\n\n** Trade: EUR/USD LONG (short)")
	assert.Equal(t, 1, strings.Count(out, "- Bias: bearish"))
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("1234567890"))
}
