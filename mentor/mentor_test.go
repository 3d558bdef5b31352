package mentor

import (
	"testing"

	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/stage"
	"github.com/stretchr/testify/assert"
)

func goodPlan() Plan {
	return Plan{
		Pair:                  "EUR/USD",
		Direction:             market.Long,
		MarketBias:            "Bullish on the daily",
		BiasReasoning:         "Higher highs and higher lows since the ECB decision",
		SetupType:             "break-retest",
		EntryTrigger:          "Bullish engulfing on the 1H retest of 1.0950",
		InvalidationPoint:     "1.0920",
		InvalidationReasoning: "A close below the retest zone breaks structure",
		RiskPercent:           1,
		RiskRewardRatio:       2,
	}
}

func TestEvaluate_CleanPlan(t *testing.T) {
	t.Parallel()

	r := Evaluate(goodPlan(), stage.SimBasic)

	assert.True(t, r.Approved)
	assert.Equal(t, High, r.Confidence)
	assert.Empty(t, r.Warnings)
	assert.Empty(t, r.LogicGaps)
	assert.Equal(t, []string{Encouragement}, r.Suggestions)
}

func TestEvaluate_BiasConflictNeverApproved(t *testing.T) {
	t.Parallel()

	long := goodPlan()
	long.MarketBias = "Slightly BEARISH but expecting a bounce"

	short := goodPlan()
	short.Direction = market.Short
	short.MarketBias = "bullish"

	for _, p := range []Plan{long, short} {
		r := Evaluate(p, stage.SimBasic)
		assert.False(t, r.Approved)
		assert.Equal(t, Medium, r.Confidence)
		assert.Contains(t, r.Warnings[0], "conflicts")
		assert.Empty(t, r.Suggestions)
	}
}

func TestEvaluate_SubstringHeuristic(t *testing.T) {
	t.Parallel()

	p := goodPlan()
	p.MarketBias = "not bearish at all"

	r := Evaluate(p, stage.SimBasic)

	assert.False(t, r.Approved, "naive substring match is intentional")
}

func TestEvaluate_LogicGaps(t *testing.T) {
	t.Parallel()

	p := goodPlan()
	p.BiasReasoning = "trend is up"
	p.InvalidationReasoning = "below low"
	p.EntryTrigger = "candle"
	p.SetupType = "bo"

	r := Evaluate(p, stage.SimBasic)

	assert.False(t, r.Approved)
	assert.Equal(t, Low, r.Confidence)
	assert.Len(t, r.LogicGaps, 4)
	assert.Equal(t, "Specify which pattern or setup type you are trading.", r.LogicGaps[3])
}

func TestEvaluate_LengthsCountRunes(t *testing.T) {
	t.Parallel()

	p := goodPlan()
	p.SetupType = "ñé" // two runes, four bytes

	r := Evaluate(p, stage.SimBasic)

	assert.Contains(t, r.LogicGaps, "Specify which pattern or setup type you are trading.")
}

func TestEvaluate_WarningsStillApprove(t *testing.T) {
	t.Parallel()

	p := goodPlan()
	p.Pair = "USD/TRY"
	p.RiskPercent = 2.5
	p.RiskRewardRatio = 1.2

	r := Evaluate(p, stage.LiveStandard)

	assert.True(t, r.Approved)
	assert.Equal(t, Medium, r.Confidence)
	assert.Equal(t, []string{
		"Risk-reward ratio of 1.2 is below the recommended minimum of 1.5.",
		"Risking 2.5% per trade. Consider keeping risk at or below 1%.",
		"Exotic pairs have wider spreads and lower liquidity.",
	}, r.Warnings)
	assert.Empty(t, r.Suggestions)
}

func TestEvaluate_HighTargetSuggestion(t *testing.T) {
	t.Parallel()

	p := goodPlan()
	p.RiskRewardRatio = 6

	r := Evaluate(p, stage.SimBasic)

	assert.True(t, r.Approved)
	assert.Equal(t, High, r.Confidence)
	assert.Len(t, r.Suggestions, 1)
	assert.Contains(t, r.Suggestions[0], ">5:1")
}
