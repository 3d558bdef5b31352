// Package mentor reviews a trade plan before it is executed and returns
// structured feedback.
package mentor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/stage"
)

type Confidence string

const (
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

const Encouragement = "Plan looks structured. Execute with discipline and respect your invalidation point."

type Plan struct {
	Pair                  string           `json:"pair"`
	Direction             market.Direction `json:"direction"`
	MarketBias            string           `json:"market_bias"`
	BiasReasoning         string           `json:"bias_reasoning"`
	SetupType             string           `json:"setup_type"`
	EntryTrigger          string           `json:"entry_trigger"`
	InvalidationPoint     string           `json:"invalidation_point"`
	InvalidationReasoning string           `json:"invalidation_reasoning"`
	RiskPercent           float64          `json:"risk_percent"`
	RiskRewardRatio       float64          `json:"risk_reward_ratio"`
}

type Response struct {
	Approved    bool       `json:"approved"`
	Confidence  Confidence `json:"confidence"`
	Warnings    []string   `json:"warnings"`
	LogicGaps   []string   `json:"logic_gaps"`
	Suggestions []string   `json:"suggestions"`
}

// Evaluate reviews p. The stage is accepted so callers always pass it; the
// current rules are the same at every stage.
func Evaluate(p Plan, _ stage.Stage) Response {
	r := Response{
		Warnings:    []string{},
		LogicGaps:   []string{},
		Suggestions: []string{},
	}

	if utf8.RuneCountInString(p.BiasReasoning) < 20 {
		r.LogicGaps = append(r.LogicGaps, "Your market bias reasoning is too brief. Explain what evidence supports your directional view.")
	}
	if utf8.RuneCountInString(p.InvalidationReasoning) < 15 {
		r.LogicGaps = append(r.LogicGaps, "Your invalidation reasoning needs more detail. What specifically would prove your thesis wrong?")
	}
	if utf8.RuneCountInString(p.EntryTrigger) < 10 {
		r.LogicGaps = append(r.LogicGaps, "Entry trigger is vague. What specific price action or condition will trigger your entry?")
	}

	conflict := false
	bias := strings.ToLower(p.MarketBias)
	if (p.Direction == market.Long && strings.Contains(bias, "bearish")) ||
		(p.Direction == market.Short && strings.Contains(bias, "bullish")) {
		r.Warnings = append(r.Warnings, "Your trade direction conflicts with your stated market bias. Review your analysis.")
		conflict = true
	}

	if p.RiskRewardRatio < 1.5 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Risk-reward ratio of %s is below the recommended minimum of 1.5.", num(p.RiskRewardRatio)))
	}
	if p.RiskRewardRatio > 5 {
		r.Suggestions = append(r.Suggestions, "Very high R:R targets (>5:1) have lower probability of being hit. Ensure your target is realistic.")
	}
	if p.RiskPercent > 1 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Risking %s%% per trade. Consider keeping risk at or below 1%%.", num(p.RiskPercent)))
	}
	if market.IsExotic(p.Pair) {
		r.Warnings = append(r.Warnings, "Exotic pairs have wider spreads and lower liquidity.")
	}
	if utf8.RuneCountInString(p.SetupType) < 3 {
		r.LogicGaps = append(r.LogicGaps, "Specify which pattern or setup type you are trading.")
	}

	r.Approved = len(r.LogicGaps) == 0 && !conflict
	switch {
	case len(r.LogicGaps) > 0:
		r.Confidence = Low
	case len(r.Warnings) > 0:
		r.Confidence = Medium
	default:
		r.Confidence = High
	}

	if r.Approved && len(r.Warnings) == 0 && len(r.Suggestions) == 0 {
		r.Suggestions = append(r.Suggestions, Encouragement)
	}
	return r
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
