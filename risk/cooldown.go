package risk

import "time"

const (
	RuleConsecutiveLosses3   = "CONSECUTIVE_LOSSES_3"
	RuleConsecutiveLosses5   = "CONSECUTIVE_LOSSES_5"
	RuleDailyDrawdownWarning = "DAILY_DRAWDOWN_WARNING"
	RuleRevengeTrade         = "REVENGE_TRADE_DETECTED"
	RuleCriticalFlagsSession = "CRITICAL_FLAGS_SESSION"
)

type CooldownRule struct {
	Name            string  `json:"name" yaml:"name"`
	Threshold       float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	DurationMinutes int     `json:"duration_minutes" yaml:"duration_minutes"`
	Message         string  `json:"message" yaml:"message"`
}

func (r CooldownRule) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// CooldownRules is the rule catalog. CRITICAL_FLAGS_SESSION is listed for
// completeness; CheckCooldown never selects it.
var CooldownRules = map[string]CooldownRule{
	RuleConsecutiveLosses3: {
		Name: RuleConsecutiveLosses3, Threshold: 3, DurationMinutes: 30,
		Message: "Cooldown: 3 consecutive losses. Take a break and review.",
	},
	RuleConsecutiveLosses5: {
		Name: RuleConsecutiveLosses5, Threshold: 5, DurationMinutes: 120,
		Message: "Extended cooldown: 5 consecutive losses. Mandatory 2-hour break.",
	},
	RuleDailyDrawdownWarning: {
		Name: RuleDailyDrawdownWarning, Threshold: 2, DurationMinutes: 240,
		Message: "Cooldown: Approaching daily drawdown limit. 4-hour break enforced.",
	},
	RuleRevengeTrade: {
		Name: RuleRevengeTrade, DurationMinutes: 60,
		Message: "Cooldown: Revenge trading detected. 1-hour mandatory break.",
	},
	RuleCriticalFlagsSession: {
		Name: RuleCriticalFlagsSession, Threshold: 2, DurationMinutes: 999,
		Message: "Session terminated: Multiple critical behavioral flags. Trading locked until next session.",
	},
}

// CheckCooldown picks at most one cooldown. Priority: behavior flags, daily
// drawdown, five losses, three losses.
func CheckCooldown(consecutiveLosses int, dailyPnL, balance float64, hasBehaviorFlags bool) (CooldownRule, bool) {
	if hasBehaviorFlags {
		return CooldownRules[RuleRevengeTrade], true
	}

	dd := CooldownRules[RuleDailyDrawdownWarning]
	if drawdownPercent(dailyPnL, balance) >= dd.Threshold {
		return dd, true
	}

	for _, name := range []string{RuleConsecutiveLosses5, RuleConsecutiveLosses3} {
		r := CooldownRules[name]
		if float64(consecutiveLosses) >= r.Threshold {
			return r, true
		}
	}
	return CooldownRule{}, false
}

// Enter puts st into cooldown for rule r starting at now.
func (st *State) Enter(r CooldownRule, now time.Time) {
	ends := now.Add(r.Duration())
	st.InCooldown = true
	st.CooldownEndsAt = &ends
}

// ClearExpiredCooldown drops a lapsed cooldown and reports whether it did.
func (st *State) ClearExpiredCooldown(now time.Time) bool {
	if !st.InCooldown || st.CooldownActive(now) {
		return false
	}
	st.InCooldown = false
	st.CooldownEndsAt = nil
	return true
}
