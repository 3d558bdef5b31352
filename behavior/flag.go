// Package behavior detects undisciplined trading patterns and turns the
// resulting flags into a 0-100 behavior score.
package behavior

import "time"

type Severity string

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

type FlagType string

const (
	Overtrading             FlagType = "overtrading"
	RevengeTrading          FlagType = "revenge_trading"
	FOMOEntry               FlagType = "fomo_entry"
	EarlyExit               FlagType = "early_exit"
	SLManipulation          FlagType = "sl_manipulation"
	PositionSizingViolation FlagType = "position_sizing_violation"
	SessionViolation        FlagType = "session_violation"
	EmotionalTrading        FlagType = "emotional_trading"
	PlanDeviation           FlagType = "plan_deviation"
	LossChasing             FlagType = "loss_chasing"
)

type Phase string

const (
	PreTrade  Phase = "pre_trade"
	PostTrade Phase = "post_trade"
)

// Detected is a flag produced by Detect before it is persisted.
type Detected struct {
	Type     FlagType `json:"flag_type"`
	Severity Severity `json:"severity"`
	Details  string   `json:"details"`
}

// Flag is a persisted detection. Only the resolution fields change after
// it is written.
type Flag struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TradeID    string     `json:"trade_id,omitempty"`
	Type       FlagType   `json:"flag_type"`
	Severity   Severity   `json:"severity"`
	Details    string     `json:"details"`
	DetectedAt time.Time  `json:"detected_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// AnyCritical reports whether at least one detection is critical.
func AnyCritical(flags []Detected) bool {
	for _, f := range flags {
		if f.Severity == Critical {
			return true
		}
	}
	return false
}
