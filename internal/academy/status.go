package academy

import (
	"context"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/progression"
	"github.com/forexgate/forexgate/risk"
	"github.com/forexgate/forexgate/stage"
)

type RiskStatus struct {
	Stage             stage.Stage   `json:"stage"`
	AccountBalance    float64       `json:"account_balance"`
	DailyPnL          float64       `json:"daily_pnl"`
	WeeklyPnL         float64       `json:"weekly_pnl"`
	DailyTradeCount   int           `json:"daily_trade_count"`
	OpenPositionCount int           `json:"open_position_count"`
	ConsecutiveLosses int           `json:"consecutive_losses"`
	InCooldown        bool          `json:"in_cooldown"`
	CooldownEndsAt    *time.Time    `json:"cooldown_ends_at,omitempty"`
	CooldownRemaining string        `json:"cooldown_remaining,omitempty"`
	BlockReason       string        `json:"block_reason,omitempty"`
	DailyDrawdown     float64       `json:"daily_drawdown_percent"`
	WeeklyDrawdown    float64       `json:"weekly_drawdown_percent"`
	Limits            *stage.Limits `json:"limits,omitempty"`
}

// RiskStatus reports the live risk state. A lapsed cooldown is shown as
// cleared even before the sweep has written it.
func (s *Service) RiskStatus(ctx context.Context, userID string) (RiskStatus, error) {
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return RiskStatus{}, err
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return RiskStatus{}, fmt.Errorf("load risk profile: %w", err)
	}
	now := s.clock()
	st := prof.State
	reason := prof.BlockReason
	if st.ClearExpiredCooldown(now) {
		reason = ""
	}

	rs := RiskStatus{
		Stage:             cur,
		AccountBalance:    st.AccountBalance,
		DailyPnL:          st.DailyPnL,
		WeeklyPnL:         st.WeeklyPnL,
		DailyTradeCount:   st.DailyTradeCount,
		OpenPositionCount: st.OpenPositionCount,
		ConsecutiveLosses: st.ConsecutiveLosses,
		InCooldown:        st.CooldownActive(now),
		CooldownEndsAt:    st.CooldownEndsAt,
		BlockReason:       reason,
		DailyDrawdown:     market.Round(st.DailyDrawdownPercent(), 2),
		WeeklyDrawdown:    market.Round(st.WeeklyDrawdownPercent(), 2),
	}
	if rs.InCooldown && st.CooldownEndsAt != nil {
		rs.CooldownRemaining = st.CooldownEndsAt.Sub(now).Round(time.Second).String()
	}
	if l, ok := stage.LimitsFor(cur); ok {
		rs.Limits = &l
	}
	return rs, nil
}

// SuggestSize sizes a position at the stage's maximum risk for the given
// stop distance.
func (s *Service) SuggestSize(ctx context.Context, userID, pair string, stopPips float64) (risk.SizeSuggestion, error) {
	if stopPips <= 0 {
		return risk.SizeSuggestion{}, invalid("stop_pips", "gt")
	}
	pair = market.NormalizePair(pair)
	if _, ok := market.Lookup(pair); !ok {
		return risk.SizeSuggestion{}, invalid("pair", "oneof")
	}
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return risk.SizeSuggestion{}, err
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return risk.SizeSuggestion{}, fmt.Errorf("load risk profile: %w", err)
	}
	sz, ok := risk.SuggestPositionSize(prof.State.AccountBalance, cur, stopPips, pair)
	if !ok {
		return risk.SizeSuggestion{}, fmt.Errorf("position sizing at %s: %w", cur, ErrStageLocked)
	}
	return sz, nil
}

func (s *Service) Progress(ctx context.Context, userID string) (progression.Status, error) {
	return s.engine.Status(ctx, userID)
}

func (s *Service) Advance(ctx context.Context, userID string) (stage.Stage, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.engine.Advance(ctx, userID)
}

// Regress moves the user back one stage and records why.
func (s *Service) Regress(ctx context.Context, userID, reason string) (stage.Stage, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	prev, err := s.engine.Regress(ctx, userID, reason)
	if err != nil {
		return "", err
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return prev, fmt.Errorf("load risk profile: %w", err)
	}
	score, err := s.BehaviorScore(ctx, userID)
	if err != nil {
		return prev, err
	}
	details := fmt.Sprintf("Moved back to %s.", prev.Label())
	if reason != "" {
		details = fmt.Sprintf("Moved back to %s: %s", prev.Label(), reason)
	}
	ev := s.riskEvent(userID, journal.EventRegressionTriggered, behavior.Critical, details, prof.State, score)
	if err := s.store.RecordRiskEvent(ctx, &ev); err != nil {
		return prev, fmt.Errorf("record risk event: %w", err)
	}
	return prev, nil
}

// RefreshProgress recomputes a user's behavior score and progression
// status, storing the score on the user record.
func (s *Service) RefreshProgress(ctx context.Context, userID string) (progression.Status, error) {
	if _, err := s.refreshScore(ctx, userID); err != nil {
		return progression.Status{}, err
	}
	st, err := s.engine.Status(ctx, userID)
	if err != nil {
		return progression.Status{}, err
	}
	if st.RegressionRisk {
		s.log.Warn().
			Str("user_id", userID).
			Str("stage", string(st.CurrentStage)).
			Int("behavior_score", st.BehaviorScore).
			Strs("reasons", st.RegressionReasons).
			Msg("regression risk")
	}
	return st, nil
}
