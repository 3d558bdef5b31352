package academy

import (
	"context"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/risk"
)

// BehaviorScore returns the user's 30-day behavior score, served from the
// cache when fresh.
func (s *Service) BehaviorScore(ctx context.Context, userID string) (int, error) {
	if v, ok := s.scores.Get(userID); ok {
		return v.(int), nil
	}
	now := s.clock()
	flags, err := s.store.ListFlags(ctx, userID, now.Add(-behavior.ScoreWindow))
	if err != nil {
		return 0, fmt.Errorf("load flags: %w", err)
	}
	score := behavior.WindowedScore(flags, now, behavior.ScoreWindow)
	s.scores.Set(userID, score, s.scoreTTL)
	return score, nil
}

// refreshScore recomputes the score after a flag write and stores it on the
// user record.
func (s *Service) refreshScore(ctx context.Context, userID string) (int, error) {
	s.scores.Delete(userID)
	score, err := s.BehaviorScore(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.store.UpdateBehaviorScore(ctx, userID, score); err != nil {
		return 0, fmt.Errorf("store behavior score: %w", err)
	}
	return score, nil
}

func (s *Service) riskEvent(userID string, typ journal.RiskEventType, sev behavior.Severity, details string, st risk.State, score int) journal.RiskEvent {
	return journal.RiskEvent{
		UserID:   userID,
		Type:     typ,
		Severity: sev,
		Details:  details,
		Snapshot: journal.RiskSnapshot{
			DailyPnL:          st.DailyPnL,
			WeeklyPnL:         st.WeeklyPnL,
			ConsecutiveLosses: st.ConsecutiveLosses,
			BehaviorScore:     score,
		},
		CreatedAt: s.clock(),
	}
}

func toFlags(userID, tradeID string, detected []behavior.Detected, at time.Time) []behavior.Flag {
	out := make([]behavior.Flag, 0, len(detected))
	for _, d := range detected {
		out = append(out, behavior.Flag{
			UserID:     userID,
			TradeID:    tradeID,
			Type:       d.Type,
			Severity:   d.Severity,
			Details:    d.Details,
			DetectedAt: at,
		})
	}
	return out
}

func flagTypes(detected []behavior.Detected) []string {
	out := make([]string, 0, len(detected))
	for _, d := range detected {
		out = append(out, string(d.Type))
	}
	return out
}
