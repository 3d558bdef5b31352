package academy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/sim"
	"github.com/forexgate/forexgate/stage"
)

var sessionRoutes = map[sim.SessionType]string{
	sim.DemoBasic:     "/simulate/demo",
	sim.DemoRealistic: "/simulate/realistic",
	sim.MarketReplay:  "/simulate/replay",
	sim.StressTest:    "/simulate/stress",
}

type StartSessionInput struct {
	Type       sim.SessionType `json:"session_type" validate:"required"`
	Pair       string          `json:"pair,omitempty"`
	ScenarioID string          `json:"scenario_id,omitempty"`
}

// StartSession opens a practice session the user's stage gives access to.
func (s *Service) StartSession(ctx context.Context, userID string, in StartSessionInput) (journal.SimulationSession, error) {
	if err := s.check(in); err != nil {
		return journal.SimulationSession{}, err
	}
	if !in.Type.Valid() {
		return journal.SimulationSession{}, invalid("session_type", "oneof")
	}
	pair := "EUR/USD"
	if in.Pair != "" {
		pair = market.NormalizePair(in.Pair)
	}
	if _, ok := market.Lookup(pair); !ok {
		return journal.SimulationSession{}, invalid("pair", "oneof")
	}
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return journal.SimulationSession{}, err
	}
	if !stage.CanAccess(cur, sessionRoutes[in.Type]) {
		return journal.SimulationSession{}, fmt.Errorf("%s session at %s: %w", in.Type, cur, ErrStageLocked)
	}

	sess := journal.SimulationSession{
		UserID:      userID,
		Type:        in.Type,
		ScenarioID:  in.ScenarioID,
		Config:      sim.DefaultConfig(in.Type, pair),
		StartedAt:   s.clock(),
		Performance: sim.StartingPerformance(),
	}
	if err := s.store.CreateSession(ctx, &sess); err != nil {
		return journal.SimulationSession{}, fmt.Errorf("store session: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("session_id", sess.ID).Str("type", string(in.Type)).Msg("session started")
	return sess, nil
}

type EndSessionInput struct {
	TotalTrades   int     `json:"total_trades" validate:"gte=0"`
	WinRate       float64 `json:"win_rate" validate:"gte=0,lte=100"`
	AvgRR         float64 `json:"avg_rr" validate:"gte=0"`
	MaxDrawdown   float64 `json:"max_drawdown" validate:"gte=0,lte=100"`
	BehaviorScore int     `json:"behavior_score" validate:"gte=0,lte=100"`
}

// EndSession closes a session with its final performance and verdict.
func (s *Service) EndSession(ctx context.Context, userID, sessionID string, in EndSessionInput) (journal.SimulationSession, error) {
	if err := s.check(in); err != nil {
		return journal.SimulationSession{}, err
	}
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return journal.SimulationSession{}, err
	}
	perf := sim.Performance(in)
	passed, reasons := sim.Verdict(perf)
	now := s.clock()
	err = s.store.EndSession(ctx, sess.ID, perf, passed, reasons, now)
	if errors.Is(err, journal.ErrStale) {
		return journal.SimulationSession{}, fmt.Errorf("session %s: %w", sess.ID, ErrSessionEnded)
	}
	if err != nil {
		return journal.SimulationSession{}, fmt.Errorf("end session: %w", err)
	}
	sess.EndedAt = &now
	sess.Performance = perf
	sess.Passed = passed
	sess.FailureReasons = reasons
	s.log.Info().
		Str("user_id", userID).
		Str("session_id", sess.ID).
		Bool("passed", passed).
		Strs("failure_reasons", reasons).
		Msg("session ended")
	return sess, nil
}

// ownedSession loads an open session belonging to userID.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (journal.SimulationSession, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return journal.SimulationSession{}, err
	}
	if sess.UserID != userID {
		return journal.SimulationSession{}, fmt.Errorf("session %s: %w", sessionID, ErrForbidden)
	}
	if sess.Ended() {
		return journal.SimulationSession{}, fmt.Errorf("session %s: %w", sessionID, ErrSessionEnded)
	}
	return sess, nil
}

func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) error {
	if courseID == "" {
		return invalid("course_id", "required")
	}
	if lessonID == "" {
		return invalid("lesson_id", "required")
	}
	return s.store.CompleteLesson(ctx, userID, courseID, lessonID, s.clock())
}

// SetPatternStatus records progress on a catalog pattern.
func (s *Service) SetPatternStatus(ctx context.Context, userID, patternID string, status journal.PatternStatus) (journal.PatternProgress, error) {
	if _, ok := LookupPattern(patternID); !ok {
		return journal.PatternProgress{}, invalid("pattern_id", "oneof")
	}
	if !status.Valid() {
		return journal.PatternProgress{}, invalid("status", "oneof")
	}
	now := s.clock()
	p := journal.PatternProgress{UserID: userID, PatternID: patternID, Status: status, UpdatedAt: now}
	if status == journal.PatternMastered {
		p.MasteredAt = &now
	}
	if err := s.store.SetPatternStatus(ctx, p); err != nil {
		return journal.PatternProgress{}, fmt.Errorf("store pattern status: %w", err)
	}
	return p, nil
}

type EntryInput struct {
	Type           journal.EntryType `json:"entry_type" validate:"required,oneof=trade_review daily_reflection weekly_review lesson_learned emotional_log"`
	Title          string            `json:"title" validate:"min=3"`
	Content        string            `json:"content" validate:"min=10"`
	Tags           []string          `json:"tags"`
	EmotionalState string            `json:"emotional_state,omitempty" validate:"omitempty,oneof=calm anxious confident frustrated neutral excited"`
	ProcessRating  int               `json:"process_rating,omitempty" validate:"omitempty,min=1,max=5"`
	TradeID        string            `json:"trade_id,omitempty"`
}

func (s *Service) AddJournalEntry(ctx context.Context, userID string, in EntryInput) (journal.Entry, error) {
	if err := s.check(in); err != nil {
		return journal.Entry{}, err
	}
	if in.TradeID != "" {
		if _, err := s.ownedTrade(ctx, userID, in.TradeID); err != nil {
			return journal.Entry{}, err
		}
	}
	e := journal.Entry{
		UserID:         userID,
		TradeID:        in.TradeID,
		Type:           in.Type,
		Title:          in.Title,
		Content:        in.Content,
		EmotionalState: in.EmotionalState,
		ProcessRating:  in.ProcessRating,
		Tags:           in.Tags,
		CreatedAt:      s.clock(),
	}
	if err := s.store.AddEntry(ctx, &e); err != nil {
		return journal.Entry{}, fmt.Errorf("store entry: %w", err)
	}
	return e, nil
}

// Flags lists the user's flags detected within window, oldest first. A
// zero window lists everything.
func (s *Service) Flags(ctx context.Context, userID string, window time.Duration) ([]behavior.Flag, error) {
	var since time.Time
	if window > 0 {
		since = s.clock().Add(-window)
	}
	return s.store.ListFlags(ctx, userID, since)
}

// ResolveFlag marks a flag reviewed. Resolved flags still count toward the
// behavior score.
func (s *Service) ResolveFlag(ctx context.Context, userID, flagID string) error {
	return s.store.ResolveFlag(ctx, userID, flagID, s.clock())
}
