package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/stage"
	"github.com/rs/zerolog"
)

var (
	ErrCannotAdvance = errors.New("advancement criteria not met")
	ErrCannotRegress = errors.New("cannot regress from this stage")
)

// History exit reasons written by the engine.
const (
	ReasonAdvanced            = "advanced"
	ReasonRegressed           = "regressed"
	ReasonOnboardingCompleted = "onboarding_completed"
)

// Store is the persistence the engine needs. TransitionStage must close the
// open history entry and open the next one atomically, and fail when the
// stored stage no longer equals t.From.
type Store interface {
	CurrentStage(ctx context.Context, userID string) (stage.Stage, error)
	ProgressionSnapshot(ctx context.Context, userID string, since time.Time) (Snapshot, error)
	TransitionStage(ctx context.Context, t stage.Transition) error
}

type Engine struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Status(ctx context.Context, userID string) (Status, error) {
	now := e.now().UTC()
	snap, err := e.store.ProgressionSnapshot(ctx, userID, now.Add(-behavior.ScoreWindow))
	if err != nil {
		return Status{}, fmt.Errorf("load progression snapshot: %w", err)
	}
	return CheckStatus(snap, now), nil
}

// Advance moves the user one stage forward when every criterion is met.
func (e *Engine) Advance(ctx context.Context, userID string) (stage.Stage, error) {
	st, err := e.Status(ctx, userID)
	if err != nil {
		return "", err
	}
	if !st.CanAdvance || st.NextStage == nil {
		return "", ErrCannotAdvance
	}
	return e.commit(ctx, stage.Transition{
		UserID: userID,
		From:   st.CurrentStage,
		To:     *st.NextStage,
		Reason: ReasonAdvanced,
	})
}

// Regress moves the user one stage back. Onboarding and stage 1 are floors.
func (e *Engine) Regress(ctx context.Context, userID, reason string) (stage.Stage, error) {
	cur, err := e.store.CurrentStage(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load stage: %w", err)
	}
	prev, ok := cur.Previous()
	if !ok || stage.RegressionExempt(cur) {
		return "", ErrCannotRegress
	}
	if reason == "" {
		reason = ReasonRegressed
	}
	return e.commit(ctx, stage.Transition{
		UserID: userID,
		From:   cur,
		To:     prev,
		Reason: reason,
	})
}

// CompleteOnboarding moves a user out of onboarding into stage 1.
func (e *Engine) CompleteOnboarding(ctx context.Context, userID string) (stage.Stage, error) {
	cur, err := e.store.CurrentStage(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load stage: %w", err)
	}
	if cur != stage.Onboarding {
		return "", fmt.Errorf("%w: already past onboarding", ErrCannotAdvance)
	}
	return e.commit(ctx, stage.Transition{
		UserID: userID,
		From:   stage.Onboarding,
		To:     stage.Observer,
		Reason: ReasonOnboardingCompleted,
	})
}

func (e *Engine) commit(ctx context.Context, t stage.Transition) (stage.Stage, error) {
	t.At = e.now().UTC()
	if err := e.store.TransitionStage(ctx, t); err != nil {
		return "", fmt.Errorf("transition %s -> %s: %w", t.From, t.To, err)
	}
	e.log.Info().
		Str("user_id", t.UserID).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("reason", t.Reason).
		Msg("stage transition")
	return t.To, nil
}
