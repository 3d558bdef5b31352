// Package academy runs the trade lifecycle, simulation sessions and stage
// progression for learners on top of the pure rule engines.
package academy

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/progression"
	"github.com/forexgate/forexgate/sim"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("not owned by this user")
	ErrStageLocked     = errors.New("not available at the current stage")
	ErrPlanNotApproved = errors.New("plan is not approved")
	ErrTradeNotOpen    = errors.New("trade is not open")
	ErrTradeNotClosed  = errors.New("trade is not closed")
	ErrSessionEnded    = errors.New("session already ended")
)

// Store is the persistence the service needs. *journal.SQLite implements it.
type Store interface {
	progression.Store

	CreateUser(ctx context.Context, u *journal.User, p journal.RiskProfile) error
	GetUser(ctx context.Context, userID string) (journal.User, error)
	SaveOnboarding(ctx context.Context, userID string, o journal.Onboarding) error
	UpdateBehaviorScore(ctx context.Context, userID string, score int) error

	GetRiskProfile(ctx context.Context, userID string) (journal.RiskProfile, error)
	SaveRiskState(ctx context.Context, c journal.RiskCommit) error
	RecordRiskEvent(ctx context.Context, e *journal.RiskEvent) error

	CreatePlan(ctx context.Context, p *journal.TradePlan) error
	GetPlan(ctx context.Context, planID string) (journal.TradePlan, error)

	OpenTrade(ctx context.Context, c journal.TradeCommit) error
	CloseTrade(ctx context.Context, c journal.TradeCommit) error
	CancelTrade(ctx context.Context, c journal.TradeCommit) error
	GetTrade(ctx context.Context, tradeID string) (journal.Trade, error)
	ListTrades(ctx context.Context, f journal.TradeFilter) ([]journal.Trade, error)
	SaveDebrief(ctx context.Context, tradeID string, d journal.Debrief) error

	ListFlags(ctx context.Context, userID string, since time.Time) ([]behavior.Flag, error)
	ResolveFlag(ctx context.Context, userID, flagID string, at time.Time) error

	CreateSession(ctx context.Context, s *journal.SimulationSession) error
	GetSession(ctx context.Context, sessionID string) (journal.SimulationSession, error)
	EndSession(ctx context.Context, sessionID string, perf sim.Performance, passed bool, reasons []string, at time.Time) error

	CompleteLesson(ctx context.Context, userID, courseID, lessonID string, at time.Time) error
	SetPatternStatus(ctx context.Context, p journal.PatternProgress) error
	AddEntry(ctx context.Context, e *journal.Entry) error
}

const (
	DefaultScoreTTL     = 5 * time.Minute
	DefaultRecentTrades = 20
)

type Service struct {
	store    Store
	engine   *progression.Engine
	scores   *cache.Cache
	locks    *userLocks
	validate *validator.Validate

	now            func() time.Time
	log            zerolog.Logger
	scoreTTL       time.Duration
	defaultBalance float64
	recentTrades   int

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithRand sets the source of simulated slippage.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

func WithScoreTTL(d time.Duration) Option {
	return func(s *Service) { s.scoreTTL = d }
}

// WithDefaultBalance sets the starting balance of accounts registered
// without one.
func WithDefaultBalance(b float64) Option {
	return func(s *Service) { s.defaultBalance = b }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		locks:          newUserLocks(),
		validate:       newValidator(),
		now:            time.Now,
		log:            zerolog.Nop(),
		scoreTTL:       DefaultScoreTTL,
		defaultBalance: sim.DefaultInitialBalance,
		recentTrades:   DefaultRecentTrades,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	s.scores = cache.New(s.scoreTTL, 2*s.scoreTTL)
	s.engine = progression.NewEngine(store,
		progression.WithClock(s.now),
		progression.WithLogger(s.log),
	)
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC() }

func (s *Service) fill(price float64, cfg sim.Config, dir market.Direction) sim.Fill {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return sim.ApplyConditions(price, cfg, dir, s.rnd)
}
