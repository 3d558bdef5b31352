// Package journal persists users, their risk state and their trading
// history in SQLite.
package journal

import (
	"errors"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/mentor"
	"github.com/forexgate/forexgate/risk"
	"github.com/forexgate/forexgate/sim"
	"github.com/forexgate/forexgate/stage"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrStageConflict = errors.New("stage changed concurrently")
	ErrInvalidValue  = errors.New("invalid value")

	// ErrStale is returned when a guarded update finds the row no longer in
	// the expected state.
	ErrStale = errors.New("record is no longer in the expected state")

	// ErrRiskConflict is returned when a risk profile changed between the
	// read a new state was derived from and the write of that state.
	ErrRiskConflict = errors.New("risk profile changed concurrently")
)

type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

type Onboarding struct {
	Completed              bool       `json:"completed"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	ExperienceLevel        string     `json:"experience_level,omitempty"`
	RiskTolerance          string     `json:"risk_tolerance,omitempty"`
	Motivations            []string   `json:"motivations,omitempty"`
	CommitmentAcknowledged bool       `json:"commitment_acknowledged"`
}

type User struct {
	ID                  string               `json:"id"`
	Email               string               `json:"email"`
	Name                string               `json:"name"`
	Role                Role                 `json:"role"`
	Stage               stage.Stage          `json:"current_stage"`
	History             []stage.HistoryEntry `json:"stage_history"`
	BehaviorScore       int                  `json:"behavior_score"`
	RiskComplianceScore int                  `json:"risk_compliance_score"`
	Onboarding          Onboarding           `json:"onboarding"`
	CreatedAt           time.Time            `json:"created_at"`
}

// RiskProfile is the 1:1 risk record of a user. The static limits are the
// account-level defaults; stage limits are applied on top by risk.Validate.
type RiskProfile struct {
	UserID            string     `json:"user_id"`
	MaxRiskPerTrade   float64    `json:"max_risk_per_trade"`
	MaxDailyDrawdown  float64    `json:"max_daily_drawdown"`
	MaxWeeklyDrawdown float64    `json:"max_weekly_drawdown"`
	MaxOpenPositions  int        `json:"max_open_positions"`
	MaxDailyTrades    int        `json:"max_daily_trades"`
	State             risk.State `json:"current_state"`
	BlockReason       string     `json:"block_reason,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Version is bumped by every write to the running state.
	Version int64 `json:"version"`
}

func DefaultRiskProfile(userID string, balance float64) RiskProfile {
	return RiskProfile{
		UserID:            userID,
		MaxRiskPerTrade:   1,
		MaxDailyDrawdown:  3,
		MaxWeeklyDrawdown: 5,
		MaxOpenPositions:  1,
		MaxDailyTrades:    3,
		State:             risk.State{AccountBalance: balance},
	}
}

type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanSubmitted PlanStatus = "submitted"
	PlanApproved  PlanStatus = "approved"
	PlanRejected  PlanStatus = "rejected"
	PlanExecuted  PlanStatus = "executed"
	PlanExpired   PlanStatus = "expired"
)

type TradePlan struct {
	ID                    string           `json:"id"`
	UserID                string           `json:"user_id"`
	TradeID               string           `json:"trade_id,omitempty"`
	Pair                  string           `json:"pair"`
	Direction             market.Direction `json:"direction"`
	MarketBias            string           `json:"market_bias"`
	BiasReasoning         string           `json:"bias_reasoning"`
	SetupType             string           `json:"setup_type"`
	EntryTrigger          string           `json:"entry_trigger"`
	InvalidationPoint     string           `json:"invalidation_point"`
	InvalidationReasoning string           `json:"invalidation_reasoning"`
	RiskAmount            float64          `json:"risk_amount"`
	RiskPercent           float64          `json:"risk_percent"`
	RiskRewardRatio       float64          `json:"risk_reward_ratio"`
	Mentoring             *mentor.Response `json:"mentoring_response,omitempty"`
	Status                PlanStatus       `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

func (p TradePlan) MentorPlan() mentor.Plan {
	return mentor.Plan{
		Pair:                  p.Pair,
		Direction:             p.Direction,
		MarketBias:            p.MarketBias,
		BiasReasoning:         p.BiasReasoning,
		SetupType:             p.SetupType,
		EntryTrigger:          p.EntryTrigger,
		InvalidationPoint:     p.InvalidationPoint,
		InvalidationReasoning: p.InvalidationReasoning,
		RiskPercent:           p.RiskPercent,
		RiskRewardRatio:       p.RiskRewardRatio,
	}
}

type TradeStatus string

const (
	TradePlanned   TradeStatus = "planned"
	TradeOpen      TradeStatus = "open"
	TradeClosed    TradeStatus = "closed"
	TradeCancelled TradeStatus = "cancelled"
)

type TradeType string

const (
	DemoBasic     TradeType = "demo_basic"
	DemoRealistic TradeType = "demo_realistic"
	SimStress     TradeType = "sim_stress"
	LiveMicro     TradeType = "live_micro"
	LiveMini      TradeType = "live_mini"
	LiveStandard  TradeType = "live_standard"
)

var tradeTypes = map[stage.Stage]TradeType{
	stage.SimBasic:     DemoBasic,
	stage.SimRealistic: DemoRealistic,
	stage.SimStress:    SimStress,
	stage.LiveMicro:    LiveMicro,
	stage.LiveMini:     LiveMini,
	stage.LiveStandard: LiveStandard,
}

// TradeTypeFor returns the kind of trade a user in s places.
func TradeTypeFor(s stage.Stage) TradeType {
	if t, ok := tradeTypes[s]; ok {
		return t
	}
	return DemoBasic
}

type PreTradeCheck struct {
	Completed    bool     `json:"completed"`
	Approved     bool     `json:"approved"`
	Warnings     []string `json:"warnings"`
	OverrideUsed bool     `json:"override_used"`
}

type Debrief struct {
	Completed      bool   `json:"completed"`
	FollowedPlan   bool   `json:"followed_plan"`
	EmotionalState string `json:"emotional_state,omitempty"`
	LessonsLearned string `json:"lessons_learned,omitempty"`
	Rating         int    `json:"rating,omitempty"`
}

type Trade struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	PlanID           string           `json:"trade_plan_id,omitempty"`
	SessionID        string           `json:"session_id,omitempty"`
	Type             TradeType        `json:"trade_type"`
	Pair             string           `json:"pair"`
	Direction        market.Direction `json:"direction"`
	EntryPrice       float64          `json:"entry_price"`
	ExitPrice        *float64         `json:"exit_price,omitempty"`
	EntryTime        time.Time        `json:"entry_time"`
	ExitTime         *time.Time       `json:"exit_time,omitempty"`
	LotSize          float64          `json:"lot_size"`
	StopLossPrice    float64          `json:"stop_loss_price"`
	TakeProfitPrice  *float64         `json:"take_profit_price,omitempty"`
	RiskAmount       float64          `json:"risk_amount"`
	RiskPercent      float64          `json:"risk_percent"`
	StopDistancePips float64          `json:"stop_distance_pips"`
	PlannedRR        *float64         `json:"planned_rr,omitempty"`
	ActualRR         *float64         `json:"actual_rr,omitempty"`
	PnLPips          *float64         `json:"pnl_pips,omitempty"`
	PnLAmount        *float64         `json:"pnl_amount,omitempty"`
	PnLPercent       *float64         `json:"pnl_percent,omitempty"`
	DurationMinutes  *int             `json:"duration_minutes,omitempty"`
	ExitReason       sim.ExitReason   `json:"exit_reason,omitempty"`
	Status           TradeStatus      `json:"status"`
	PreTradeCheck    PreTradeCheck    `json:"pre_trade_check"`
	BehaviorFlags    []string         `json:"behavior_flags"`
	Debrief          Debrief          `json:"debrief"`
}

// Snapshot projects t into the shape the behavior detectors read.
func (t Trade) Snapshot() behavior.TradeSnapshot {
	return behavior.TradeSnapshot{
		EntryTime:     t.EntryTime,
		ExitTime:      t.ExitTime,
		PnLAmount:     t.PnLAmount,
		LotSize:       t.LotSize,
		Status:        string(t.Status),
		ExitReason:    string(t.ExitReason),
		EntryPrice:    t.EntryPrice,
		StopLossPrice: t.StopLossPrice,
		PlannedRR:     t.PlannedRR,
		ActualRR:      t.ActualRR,
	}
}

type SimulationSession struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Type           sim.SessionType `json:"session_type"`
	ScenarioID     string          `json:"scenario_id,omitempty"`
	Config         sim.Config      `json:"config"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        *time.Time      `json:"ended_at,omitempty"`
	Performance    sim.Performance `json:"performance"`
	Passed         bool            `json:"passed"`
	FailureReasons []string        `json:"failure_reasons"`
}

func (s SimulationSession) Ended() bool { return s.EndedAt != nil }

type LessonStatus string

const (
	LessonNotStarted LessonStatus = "not_started"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

type LessonProgress struct {
	UserID      string       `json:"user_id"`
	CourseID    string       `json:"course_id"`
	LessonID    string       `json:"lesson_id"`
	Status      LessonStatus `json:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

type PatternStatus string

const (
	PatternLocked     PatternStatus = "locked"
	PatternLearning   PatternStatus = "learning"
	PatternPracticing PatternStatus = "practicing"
	PatternMastered   PatternStatus = "mastered"
)

func (s PatternStatus) Valid() bool {
	switch s {
	case PatternLocked, PatternLearning, PatternPracticing, PatternMastered:
		return true
	}
	return false
}

type PatternProgress struct {
	UserID     string        `json:"user_id"`
	PatternID  string        `json:"pattern_id"`
	Status     PatternStatus `json:"status"`
	MasteredAt *time.Time    `json:"mastered_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type RiskEventType string

const (
	EventTradeBlocked        RiskEventType = "trade_blocked"
	EventCooldownTriggered   RiskEventType = "cooldown_triggered"
	EventDrawdownBreach      RiskEventType = "drawdown_breach"
	EventRegressionTriggered RiskEventType = "regression_triggered"
	EventLimitWarning        RiskEventType = "limit_warning"
)

type RiskSnapshot struct {
	DailyPnL          float64 `json:"daily_pnl"`
	WeeklyPnL         float64 `json:"weekly_pnl"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	BehaviorScore     int     `json:"behavior_score"`
}

type RiskEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	TradeID   string            `json:"trade_id,omitempty"`
	Type      RiskEventType     `json:"event_type"`
	Severity  behavior.Severity `json:"severity"`
	Details   string            `json:"details"`
	Snapshot  RiskSnapshot      `json:"snapshot"`
	CreatedAt time.Time         `json:"created_at"`
}

type EntryType string

const (
	EntryTradeReview     EntryType = "trade_review"
	EntryDailyReflection EntryType = "daily_reflection"
	EntryWeeklyReview    EntryType = "weekly_review"
	EntryLessonLearned   EntryType = "lesson_learned"
	EntryEmotionalLog    EntryType = "emotional_log"
)

type Entry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TradeID        string    `json:"trade_id,omitempty"`
	Type           EntryType `json:"entry_type"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	EmotionalState string    `json:"emotional_state,omitempty"`
	ProcessRating  int       `json:"process_rating,omitempty"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"created_at"`
}
