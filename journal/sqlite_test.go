package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/risk"
	"github.com/forexgate/forexgate/sim"
	"github.com/forexgate/forexgate/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "forexgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func newTestUser(t *testing.T, j *SQLite, email string) User {
	t.Helper()

	u := User{Email: email, Name: "Test Trader", BehaviorScore: 100, RiskComplianceScore: 100, CreatedAt: t0}
	require.NoError(t, j.CreateUser(context.Background(), &u, DefaultRiskProfile("", 10000)))
	return u
}

func TestNewSQLite_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reopen.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Ping(context.Background()))
	require.NoError(t, j.Close())

	j, err = NewSQLite(path)
	require.NoError(t, err, "schema must apply twice")
	require.NoError(t, j.Close())
}

func TestNewSQLite_AddsVersionColumn(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE risk_profiles (user_id TEXT PRIMARY KEY, updated_at DATETIME NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	var n int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('risk_profiles') WHERE name = 'version'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)

	u := newTestUser(t, j, "a@example.com")
	require.NotEmpty(t, u.ID)
	assert.Equal(t, stage.Onboarding, u.Stage)
	assert.Equal(t, RoleStudent, u.Role)

	got, err := j.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, 100, got.BehaviorScore)
	assert.True(t, t0.Equal(got.CreatedAt))
	require.Len(t, got.History, 1)
	assert.Equal(t, stage.Onboarding, got.History[0].Stage)
	assert.Nil(t, got.History[0].ExitedAt)

	p, err := j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, p.State.AccountBalance)
	assert.Equal(t, 1.0, p.MaxRiskPerTrade)
	assert.Equal(t, 3, p.MaxDailyTrades)
	assert.False(t, p.State.InCooldown)

	byEmail, err := j.FindUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	dup := User{Email: "a@example.com", Name: "Again"}
	err = j.CreateUser(ctx, &dup, DefaultRiskProfile("", 10000))
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = j.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = j.GetRiskProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, j.UpdateBehaviorScore(ctx, "missing", 50), ErrNotFound)
}

func TestSaveOnboarding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "onb@example.com")

	o := Onboarding{Completed: true, CompletedAt: ptr(t0), ExperienceLevel: "beginner", Motivations: []string{"income"}, CommitmentAcknowledged: true}
	require.NoError(t, j.SaveOnboarding(ctx, u.ID, o))

	got, err := j.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Onboarding.Completed)
	assert.Equal(t, []string{"income"}, got.Onboarding.Motivations)
	require.NotNil(t, got.Onboarding.CompletedAt)
	assert.True(t, t0.Equal(*got.Onboarding.CompletedAt))
}

func TestTransitionStage_AdvanceThenRegress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "fsm@example.com")

	require.NoError(t, j.TransitionStage(ctx, stage.Transition{
		UserID: u.ID, From: stage.Onboarding, To: stage.Observer, Reason: "onboarding_completed", At: t0.Add(time.Hour),
	}))
	require.NoError(t, j.TransitionStage(ctx, stage.Transition{
		UserID: u.ID, From: stage.Observer, To: stage.Student, Reason: "advanced", At: t0.Add(2 * time.Hour),
	}))
	require.NoError(t, j.TransitionStage(ctx, stage.Transition{
		UserID: u.ID, From: stage.Student, To: stage.Observer, Reason: "regressed", At: t0.Add(3 * time.Hour),
	}))

	got, err := j.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stage.Observer, got.Stage)
	require.Len(t, got.History, 4)

	assert.Equal(t, "advanced", got.History[1].ExitReason)
	assert.Equal(t, stage.Student, got.History[2].Stage)
	assert.Equal(t, "regressed", got.History[2].ExitReason)
	require.NotNil(t, got.History[2].ExitedAt)
	assert.True(t, t0.Add(3*time.Hour).Equal(*got.History[2].ExitedAt))

	open := 0
	for _, h := range got.History {
		if h.ExitedAt == nil {
			open++
		}
	}
	assert.Equal(t, 1, open)
	assert.Equal(t, stage.Observer, got.History[3].Stage)
}

func TestTransitionStage_Conflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "race@example.com")

	err := j.TransitionStage(ctx, stage.Transition{UserID: u.ID, From: stage.Observer, To: stage.Student, At: t0})
	assert.ErrorIs(t, err, ErrStageConflict)

	got, err := j.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stage.Onboarding, got.Stage)
	assert.Len(t, got.History, 1, "failed transition leaves history untouched")
}

func newTestPlan(t *testing.T, j *SQLite, userID string, status PlanStatus, at time.Time) TradePlan {
	t.Helper()

	p := TradePlan{
		UserID:                userID,
		Pair:                  "EUR/USD",
		Direction:             market.Long,
		MarketBias:            "bullish above the weekly open",
		BiasReasoning:         "higher highs on H4 with strong closes",
		SetupType:             "break-retest",
		EntryTrigger:          "bullish engulfing on retest",
		InvalidationPoint:     "below 1.0950",
		InvalidationReasoning: "structure broken",
		RiskAmount:            100,
		RiskPercent:           1,
		RiskRewardRatio:       2,
		Status:                status,
		CreatedAt:             at,
	}
	require.NoError(t, j.CreatePlan(context.Background(), &p))
	return p
}

func TestPlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "plan@example.com")

	p := newTestPlan(t, j, u.ID, PlanApproved, t0)
	got, err := j.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.BiasReasoning, got.BiasReasoning)
	assert.Equal(t, market.Long, got.Direction)
	assert.Nil(t, got.Mentoring)

	old := newTestPlan(t, j, u.ID, PlanApproved, t0.Add(-48*time.Hour))
	rejected := newTestPlan(t, j, u.ID, PlanRejected, t0.Add(-48*time.Hour))

	n, err := j.ExpirePlans(ctx, t0.Add(-24*time.Hour), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = j.GetPlan(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanExpired, got.Status)
	got, err = j.GetPlan(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanRejected, got.Status)

	approved, err := j.ListPlans(ctx, u.ID, PlanApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, p.ID, approved[0].ID)

	_, err = j.GetPlan(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func openTestTrade(t *testing.T, j *SQLite, u User, plan TradePlan, at time.Time) Trade {
	t.Helper()

	tr := Trade{
		UserID:           u.ID,
		PlanID:           plan.ID,
		Type:             DemoBasic,
		Pair:             "EUR/USD",
		Direction:        market.Long,
		EntryPrice:       1.1,
		EntryTime:        at,
		LotSize:          0.2,
		StopLossPrice:    1.095,
		TakeProfitPrice:  ptr(1.11),
		RiskAmount:       100,
		RiskPercent:      1,
		StopDistancePips: 50,
		PlannedRR:        ptr(2.0),
		Status:           TradeOpen,
		PreTradeCheck:    PreTradeCheck{Completed: true, Approved: true, Warnings: []string{}},
	}
	st := risk.State{AccountBalance: 10000, DailyTradeCount: 1, OpenPositionCount: 1, LastTradeAt: ptr(at)}
	require.NoError(t, j.OpenTrade(context.Background(), TradeCommit{Trade: &tr, State: st, Version: riskVersion(t, j, u.ID), At: at}))
	return tr
}

func riskVersion(t *testing.T, j *SQLite, userID string) int64 {
	t.Helper()

	p, err := j.GetRiskProfile(context.Background(), userID)
	require.NoError(t, err)
	return p.Version
}

func TestTradeLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "trade@example.com")
	plan := newTestPlan(t, j, u.ID, PlanApproved, t0)

	tr := openTestTrade(t, j, u, plan, t0.Add(time.Minute))
	require.NotEmpty(t, tr.ID)

	p, err := j.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanExecuted, p.Status)
	assert.Equal(t, tr.ID, p.TradeID)

	prof, err := j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prof.State.OpenPositionCount)
	require.NotNil(t, prof.State.LastTradeAt)

	// executing the same plan again fails
	again := tr
	again.ID = ""
	err = j.OpenTrade(ctx, TradeCommit{Trade: &again, State: prof.State, Version: prof.Version, At: t0})
	assert.ErrorIs(t, err, ErrStale)

	exit := t0.Add(31 * time.Minute)
	tr.ExitPrice = ptr(1.105)
	tr.ExitTime = &exit
	tr.PnLPips = ptr(50.0)
	tr.PnLAmount = ptr(100.0)
	tr.PnLPercent = ptr(1.0)
	tr.ActualRR = ptr(1.0)
	tr.DurationMinutes = ptr(30)
	tr.ExitReason = sim.ManualExit
	tr.BehaviorFlags = []string{string(behavior.EarlyExit)}

	closed := risk.State{AccountBalance: 10100, DailyPnL: 100, WeeklyPnL: 100, DailyTradeCount: 1}
	flags := []behavior.Flag{{UserID: u.ID, TradeID: tr.ID, Type: behavior.EarlyExit, Severity: behavior.Warning, Details: "early", DetectedAt: exit}}
	require.NoError(t, j.CloseTrade(ctx, TradeCommit{Trade: &tr, State: closed, Version: prof.Version, Flags: flags, At: exit}))
	assert.NotEmpty(t, flags[0].ID)

	got, err := j.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, TradeClosed, got.Status)
	assert.Equal(t, 100.0, *got.PnLAmount)
	assert.Equal(t, 30, *got.DurationMinutes)
	assert.Equal(t, sim.ManualExit, got.ExitReason)
	assert.Equal(t, []string{"early_exit"}, got.BehaviorFlags)
	assert.True(t, exit.Equal(*got.ExitTime))
	assert.True(t, got.PreTradeCheck.Approved)
	assert.Equal(t, 2.0, *got.PlannedRR)

	prof, err = j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10100.0, prof.State.AccountBalance)
	assert.Equal(t, 0, prof.State.OpenPositionCount)

	// closing twice is refused
	assert.ErrorIs(t, j.CloseTrade(ctx, TradeCommit{Trade: &tr, State: closed, Version: prof.Version, At: exit}), ErrStale)

	require.NoError(t, j.SaveDebrief(ctx, tr.ID, Debrief{Completed: true, FollowedPlan: true, Rating: 4}))
	got, err = j.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Debrief.Rating)
}

func TestCancelTrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "cancel@example.com")
	tr := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)

	require.NoError(t, j.CancelTrade(ctx, TradeCommit{Trade: &tr, State: risk.State{AccountBalance: 10000}, Version: riskVersion(t, j, u.ID), At: t0.Add(time.Minute)}))

	got, err := j.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, TradeCancelled, got.Status)
	assert.Nil(t, got.PnLAmount)
	assert.ErrorIs(t, j.SaveDebrief(ctx, tr.ID, Debrief{Completed: true}), ErrStale, "only closed trades take a debrief")
}

func TestListTrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "list@example.com")

	var ids []string
	for i := range 4 {
		tr := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0.Add(time.Duration(i)*time.Hour))
		ids = append(ids, tr.ID)
	}

	all, err := j.ListTrades(ctx, TradeFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[0], all[0].ID, "oldest first")

	recent, err := j.ListTrades(ctx, TradeFilter{UserID: u.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, []string{ids[2], ids[3]}, []string{recent[0].ID, recent[1].ID})

	none, err := j.ListTrades(ctx, TradeFilter{UserID: u.ID, Status: TradeClosed})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "between@example.com")

	closeAt := func(tr Trade, at time.Time) {
		tr.ExitTime = &at
		tr.ExitPrice = ptr(1.1)
		tr.PnLAmount = ptr(0.0)
		require.NoError(t, j.CloseTrade(ctx, TradeCommit{Trade: &tr, State: risk.State{AccountBalance: 10000}, Version: riskVersion(t, j, u.ID), At: at}))
	}
	a := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)
	b := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)
	closeAt(a, t0.Add(time.Hour))
	closeAt(b, t0.Add(25*time.Hour))

	day, err := j.ListTradesClosedBetween(ctx, u.ID, t0, t0.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, a.ID, day[0].ID)
}

func TestFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "flags@example.com")

	flags := []behavior.Flag{
		{UserID: u.ID, Type: behavior.Overtrading, Severity: behavior.Critical, Details: "3 trades", DetectedAt: t0.Add(-40 * 24 * time.Hour)},
		{UserID: u.ID, Type: behavior.RevengeTrading, Severity: behavior.Critical, Details: "fast", DetectedAt: t0.Add(-time.Hour)},
	}
	require.NoError(t, j.AddFlags(ctx, flags))
	require.NoError(t, j.AddFlags(ctx, nil))

	recent, err := j.ListFlags(ctx, u.ID, t0.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, behavior.RevengeTrading, recent[0].Type)
	assert.False(t, recent[0].Resolved)

	require.NoError(t, j.ResolveFlag(ctx, u.ID, flags[1].ID, t0))
	require.NoError(t, j.ResolveFlag(ctx, u.ID, flags[1].ID, t0.Add(time.Hour)))
	recent, err = j.ListFlags(ctx, u.ID, t0.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Resolved)
	assert.True(t, t0.Equal(*recent[0].ResolvedAt), "first resolution wins")

	assert.ErrorIs(t, j.ResolveFlag(ctx, "someone-else", flags[1].ID, t0), ErrNotFound)

	empty, err := j.ListFlags(ctx, "nobody", t0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestRiskMaintenance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	a := newTestUser(t, j, "a@example.com")
	b := newTestUser(t, j, "b@example.com")

	expired := risk.State{AccountBalance: 9800, DailyPnL: -200, WeeklyPnL: -200, DailyTradeCount: 3, InCooldown: true, CooldownEndsAt: ptr(t0.Add(-time.Minute))}
	active := risk.State{AccountBalance: 9900, DailyPnL: -100, WeeklyPnL: -300, DailyTradeCount: 2, InCooldown: true, CooldownEndsAt: ptr(t0.Add(time.Hour))}
	require.NoError(t, j.SaveRiskState(ctx, RiskCommit{UserID: a.ID, State: expired, BlockReason: "cooldown", At: t0}))
	require.NoError(t, j.SaveRiskState(ctx, RiskCommit{UserID: b.ID, State: active, BlockReason: "cooldown", At: t0}))

	n, err := j.ClearExpiredCooldowns(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pa, err := j.GetRiskProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, pa.State.InCooldown)
	assert.Nil(t, pa.State.CooldownEndsAt)
	assert.Empty(t, pa.BlockReason)

	pb, err := j.GetRiskProfile(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, pb.State.InCooldown)
	assert.Equal(t, "cooldown", pb.BlockReason)

	n, err = j.ResetDaily(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	pb, err = j.GetRiskProfile(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, pb.State.DailyPnL)
	assert.Zero(t, pb.State.DailyTradeCount)
	assert.Equal(t, -300.0, pb.State.WeeklyPnL)

	_, err = j.ResetWeekly(ctx, t0)
	require.NoError(t, err)
	pb, err = j.GetRiskProfile(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, pb.State.WeeklyPnL)
	assert.Equal(t, 9900.0, pb.State.AccountBalance)

	assert.ErrorIs(t, j.SaveRiskState(ctx, RiskCommit{UserID: "missing", State: expired, At: t0}), ErrNotFound)
}

func TestSaveRiskState_Conflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "conflict@example.com")

	read, err := j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), read.Version)

	// the daily reset lands between the read and the write
	_, err = j.ResetDaily(ctx, t0)
	require.NoError(t, err)

	st := read.State
	st.DailyTradeCount = 3
	flags := []behavior.Flag{{UserID: u.ID, Type: behavior.Overtrading, Severity: behavior.Warning, Details: "x", DetectedAt: t0}}
	events := []RiskEvent{{UserID: u.ID, Type: EventTradeBlocked, Severity: behavior.Warning, Details: "blocked", CreatedAt: t0}}
	err = j.SaveRiskState(ctx, RiskCommit{UserID: u.ID, State: st, Version: read.Version, Flags: flags, Events: events, At: t0})
	assert.ErrorIs(t, err, ErrRiskConflict)

	// nothing from the refused commit was kept
	got, err := j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Zero(t, got.State.DailyTradeCount)
	stored, err := j.ListFlags(ctx, u.ID, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stored)
	evs, err := j.ListRiskEvents(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, evs)

	err = j.SaveRiskState(ctx, RiskCommit{UserID: u.ID, State: st, Version: got.Version, Flags: flags, Events: events, At: t0})
	require.NoError(t, err)
	got, err = j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 3, got.State.DailyTradeCount)
	evs, err = j.ListRiskEvents(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestTradeCommit_StaleVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "stale@example.com")
	tr := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)

	prof, err := j.GetRiskProfile(ctx, u.ID)
	require.NoError(t, err)
	_, err = j.ResetWeekly(ctx, t0)
	require.NoError(t, err)

	tr.ExitTime, tr.ExitPrice, tr.PnLAmount = ptr(t0.Add(time.Hour)), ptr(1.105), ptr(100.0)
	err = j.CloseTrade(ctx, TradeCommit{Trade: &tr, State: prof.State, Version: prof.Version, At: t0.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrRiskConflict)
	assert.NotErrorIs(t, err, ErrStale)

	got, err := j.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, TradeOpen, got.Status, "the trade update rolls back with the risk write")
}

func TestRiskEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "events@example.com")

	for i, typ := range []RiskEventType{EventTradeBlocked, EventCooldownTriggered} {
		e := RiskEvent{UserID: u.ID, Type: typ, Severity: behavior.Warning, Details: string(typ), CreatedAt: t0.Add(time.Duration(i) * time.Minute), Snapshot: RiskSnapshot{ConsecutiveLosses: i}}
		require.NoError(t, j.RecordRiskEvent(ctx, &e))
	}

	events, err := j.ListRiskEvents(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventCooldownTriggered, events[0].Type, "newest first")
	assert.Equal(t, 1, events[0].Snapshot.ConsecutiveLosses)

	events, err = j.ListRiskEvents(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "sim@example.com")

	s := SimulationSession{UserID: u.ID, Type: sim.StressTest, Config: sim.DefaultConfig(sim.StressTest, "EUR/USD"), Performance: sim.StartingPerformance(), StartedAt: t0}
	require.NoError(t, j.CreateSession(ctx, &s))

	got, err := j.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Ended())
	assert.Equal(t, 3.0, got.Config.SpreadPips)
	assert.Equal(t, 100, got.Performance.BehaviorScore)
	assert.NotNil(t, got.FailureReasons)

	perf := sim.Performance{TotalTrades: 10, WinRate: 50, AvgRR: 2, MaxDrawdown: 2, BehaviorScore: 90}
	require.NoError(t, j.EndSession(ctx, s.ID, perf, true, nil, t0.Add(time.Hour)))
	assert.ErrorIs(t, j.EndSession(ctx, s.ID, perf, true, nil, t0.Add(2*time.Hour)), ErrStale)

	got, err = j.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Ended())
	assert.True(t, got.Passed)
	assert.Equal(t, perf, got.Performance)

	_, err = j.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressAndSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "progress@example.com")

	require.NoError(t, j.CompleteLesson(ctx, u.ID, "basics", "pips", t0))
	require.NoError(t, j.CompleteLesson(ctx, u.ID, "basics", "pips", t0.Add(time.Hour)))
	lessons, err := j.ListLessons(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.True(t, t0.Equal(*lessons[0].CompletedAt))

	require.NoError(t, j.SetPatternStatus(ctx, PatternProgress{UserID: u.ID, PatternID: "pin-bar", Status: PatternMastered, UpdatedAt: t0}))
	require.NoError(t, j.SetPatternStatus(ctx, PatternProgress{UserID: u.ID, PatternID: "engulfing", Status: PatternLearning, UpdatedAt: t0}))
	assert.ErrorIs(t, j.SetPatternStatus(ctx, PatternProgress{UserID: u.ID, PatternID: "x", Status: "bogus"}), ErrInvalidValue)

	patterns, err := j.ListPatterns(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Nil(t, patterns[0].MasteredAt, "engulfing sorts first")
	require.NotNil(t, patterns[1].MasteredAt)

	require.NoError(t, j.SetPatternStatus(ctx, PatternProgress{UserID: u.ID, PatternID: "pin-bar", Status: PatternPracticing, UpdatedAt: t0.Add(time.Hour)}))
	patterns, err = j.ListPatterns(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, patterns[1].MasteredAt)
	require.NoError(t, j.SetPatternStatus(ctx, PatternProgress{UserID: u.ID, PatternID: "pin-bar", Status: PatternMastered, UpdatedAt: t0}))

	s := SimulationSession{UserID: u.ID, Type: sim.StressTest, StartedAt: t0}
	require.NoError(t, j.CreateSession(ctx, &s))
	require.NoError(t, j.EndSession(ctx, s.ID, sim.Performance{}, true, nil, t0))

	win := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)
	win.ExitTime, win.ExitPrice, win.PnLAmount = ptr(t0.Add(time.Hour)), ptr(1.105), ptr(100.0)
	require.NoError(t, j.CloseTrade(ctx, TradeCommit{Trade: &win, State: risk.State{AccountBalance: 10100}, Version: riskVersion(t, j, u.ID), At: t0}))
	loss := openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)
	loss.ExitTime, loss.ExitPrice, loss.PnLAmount = ptr(t0.Add(time.Hour)), ptr(1.095), ptr(-100.0)
	require.NoError(t, j.CloseTrade(ctx, TradeCommit{Trade: &loss, State: risk.State{AccountBalance: 10000}, Version: riskVersion(t, j, u.ID), At: t0}))
	openTestTrade(t, j, u, newTestPlan(t, j, u.ID, PlanApproved, t0), t0)

	require.NoError(t, j.AddFlags(ctx, []behavior.Flag{{UserID: u.ID, Type: behavior.Overtrading, Severity: behavior.Warning, Details: "x", DetectedAt: t0}}))

	snap, err := j.ProgressionSnapshot(ctx, u.ID, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, stage.Onboarding, snap.Stage)
	assert.Equal(t, 2, snap.ClosedTrades)
	assert.Equal(t, 1, snap.WinningTrades)
	assert.Equal(t, 1, snap.CompletedLessons)
	assert.Equal(t, 1, snap.MasteredPatterns)
	assert.Equal(t, 1, snap.PassedStressSessions)
	assert.Len(t, snap.Flags, 1)

	_, err = j.ProgressionSnapshot(ctx, "missing", t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j := newTestSQLite(t)
	u := newTestUser(t, j, "entries@example.com")

	first := Entry{UserID: u.ID, Type: EntryDailyReflection, Title: "Monday", Content: "calm", CreatedAt: t0}
	second := Entry{UserID: u.ID, Type: EntryEmotionalLog, Title: "Tuesday", Content: "tilted", ProcessRating: 2, Tags: []string{"tilt"}, CreatedAt: t0.Add(24 * time.Hour)}
	require.NoError(t, j.AddEntry(ctx, &first))
	require.NoError(t, j.AddEntry(ctx, &second))

	entries, err := j.ListEntries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Tuesday", entries[0].Title)
	assert.Equal(t, []string{"tilt"}, entries[0].Tags)
	assert.Equal(t, []string{}, entries[1].Tags)
}

func TestTradeTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DemoBasic, TradeTypeFor(stage.SimBasic))
	assert.Equal(t, SimStress, TradeTypeFor(stage.SimStress))
	assert.Equal(t, LiveStandard, TradeTypeFor(stage.LiveStandard))
}
