package academy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/journal"
	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/mentor"
	"github.com/forexgate/forexgate/risk"
	"github.com/forexgate/forexgate/sim"
	"github.com/forexgate/forexgate/stage"
)

type PlanInput struct {
	Pair                  string           `json:"pair" validate:"required"`
	Direction             market.Direction `json:"direction" validate:"required,oneof=long short"`
	MarketBias            string           `json:"market_bias" validate:"min=10"`
	BiasReasoning         string           `json:"bias_reasoning" validate:"min=20"`
	SetupType             string           `json:"setup_type" validate:"min=3"`
	EntryTrigger          string           `json:"entry_trigger" validate:"min=10"`
	InvalidationPoint     string           `json:"invalidation_point" validate:"min=5"`
	InvalidationReasoning string           `json:"invalidation_reasoning" validate:"min=10"`
	RiskAmount            float64          `json:"risk_amount" validate:"gt=0"`
	RiskPercent           float64          `json:"risk_percent" validate:"gt=0,lte=5"`
	RiskRewardRatio       float64          `json:"risk_reward_ratio" validate:"gt=0"`
}

// SubmitPlan reviews a plan with the mentor and stores it as approved or
// rejected.
func (s *Service) SubmitPlan(ctx context.Context, userID string, in PlanInput) (journal.TradePlan, error) {
	if err := s.check(in); err != nil {
		return journal.TradePlan{}, err
	}
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return journal.TradePlan{}, err
	}

	p := journal.TradePlan{
		UserID:                userID,
		Pair:                  market.NormalizePair(in.Pair),
		Direction:             in.Direction,
		MarketBias:            in.MarketBias,
		BiasReasoning:         in.BiasReasoning,
		SetupType:             in.SetupType,
		EntryTrigger:          in.EntryTrigger,
		InvalidationPoint:     in.InvalidationPoint,
		InvalidationReasoning: in.InvalidationReasoning,
		RiskAmount:            in.RiskAmount,
		RiskPercent:           in.RiskPercent,
		RiskRewardRatio:       in.RiskRewardRatio,
		CreatedAt:             s.clock(),
	}
	resp := mentor.Evaluate(p.MentorPlan(), cur)
	p.Mentoring = &resp
	p.Status = journal.PlanRejected
	if resp.Approved {
		p.Status = journal.PlanApproved
	}
	if err := s.store.CreatePlan(ctx, &p); err != nil {
		return journal.TradePlan{}, fmt.Errorf("store plan: %w", err)
	}
	s.log.Info().
		Str("user_id", userID).
		Str("plan_id", p.ID).
		Str("status", string(p.Status)).
		Str("confidence", string(resp.Confidence)).
		Msg("plan reviewed")
	return p, nil
}

type ExecuteInput struct {
	PlanID          string   `json:"plan_id" validate:"required"`
	SessionID       string   `json:"session_id,omitempty"`
	EntryPrice      float64  `json:"entry_price" validate:"gt=0"`
	StopLossPrice   float64  `json:"stop_loss_price" validate:"gt=0,nefield=EntryPrice"`
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty" validate:"omitempty,gt=0"`
	LotSize         float64  `json:"lot_size" validate:"gt=0"`
}

// ExecuteResult reports either an opened trade or the reasons it was
// blocked. A blocked execution is not an error.
type ExecuteResult struct {
	Executed   bool                `json:"executed"`
	TradeID    string              `json:"trade_id,omitempty"`
	Blockers   []risk.Violation    `json:"blockers"`
	Warnings   []string            `json:"warnings"`
	Flags      []behavior.Detected `json:"flags"`
	Cooldown   *risk.CooldownRule  `json:"cooldown,omitempty"`
	Fill       *sim.Fill           `json:"fill,omitempty"`
	Calculated risk.CalculatedRisk `json:"calculated"`
}

func (s *Service) ExecuteTrade(ctx context.Context, userID string, in ExecuteInput) (ExecuteResult, error) {
	if err := s.check(in); err != nil {
		return ExecuteResult{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	return retryRiskConflict(s, userID, "execute", func() (ExecuteResult, error) {
		return s.executeTrade(ctx, userID, in)
	})
}

// riskAttempts bounds how often a trade operation is rerun after another
// writer, such as the maintenance jobs, changed the risk profile under it.
const riskAttempts = 3

func retryRiskConflict[T any](s *Service, userID, op string, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 1; attempt <= riskAttempts; attempt++ {
		v, err = fn()
		if !errors.Is(err, journal.ErrRiskConflict) {
			return v, err
		}
		s.log.Debug().Str("user_id", userID).Str("op", op).Int("attempt", attempt).Msg("risk profile changed, retrying")
	}
	return v, err
}

func (s *Service) executeTrade(ctx context.Context, userID string, in ExecuteInput) (ExecuteResult, error) {
	now := s.clock()
	plan, err := s.store.GetPlan(ctx, in.PlanID)
	if err != nil {
		return ExecuteResult{}, err
	}
	if plan.UserID != userID {
		return ExecuteResult{}, fmt.Errorf("plan %s: %w", in.PlanID, ErrForbidden)
	}
	if plan.Status != journal.PlanApproved {
		return ExecuteResult{}, fmt.Errorf("plan %s is %s: %w", plan.ID, plan.Status, ErrPlanNotApproved)
	}
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return ExecuteResult{}, err
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("load risk profile: %w", err)
	}
	st := prof.State
	blockReason := prof.BlockReason
	cleared := st.ClearExpiredCooldown(now)
	if cleared {
		blockReason = ""
	}

	res := ExecuteResult{}
	entry := in.EntryPrice
	if in.SessionID != "" {
		sess, err := s.ownedSession(ctx, userID, in.SessionID)
		if err != nil {
			return ExecuteResult{}, err
		}
		f := s.fill(entry, sess.Config, plan.Direction)
		entry = f.ExecutionPrice
		res.Fill = &f
	}

	recent, err := s.store.ListTrades(ctx, journal.TradeFilter{UserID: userID, Limit: s.recentTrades})
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("load recent trades: %w", err)
	}
	res.Flags = behavior.Detect(behavior.PreTrade, behavior.Context{
		UserID:       userID,
		RecentTrades: snapshots(recent),
		State: behavior.StateSnapshot{
			DailyTradeCount:   st.DailyTradeCount,
			ConsecutiveLosses: st.ConsecutiveLosses,
			LastTradeAt:       st.LastTradeAt,
			DailyPnL:          st.DailyPnL,
		},
		Proposed: &behavior.ProposedTrade{LotSize: in.LotSize, Pair: plan.Pair},
		Now:      now,
	})

	score, err := s.BehaviorScore(ctx, userID)
	if err != nil {
		return ExecuteResult{}, err
	}
	var events []journal.RiskEvent
	if behavior.AnyCritical(res.Flags) {
		rule, _ := risk.CheckCooldown(st.ConsecutiveLosses, st.DailyPnL, st.AccountBalance, true)
		st.Enter(rule, now)
		res.Cooldown = &rule
		blockReason = rule.Message
		events = append(events, s.riskEvent(userID, journal.EventCooldownTriggered, behavior.Critical, rule.Message, st, score))
	}

	decision := risk.Validate(risk.Proposal{
		Pair:            plan.Pair,
		Direction:       plan.Direction,
		EntryPrice:      entry,
		StopLossPrice:   in.StopLossPrice,
		TakeProfitPrice: in.TakeProfitPrice,
		LotSize:         in.LotSize,
		RiskAmount:      market.RiskAmount(st.AccountBalance, plan.RiskPercent),
		RiskPercent:     plan.RiskPercent,
	}, st, cur, now)
	res.Blockers = decision.Blockers
	res.Warnings = decision.Warnings
	res.Calculated = decision.Calculated

	flags := toFlags(userID, "", res.Flags, now)
	log := s.log.With().Str("user_id", userID).Str("plan_id", plan.ID).Str("stage", string(cur)).Logger()

	if decision.Blocked {
		events = append(events, s.riskEvent(userID, journal.EventTradeBlocked, behavior.Warning,
			joinMessages(decision.Messages()), st, score))
		err := s.store.SaveRiskState(ctx, journal.RiskCommit{
			UserID:      userID,
			State:       st,
			BlockReason: blockReason,
			Version:     prof.Version,
			Flags:       flags,
			Events:      events,
			At:          now,
		})
		if err != nil {
			return ExecuteResult{}, fmt.Errorf("save risk state: %w", err)
		}
		if len(flags) > 0 {
			if _, err := s.refreshScore(ctx, userID); err != nil {
				return ExecuteResult{}, err
			}
		}
		log.Warn().Strs("blockers", decision.Messages()).Int("flags", len(flags)).Msg("trade blocked")
		return res, nil
	}

	t := &journal.Trade{
		UserID:           userID,
		PlanID:           plan.ID,
		SessionID:        in.SessionID,
		Type:             journal.TradeTypeFor(cur),
		Pair:             plan.Pair,
		Direction:        plan.Direction,
		EntryPrice:       entry,
		EntryTime:        now,
		LotSize:          in.LotSize,
		StopLossPrice:    in.StopLossPrice,
		TakeProfitPrice:  in.TakeProfitPrice,
		RiskAmount:       decision.Calculated.RiskAmount,
		RiskPercent:      plan.RiskPercent,
		StopDistancePips: decision.Calculated.StopDistancePips,
		PlannedRR:        decision.Calculated.RiskRewardRatio,
		Status:           journal.TradeOpen,
		PreTradeCheck: journal.PreTradeCheck{
			Completed: true,
			Approved:  true,
			Warnings:  decision.Warnings,
		},
		BehaviorFlags: flagTypes(res.Flags),
	}
	st.DailyTradeCount++
	st.OpenPositionCount++
	st.LastTradeAt = &now

	err = s.store.OpenTrade(ctx, journal.TradeCommit{
		Trade:       t,
		State:       st,
		BlockReason: "",
		Version:     prof.Version,
		Flags:       flags,
		At:          now,
	})
	if errors.Is(err, journal.ErrStale) {
		return ExecuteResult{}, fmt.Errorf("plan %s: %w", plan.ID, ErrPlanNotApproved)
	}
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("open trade: %w", err)
	}
	if len(flags) > 0 {
		if _, err := s.refreshScore(ctx, userID); err != nil {
			return ExecuteResult{}, err
		}
	}

	res.Executed = true
	res.TradeID = t.ID
	log.Info().
		Str("trade_id", t.ID).
		Str("pair", t.Pair).
		Str("direction", string(t.Direction)).
		Float64("entry", entry).
		Float64("lots", t.LotSize).
		Msg("trade opened")
	return res, nil
}

type CloseInput struct {
	ExitPrice  float64        `json:"exit_price" validate:"gt=0"`
	ExitReason sim.ExitReason `json:"exit_reason,omitempty"`
}

type CloseResult struct {
	Trade    journal.Trade       `json:"trade"`
	Flags    []behavior.Detected `json:"flags"`
	Cooldown *risk.CooldownRule  `json:"cooldown,omitempty"`
	Fill     *sim.Fill           `json:"fill,omitempty"`
	State    risk.State          `json:"state"`
}

// CloseTrade settles an open trade. An empty exit reason is derived from
// where the exit price sits relative to the stop and target.
func (s *Service) CloseTrade(ctx context.Context, userID, tradeID string, in CloseInput) (CloseResult, error) {
	if err := s.check(in); err != nil {
		return CloseResult{}, err
	}
	if in.ExitReason != "" && !in.ExitReason.Valid() {
		return CloseResult{}, invalid("exit_reason", "oneof")
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	return retryRiskConflict(s, userID, "close", func() (CloseResult, error) {
		return s.closeTrade(ctx, userID, tradeID, in)
	})
}

func (s *Service) closeTrade(ctx context.Context, userID, tradeID string, in CloseInput) (CloseResult, error) {
	now := s.clock()
	t, err := s.ownedTrade(ctx, userID, tradeID)
	if err != nil {
		return CloseResult{}, err
	}
	if t.Status != journal.TradeOpen {
		return CloseResult{}, fmt.Errorf("trade %s is %s: %w", t.ID, t.Status, ErrTradeNotOpen)
	}
	cur, err := s.store.CurrentStage(ctx, userID)
	if err != nil {
		return CloseResult{}, err
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return CloseResult{}, fmt.Errorf("load risk profile: %w", err)
	}

	res := CloseResult{}
	exit := in.ExitPrice
	if t.SessionID != "" {
		sess, err := s.store.GetSession(ctx, t.SessionID)
		if err != nil {
			return CloseResult{}, fmt.Errorf("load session: %w", err)
		}
		f := s.fill(exit, sess.Config, opposite(t.Direction))
		exit = f.ExecutionPrice
		res.Fill = &f
	}
	reason := in.ExitReason
	if reason == "" {
		reason = sim.ClassifyExit(t.Direction, t.StopLossPrice, t.TakeProfitPrice, exit)
	}

	st := prof.State
	balanceBefore := st.AccountBalance
	pips := market.PnLPips(t.Direction, t.EntryPrice, exit, t.Pair)
	amount := market.PnLAmount(pips, t.LotSize, t.Pair)
	var pct float64
	if balanceBefore > 0 {
		pct = market.Round(amount/balanceBefore*100, 2)
	}
	rr := market.RiskRewardRatio(t.EntryPrice, t.StopLossPrice, exit)
	if amount < 0 {
		rr = -rr
	}
	minutes := int(math.Round(now.Sub(t.EntryTime).Minutes()))

	t.ExitPrice = &exit
	t.ExitTime = &now
	t.PnLPips = &pips
	t.PnLAmount = &amount
	t.PnLPercent = &pct
	t.ActualRR = &rr
	t.DurationMinutes = &minutes
	t.ExitReason = reason

	st.ClearExpiredCooldown(now)
	st.AccountBalance = market.Round(st.AccountBalance+amount, 2)
	st.DailyPnL = market.Round(st.DailyPnL+amount, 2)
	st.WeeklyPnL = market.Round(st.WeeklyPnL+amount, 2)
	st.OpenPositionCount = max(0, st.OpenPositionCount-1)
	if amount < 0 {
		st.ConsecutiveLosses++
	} else {
		st.ConsecutiveLosses = 0
	}

	recent, err := s.store.ListTrades(ctx, journal.TradeFilter{UserID: userID, Limit: s.recentTrades})
	if err != nil {
		return CloseResult{}, fmt.Errorf("load recent trades: %w", err)
	}
	snaps := snapshots(withClosed(recent, t))
	res.Flags = behavior.Detect(behavior.PostTrade, behavior.Context{
		UserID:       userID,
		RecentTrades: snaps,
		State: behavior.StateSnapshot{
			DailyTradeCount:   st.DailyTradeCount,
			ConsecutiveLosses: st.ConsecutiveLosses,
			LastTradeAt:       st.LastTradeAt,
			DailyPnL:          st.DailyPnL,
		},
		Now: now,
	})
	t.BehaviorFlags = append(t.BehaviorFlags, flagTypes(res.Flags)...)

	score, err := s.BehaviorScore(ctx, userID)
	if err != nil {
		return CloseResult{}, err
	}
	var events []journal.RiskEvent
	blockReason := prof.BlockReason
	if !st.CooldownActive(now) {
		blockReason = ""
	}
	if rule, ok := risk.CheckCooldown(st.ConsecutiveLosses, st.DailyPnL, balanceBefore, behavior.AnyCritical(res.Flags)); ok {
		st.Enter(rule, now)
		res.Cooldown = &rule
		blockReason = rule.Message
		events = append(events, s.riskEvent(userID, journal.EventCooldownTriggered, behavior.Critical, rule.Message, st, score))
	}
	if limits, ok := stage.LimitsFor(cur); ok && st.DailyDrawdownPercent() >= limits.MaxDailyDrawdownPercent {
		events = append(events, s.riskEvent(userID, journal.EventDrawdownBreach, behavior.Critical,
			fmt.Sprintf("Daily drawdown at %.2f%% of balance.", st.DailyDrawdownPercent()), st, score))
	}

	flags := toFlags(userID, t.ID, res.Flags, now)
	err = s.store.CloseTrade(ctx, journal.TradeCommit{
		Trade:       &t,
		State:       st,
		BlockReason: blockReason,
		Version:     prof.Version,
		Flags:       flags,
		Events:      events,
		At:          now,
	})
	if errors.Is(err, journal.ErrStale) {
		return CloseResult{}, fmt.Errorf("trade %s: %w", t.ID, ErrTradeNotOpen)
	}
	if err != nil {
		return CloseResult{}, fmt.Errorf("close trade: %w", err)
	}
	if _, err := s.refreshScore(ctx, userID); err != nil {
		return CloseResult{}, err
	}

	ev := s.log.Info()
	if res.Cooldown != nil {
		ev = s.log.Warn().Str("cooldown", res.Cooldown.Name)
	}
	ev.Str("user_id", userID).
		Str("trade_id", t.ID).
		Str("exit_reason", string(reason)).
		Float64("pnl", amount).
		Int("consecutive_losses", st.ConsecutiveLosses).
		Msg("trade closed")

	res.Trade = t
	res.State = st
	return res, nil
}

// CancelTrade withdraws an open trade without settling it.
func (s *Service) CancelTrade(ctx context.Context, userID, tradeID string) (journal.Trade, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	return retryRiskConflict(s, userID, "cancel", func() (journal.Trade, error) {
		return s.cancelTrade(ctx, userID, tradeID)
	})
}

func (s *Service) cancelTrade(ctx context.Context, userID, tradeID string) (journal.Trade, error) {
	now := s.clock()
	t, err := s.ownedTrade(ctx, userID, tradeID)
	if err != nil {
		return journal.Trade{}, err
	}
	if t.Status != journal.TradeOpen {
		return journal.Trade{}, fmt.Errorf("trade %s is %s: %w", t.ID, t.Status, ErrTradeNotOpen)
	}
	prof, err := s.store.GetRiskProfile(ctx, userID)
	if err != nil {
		return journal.Trade{}, fmt.Errorf("load risk profile: %w", err)
	}
	st := prof.State
	st.OpenPositionCount = max(0, st.OpenPositionCount-1)
	t.ExitTime = &now

	err = s.store.CancelTrade(ctx, journal.TradeCommit{Trade: &t, State: st, BlockReason: prof.BlockReason, Version: prof.Version, At: now})
	if errors.Is(err, journal.ErrStale) {
		return journal.Trade{}, fmt.Errorf("trade %s: %w", t.ID, ErrTradeNotOpen)
	}
	if err != nil {
		return journal.Trade{}, fmt.Errorf("cancel trade: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("trade_id", t.ID).Msg("trade cancelled")
	return t, nil
}

type DebriefInput struct {
	FollowedPlan   bool   `json:"followed_plan"`
	EmotionalState string `json:"emotional_state" validate:"max=200"`
	LessonsLearned string `json:"lessons_learned" validate:"max=5000"`
	Rating         int    `json:"rating" validate:"min=1,max=5"`
}

func (s *Service) SubmitDebrief(ctx context.Context, userID, tradeID string, in DebriefInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	t, err := s.ownedTrade(ctx, userID, tradeID)
	if err != nil {
		return err
	}
	if t.Status != journal.TradeClosed {
		return fmt.Errorf("trade %s is %s: %w", t.ID, t.Status, ErrTradeNotClosed)
	}
	err = s.store.SaveDebrief(ctx, t.ID, journal.Debrief{
		Completed:      true,
		FollowedPlan:   in.FollowedPlan,
		EmotionalState: in.EmotionalState,
		LessonsLearned: in.LessonsLearned,
		Rating:         in.Rating,
	})
	if errors.Is(err, journal.ErrStale) {
		return fmt.Errorf("trade %s: %w", t.ID, ErrTradeNotClosed)
	}
	return err
}

func (s *Service) Trade(ctx context.Context, userID, tradeID string) (journal.Trade, error) {
	return s.ownedTrade(ctx, userID, tradeID)
}

func (s *Service) Trades(ctx context.Context, f journal.TradeFilter) ([]journal.Trade, error) {
	return s.store.ListTrades(ctx, f)
}

func (s *Service) ownedTrade(ctx context.Context, userID, tradeID string) (journal.Trade, error) {
	t, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return journal.Trade{}, err
	}
	if t.UserID != userID {
		return journal.Trade{}, fmt.Errorf("trade %s: %w", tradeID, ErrForbidden)
	}
	return t, nil
}

func snapshots(trades []journal.Trade) []behavior.TradeSnapshot {
	out := make([]behavior.TradeSnapshot, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.Snapshot())
	}
	return out
}

// withClosed replaces the stored copy of t in trades, or appends it, so the
// closed trade is the last one the detectors see.
func withClosed(trades []journal.Trade, t journal.Trade) []journal.Trade {
	out := make([]journal.Trade, 0, len(trades)+1)
	for _, x := range trades {
		if x.ID != t.ID {
			out = append(out, x)
		}
	}
	return append(out, t)
}

func opposite(d market.Direction) market.Direction {
	if d == market.Long {
		return market.Short
	}
	return market.Long
}

func joinMessages(msgs []string) string {
	return strings.Join(msgs, " ")
}
