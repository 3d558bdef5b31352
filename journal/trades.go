package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/internal/id"
	"github.com/forexgate/forexgate/risk"
)

const tradeColumns = `id, user_id, plan_id, session_id, trade_type, pair, direction, entry_price, exit_price,
	entry_time, exit_time, lot_size, stop_loss_price, take_profit_price, risk_amount, risk_percent,
	stop_distance_pips, planned_rr, actual_rr, pnl_pips, pnl_amount, pnl_percent, duration_minutes,
	exit_reason, status, pre_trade_check, behavior_flags, debrief`

// TradeCommit is everything that changes together when a trade opens,
// closes or is cancelled.
// Version is the risk profile version State was derived from.
type TradeCommit struct {
	Trade       *Trade
	State       risk.State
	BlockReason string
	Version     int64
	Flags       []behavior.Flag
	Events      []RiskEvent
	At          time.Time
}

func (c TradeCommit) writeSide(ctx context.Context, tx *sql.Tx) error {
	t := c.Trade
	return RiskCommit{
		UserID:      t.UserID,
		State:       c.State,
		BlockReason: c.BlockReason,
		Version:     c.Version,
		Flags:       c.Flags,
		Events:      c.Events,
		At:          c.At,
	}.write(ctx, tx, t.ID)
}

// OpenTrade inserts the trade, stores the new risk state and marks the
// plan executed. The plan must still be approved.
func (j *SQLite) OpenTrade(ctx context.Context, c TradeCommit) error {
	t := c.Trade
	t.EntryTime = utc(t.EntryTime)
	if t.ID == "" {
		t.ID = id.NewAt(t.EntryTime)
	}
	if c.At.IsZero() {
		c.At = t.EntryTime
	}
	for i := range c.Flags {
		c.Flags[i].TradeID = t.ID
	}

	return j.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertTrade(ctx, tx, t); err != nil {
			return err
		}
		if t.PlanID != "" {
			res, err := tx.ExecContext(ctx, `
				UPDATE trade_plans SET status = ?, trade_id = ?, updated_at = ?
				WHERE id = ? AND status = ?`,
				PlanExecuted, t.ID, utc(c.At), t.PlanID, PlanApproved)
			if err := expectOne(res, err); err != nil {
				return fmt.Errorf("plan %s: %w", t.PlanID, err)
			}
		}
		return c.writeSide(ctx, tx)
	})
}

// CloseTrade writes the exit fields of an open trade along with the new
// risk state.
func (j *SQLite) CloseTrade(ctx context.Context, c TradeCommit) error {
	return j.finish(ctx, c, TradeClosed)
}

func (j *SQLite) CancelTrade(ctx context.Context, c TradeCommit) error {
	return j.finish(ctx, c, TradeCancelled)
}

func (j *SQLite) finish(ctx context.Context, c TradeCommit, status TradeStatus) error {
	t := c.Trade
	t.Status = status
	if c.At.IsZero() {
		c.At = time.Now()
	}
	flags, err := encode(nonNil(t.BehaviorFlags))
	if err != nil {
		return err
	}

	return j.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE trades SET
				exit_price = ?, exit_time = ?, actual_rr = ?, pnl_pips = ?, pnl_amount = ?, pnl_percent = ?,
				duration_minutes = ?, exit_reason = ?, status = ?, behavior_flags = ?
			WHERE id = ? AND status = ?`,
			nullFloat(t.ExitPrice), nullTime(t.ExitTime), nullFloat(t.ActualRR), nullFloat(t.PnLPips),
			nullFloat(t.PnLAmount), nullFloat(t.PnLPercent), nullInt(t.DurationMinutes), t.ExitReason,
			status, flags, t.ID, TradeOpen)
		if err := expectOne(res, err); err != nil {
			return fmt.Errorf("trade %s: %w", t.ID, err)
		}
		return c.writeSide(ctx, tx)
	})
}

func insertTrade(ctx context.Context, q querier, t *Trade) error {
	pre, err := encode(t.PreTradeCheck)
	if err != nil {
		return err
	}
	flags, err := encode(nonNil(t.BehaviorFlags))
	if err != nil {
		return err
	}
	debrief, err := encode(t.Debrief)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.PlanID, t.SessionID, t.Type, t.Pair, t.Direction, t.EntryPrice, nullFloat(t.ExitPrice),
		utc(t.EntryTime), nullTime(t.ExitTime), t.LotSize, t.StopLossPrice, nullFloat(t.TakeProfitPrice), t.RiskAmount, t.RiskPercent,
		t.StopDistancePips, nullFloat(t.PlannedRR), nullFloat(t.ActualRR), nullFloat(t.PnLPips), nullFloat(t.PnLAmount),
		nullFloat(t.PnLPercent), nullInt(t.DurationMinutes),
		t.ExitReason, t.Status, pre, flags, debrief,
	)
	return err
}

func scanTrade(s scanner) (Trade, error) {
	var (
		t                              Trade
		exitPrice, takeProfit          sql.NullFloat64
		plannedRR, actualRR            sql.NullFloat64
		pnlPips, pnlAmount, pnlPercent sql.NullFloat64
		exitTime                       sql.NullTime
		duration                       sql.NullInt64
		pre, flags, debrief            string
	)
	err := s.Scan(
		&t.ID, &t.UserID, &t.PlanID, &t.SessionID, &t.Type, &t.Pair, &t.Direction, &t.EntryPrice, &exitPrice,
		&t.EntryTime, &exitTime, &t.LotSize, &t.StopLossPrice, &takeProfit, &t.RiskAmount, &t.RiskPercent,
		&t.StopDistancePips, &plannedRR, &actualRR, &pnlPips, &pnlAmount, &pnlPercent, &duration,
		&t.ExitReason, &t.Status, &pre, &flags, &debrief,
	)
	if err != nil {
		return Trade{}, err
	}
	t.EntryTime = utc(t.EntryTime)
	t.ExitTime = timePtr(exitTime)
	t.ExitPrice = floatPtr(exitPrice)
	t.TakeProfitPrice = floatPtr(takeProfit)
	t.PlannedRR = floatPtr(plannedRR)
	t.ActualRR = floatPtr(actualRR)
	t.PnLPips = floatPtr(pnlPips)
	t.PnLAmount = floatPtr(pnlAmount)
	t.PnLPercent = floatPtr(pnlPercent)
	t.DurationMinutes = intPtr(duration)

	if err := decode(pre, &t.PreTradeCheck); err != nil {
		return Trade{}, fmt.Errorf("trade %s pre-trade check: %w", t.ID, err)
	}
	if err := decode(flags, &t.BehaviorFlags); err != nil {
		return Trade{}, fmt.Errorf("trade %s flags: %w", t.ID, err)
	}
	if err := decode(debrief, &t.Debrief); err != nil {
		return Trade{}, fmt.Errorf("trade %s debrief: %w", t.ID, err)
	}
	t.BehaviorFlags = nonNil(t.BehaviorFlags)
	return t, nil
}

func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (Trade, error) {
	t, err := scanTrade(j.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, tradeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, fmt.Errorf("trade %s: %w", tradeID, ErrNotFound)
	}
	return t, err
}

// TradeFilter narrows ListTrades. Zero fields match everything.
type TradeFilter struct {
	UserID    string
	SessionID string
	Status    TradeStatus
	// Limit keeps only the most recent trades.
	Limit int
}

// ListTrades returns matching trades oldest first.
func (j *SQLite) ListTrades(ctx context.Context, f TradeFilter) ([]Trade, error) {
	q := `SELECT ` + tradeColumns + ` FROM trades WHERE 1 = 1`
	var args []any
	if f.UserID != "" {
		q += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.SessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	out, err := j.queryTrades(ctx, q+` ORDER BY entry_time DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// ListTradesClosedBetween returns a user's trades whose exit time falls in
// [start, end), in exit order.
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, userID string, start, end time.Time) ([]Trade, error) {
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE user_id = ? AND status = ? AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time, id`,
		userID, TradeClosed, utc(start), utc(end))
}

func (j *SQLite) queryTrades(ctx context.Context, q string, args ...any) ([]Trade, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveDebrief stores the post-trade review of a closed trade.
func (j *SQLite) SaveDebrief(ctx context.Context, tradeID string, d Debrief) error {
	b, err := encode(d)
	if err != nil {
		return err
	}
	res, err := j.db.ExecContext(ctx, `UPDATE trades SET debrief = ? WHERE id = ? AND status = ?`, b, tradeID, TradeClosed)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("trade %s: %w", tradeID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
