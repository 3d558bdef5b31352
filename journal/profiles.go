package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/internal/id"
	"github.com/forexgate/forexgate/risk"
)

func insertRiskProfile(ctx context.Context, q querier, p RiskProfile) error {
	st := p.State
	_, err := q.ExecContext(ctx, `
		INSERT INTO risk_profiles
		(user_id, max_risk_per_trade, max_daily_drawdown, max_weekly_drawdown, max_open_positions, max_daily_trades,
		 account_balance, daily_pnl, weekly_pnl, daily_trade_count, open_position_count, consecutive_losses,
		 in_cooldown, cooldown_ends_at, last_trade_at, block_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.MaxRiskPerTrade, p.MaxDailyDrawdown, p.MaxWeeklyDrawdown, p.MaxOpenPositions, p.MaxDailyTrades,
		st.AccountBalance, st.DailyPnL, st.WeeklyPnL, st.DailyTradeCount, st.OpenPositionCount, st.ConsecutiveLosses,
		boolInt(st.InCooldown), nullTime(st.CooldownEndsAt), nullTime(st.LastTradeAt), p.BlockReason, utc(p.UpdatedAt),
	)
	return err
}

// RiskCommit is a new running state for a profile together with the flags
// and events raised while deriving it. Version is the profile version the
// state was derived from; the write fails with ErrRiskConflict when the
// profile has moved on since.
type RiskCommit struct {
	UserID      string
	State       risk.State
	BlockReason string
	Version     int64
	Flags       []behavior.Flag
	Events      []RiskEvent
	At          time.Time
}

// write stores the commit through q. Events without a trade are tied to
// tradeID.
func (c RiskCommit) write(ctx context.Context, q querier, tradeID string) error {
	if err := saveRiskState(ctx, q, c.UserID, c.State, c.BlockReason, c.Version, c.At); err != nil {
		return err
	}
	if err := insertFlags(ctx, q, c.Flags); err != nil {
		return err
	}
	for i := range c.Events {
		if c.Events[i].TradeID == "" {
			c.Events[i].TradeID = tradeID
		}
		if err := insertRiskEvent(ctx, q, &c.Events[i]); err != nil {
			return err
		}
	}
	return nil
}

// saveRiskState overwrites the running state of a profile still at version.
// The static limits are left alone.
func saveRiskState(ctx context.Context, q querier, userID string, st risk.State, blockReason string, version int64, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE risk_profiles SET
			account_balance = ?, daily_pnl = ?, weekly_pnl = ?, daily_trade_count = ?,
			open_position_count = ?, consecutive_losses = ?, in_cooldown = ?, cooldown_ends_at = ?,
			last_trade_at = ?, block_reason = ?, updated_at = ?, version = version + 1
		WHERE user_id = ? AND version = ?`,
		st.AccountBalance, st.DailyPnL, st.WeeklyPnL, st.DailyTradeCount,
		st.OpenPositionCount, st.ConsecutiveLosses, boolInt(st.InCooldown), nullTime(st.CooldownEndsAt),
		nullTime(st.LastTradeAt), blockReason, utc(at), userID, version,
	)
	err = expectOne(res, err)
	if !errors.Is(err, ErrStale) {
		return err
	}

	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM risk_profiles WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("risk profile %s: %w", userID, ErrNotFound)
	}
	return fmt.Errorf("risk profile %s at version %d: %w", userID, version, ErrRiskConflict)
}

func (j *SQLite) GetRiskProfile(ctx context.Context, userID string) (RiskProfile, error) {
	var (
		p              RiskProfile
		inCooldown     bool
		cooldownEndsAt sql.NullTime
		lastTradeAt    sql.NullTime
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT user_id, max_risk_per_trade, max_daily_drawdown, max_weekly_drawdown, max_open_positions, max_daily_trades,
		       account_balance, daily_pnl, weekly_pnl, daily_trade_count, open_position_count, consecutive_losses,
		       in_cooldown, cooldown_ends_at, last_trade_at, block_reason, updated_at, version
		FROM risk_profiles WHERE user_id = ?`, userID,
	).Scan(
		&p.UserID, &p.MaxRiskPerTrade, &p.MaxDailyDrawdown, &p.MaxWeeklyDrawdown, &p.MaxOpenPositions, &p.MaxDailyTrades,
		&p.State.AccountBalance, &p.State.DailyPnL, &p.State.WeeklyPnL, &p.State.DailyTradeCount,
		&p.State.OpenPositionCount, &p.State.ConsecutiveLosses,
		&inCooldown, &cooldownEndsAt, &lastTradeAt, &p.BlockReason, &p.UpdatedAt, &p.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RiskProfile{}, fmt.Errorf("risk profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return RiskProfile{}, err
	}
	p.State.InCooldown = inCooldown
	p.State.CooldownEndsAt = timePtr(cooldownEndsAt)
	p.State.LastTradeAt = timePtr(lastTradeAt)
	p.UpdatedAt = utc(p.UpdatedAt)
	return p, nil
}

// SaveRiskState persists a risk state that changed without a trade, with
// its flags and events, in one transaction.
func (j *SQLite) SaveRiskState(ctx context.Context, c RiskCommit) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	return j.inTx(ctx, func(tx *sql.Tx) error {
		return c.write(ctx, tx, "")
	})
}

// ResetDaily zeroes the daily counters of every profile and returns how
// many were touched.
func (j *SQLite) ResetDaily(ctx context.Context, at time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		UPDATE risk_profiles SET daily_pnl = 0, daily_trade_count = 0, updated_at = ?, version = version + 1`, utc(at))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (j *SQLite) ResetWeekly(ctx context.Context, at time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		UPDATE risk_profiles SET weekly_pnl = 0, updated_at = ?, version = version + 1`, utc(at))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearExpiredCooldowns lifts every cooldown whose end time is at or before
// now. Cooldowns without an end time are left alone.
func (j *SQLite) ClearExpiredCooldowns(ctx context.Context, now time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		UPDATE risk_profiles SET in_cooldown = 0, cooldown_ends_at = NULL, block_reason = '', updated_at = ?, version = version + 1
		WHERE in_cooldown = 1 AND cooldown_ends_at IS NOT NULL AND cooldown_ends_at <= ?`,
		utc(now), utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (j *SQLite) RecordRiskEvent(ctx context.Context, e *RiskEvent) error {
	return insertRiskEvent(ctx, j.db, e)
}

func insertRiskEvent(ctx context.Context, q querier, e *RiskEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = utc(e.CreatedAt)
	if e.ID == "" {
		e.ID = id.NewAt(e.CreatedAt)
	}
	snap, err := encode(e.Snapshot)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO risk_events (id, user_id, trade_id, event_type, severity, details, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TradeID, e.Type, e.Severity, e.Details, snap, e.CreatedAt,
	)
	return err
}

// ListRiskEvents returns the newest events first, at most limit of them
// when limit is positive.
func (j *SQLite) ListRiskEvents(ctx context.Context, userID string, limit int) ([]RiskEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, trade_id, event_type, severity, details, snapshot, created_at
		FROM risk_events WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RiskEvent
	for rows.Next() {
		var (
			e    RiskEvent
			snap string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TradeID, &e.Type, &e.Severity, &e.Details, &snap, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := decode(snap, &e.Snapshot); err != nil {
			return nil, err
		}
		e.CreatedAt = utc(e.CreatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
