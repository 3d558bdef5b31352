package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/internal/id"
	"github.com/forexgate/forexgate/mentor"
)

const planColumns = `id, user_id, trade_id, pair, direction, market_bias, bias_reasoning, setup_type, entry_trigger,
	invalidation_point, invalidation_reasoning, risk_amount, risk_percent, risk_reward_ratio, mentoring,
	status, created_at, updated_at`

func (j *SQLite) CreatePlan(ctx context.Context, p *TradePlan) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = utc(p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	if p.ID == "" {
		p.ID = id.NewAt(p.CreatedAt)
	}
	var mentoring any
	if p.Mentoring != nil {
		m, err := encode(p.Mentoring)
		if err != nil {
			return err
		}
		mentoring = m
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trade_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.TradeID, p.Pair, p.Direction, p.MarketBias, p.BiasReasoning, p.SetupType, p.EntryTrigger,
		p.InvalidationPoint, p.InvalidationReasoning, p.RiskAmount, p.RiskPercent, p.RiskRewardRatio, mentoring,
		p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func scanPlan(s scanner) (TradePlan, error) {
	var (
		p         TradePlan
		mentoring sql.NullString
	)
	err := s.Scan(
		&p.ID, &p.UserID, &p.TradeID, &p.Pair, &p.Direction, &p.MarketBias, &p.BiasReasoning, &p.SetupType, &p.EntryTrigger,
		&p.InvalidationPoint, &p.InvalidationReasoning, &p.RiskAmount, &p.RiskPercent, &p.RiskRewardRatio, &mentoring,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return TradePlan{}, err
	}
	if mentoring.Valid {
		p.Mentoring = &mentor.Response{}
		if err := decode(mentoring.String, p.Mentoring); err != nil {
			return TradePlan{}, fmt.Errorf("plan %s mentoring: %w", p.ID, err)
		}
	}
	p.CreatedAt = utc(p.CreatedAt)
	p.UpdatedAt = utc(p.UpdatedAt)
	return p, nil
}

func (j *SQLite) GetPlan(ctx context.Context, planID string) (TradePlan, error) {
	p, err := scanPlan(j.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM trade_plans WHERE id = ?`, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return TradePlan{}, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	return p, err
}

// ListPlans returns the plans of a user, newest first.
func (j *SQLite) ListPlans(ctx context.Context, userID string, status PlanStatus) ([]TradePlan, error) {
	q := `SELECT ` + planColumns + ` FROM trade_plans WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	rows, err := j.db.QueryContext(ctx, q+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExpirePlans marks approved plans created before cutoff as expired.
func (j *SQLite) ExpirePlans(ctx context.Context, cutoff, at time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		UPDATE trade_plans SET status = ?, updated_at = ?
		WHERE status = ? AND created_at < ?`,
		PlanExpired, utc(at), PlanApproved, utc(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
