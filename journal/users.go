package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/internal/id"
	"github.com/forexgate/forexgate/stage"
)

// CreateUser stores u together with its first history entry and its risk
// profile. A repeated email yields ErrDuplicate.
func (j *SQLite) CreateUser(ctx context.Context, u *User, p RiskProfile) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = utc(u.CreatedAt)
	if u.ID == "" {
		u.ID = id.NewAt(u.CreatedAt)
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	if u.Stage == "" {
		u.Stage = stage.Onboarding
	}
	onb, err := encode(u.Onboarding)
	if err != nil {
		return err
	}
	p.UserID = u.ID
	p.UpdatedAt = u.CreatedAt

	err = j.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users
			(id, email, name, role, current_stage, behavior_score, risk_compliance_score, onboarding, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, u.Name, u.Role, u.Stage, u.BehaviorScore, u.RiskComplianceScore, onb, u.CreatedAt,
		)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stage_history (user_id, stage, entered_at) VALUES (?, ?, ?)`,
			u.ID, u.Stage, u.CreatedAt,
		); err != nil {
			return err
		}
		return insertRiskProfile(ctx, tx, p)
	})
	if isUnique(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	u.History = []stage.HistoryEntry{{Stage: u.Stage, EnteredAt: u.CreatedAt}}
	return nil
}

func (j *SQLite) GetUser(ctx context.Context, userID string) (User, error) {
	var (
		u   User
		onb string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, current_stage, behavior_score, risk_compliance_score, onboarding, created_at
		FROM users WHERE id = ?`, userID,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Stage, &u.BehaviorScore, &u.RiskComplianceScore, &onb, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = utc(u.CreatedAt)
	if err := decode(onb, &u.Onboarding); err != nil {
		return User{}, fmt.Errorf("user %s onboarding: %w", userID, err)
	}

	u.History, err = j.stageHistory(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (j *SQLite) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var userID string
	err := j.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	return j.GetUser(ctx, userID)
}

func (j *SQLite) stageHistory(ctx context.Context, userID string) ([]stage.HistoryEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT stage, entered_at, exited_at, exit_reason
		FROM stage_history WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stage.HistoryEntry
	for rows.Next() {
		var (
			h      stage.HistoryEntry
			exited sql.NullTime
		)
		if err := rows.Scan(&h.Stage, &h.EnteredAt, &exited, &h.ExitReason); err != nil {
			return nil, err
		}
		h.EnteredAt = utc(h.EnteredAt)
		h.ExitedAt = timePtr(exited)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user id, oldest first.
func (j *SQLite) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLite) CurrentStage(ctx context.Context, userID string) (stage.Stage, error) {
	var s stage.Stage
	err := j.db.QueryRowContext(ctx, `SELECT current_stage FROM users WHERE id = ?`, userID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return s, err
}

// TransitionStage moves the user from t.From to t.To, closing the open
// history entry with t.Reason. It fails with ErrStageConflict when the
// stored stage is no longer t.From.
func (j *SQLite) TransitionStage(ctx context.Context, t stage.Transition) error {
	at := utc(t.At)
	return j.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET current_stage = ? WHERE id = ? AND current_stage = ?`,
			t.To, t.UserID, t.From)
		if err := expectOne(res, err); err != nil {
			if errors.Is(err, ErrStale) {
				return fmt.Errorf("user %s from %s: %w", t.UserID, t.From, ErrStageConflict)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stage_history SET exited_at = ?, exit_reason = ?
			WHERE user_id = ? AND exited_at IS NULL`,
			at, t.Reason, t.UserID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stage_history (user_id, stage, entered_at) VALUES (?, ?, ?)`,
			t.UserID, t.To, at)
		return err
	})
}

func (j *SQLite) UpdateBehaviorScore(ctx context.Context, userID string, score int) error {
	res, err := j.db.ExecContext(ctx, `UPDATE users SET behavior_score = ? WHERE id = ?`, score, userID)
	return updated(res, err, "user "+userID)
}

func (j *SQLite) SaveOnboarding(ctx context.Context, userID string, o Onboarding) error {
	onb, err := encode(o)
	if err != nil {
		return err
	}
	res, err := j.db.ExecContext(ctx, `UPDATE users SET onboarding = ? WHERE id = ?`, onb, userID)
	return updated(res, err, "user "+userID)
}
