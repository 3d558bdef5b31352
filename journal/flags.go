package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/behavior"
	"github.com/forexgate/forexgate/internal/id"
)

// AddFlags persists detections, assigning ids in place.
func (j *SQLite) AddFlags(ctx context.Context, flags []behavior.Flag) error {
	if len(flags) == 0 {
		return nil
	}
	return j.inTx(ctx, func(tx *sql.Tx) error {
		return insertFlags(ctx, tx, flags)
	})
}

func insertFlags(ctx context.Context, q querier, flags []behavior.Flag) error {
	for i := range flags {
		f := &flags[i]
		if f.DetectedAt.IsZero() {
			f.DetectedAt = time.Now()
		}
		f.DetectedAt = utc(f.DetectedAt)
		if f.ID == "" {
			f.ID = id.NewAt(f.DetectedAt)
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO behavior_flags (id, user_id, trade_id, flag_type, severity, details, detected_at, resolved, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.UserID, f.TradeID, f.Type, f.Severity, f.Details, f.DetectedAt, boolInt(f.Resolved), nullTime(f.ResolvedAt),
		)
		if err != nil {
			return fmt.Errorf("flag %s: %w", f.Type, err)
		}
	}
	return nil
}

// ListFlags returns a user's flags detected at or after since, oldest first.
func (j *SQLite) ListFlags(ctx context.Context, userID string, since time.Time) ([]behavior.Flag, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, trade_id, flag_type, severity, details, detected_at, resolved, resolved_at
		FROM behavior_flags WHERE user_id = ? AND detected_at >= ?
		ORDER BY detected_at, id`, userID, utc(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []behavior.Flag{}
	for rows.Next() {
		var (
			f          behavior.Flag
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(&f.ID, &f.UserID, &f.TradeID, &f.Type, &f.Severity, &f.Details, &f.DetectedAt, &f.Resolved, &resolvedAt); err != nil {
			return nil, err
		}
		f.DetectedAt = utc(f.DetectedAt)
		f.ResolvedAt = timePtr(resolvedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ResolveFlag marks a flag of userID resolved. Resolving twice keeps the
// first resolution time.
func (j *SQLite) ResolveFlag(ctx context.Context, userID, flagID string, at time.Time) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE behavior_flags SET resolved = 1, resolved_at = COALESCE(resolved_at, ?)
		WHERE id = ? AND user_id = ?`, utc(at), flagID, userID)
	return updated(res, err, "flag "+flagID)
}
