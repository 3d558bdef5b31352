package journal

import (
	"context"
	"time"

	"github.com/forexgate/forexgate/internal/id"
)

func (j *SQLite) AddEntry(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = utc(e.CreatedAt)
	if e.ID == "" {
		e.ID = id.NewAt(e.CreatedAt)
	}
	e.Tags = nonNil(e.Tags)
	tags, err := encode(e.Tags)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO journal_entries
		(id, user_id, trade_id, entry_type, title, content, emotional_state, process_rating, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TradeID, e.Type, e.Title, e.Content, e.EmotionalState, e.ProcessRating, tags, e.CreatedAt,
	)
	return err
}

// ListEntries returns a user's journal entries, newest first.
func (j *SQLite) ListEntries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, trade_id, entry_type, title, content, emotional_state, process_rating, tags, created_at
		FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			tags string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TradeID, &e.Type, &e.Title, &e.Content, &e.EmotionalState, &e.ProcessRating, &tags, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := decode(tags, &e.Tags); err != nil {
			return nil, err
		}
		e.Tags = nonNil(e.Tags)
		e.CreatedAt = utc(e.CreatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
