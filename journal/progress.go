package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/progression"
	"github.com/forexgate/forexgate/sim"
)

// CompleteLesson records a lesson as completed. Completing it again keeps
// the first completion time.
func (j *SQLite) CompleteLesson(ctx context.Context, userID, courseID, lessonID string, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO lesson_progress (user_id, course_id, lesson_id, status, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, course_id, lesson_id) DO UPDATE SET
			status = excluded.status,
			completed_at = COALESCE(lesson_progress.completed_at, excluded.completed_at)`,
		userID, courseID, lessonID, LessonCompleted, utc(at))
	return err
}

func (j *SQLite) ListLessons(ctx context.Context, userID string) ([]LessonProgress, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT user_id, course_id, lesson_id, status, completed_at
		FROM lesson_progress WHERE user_id = ? ORDER BY course_id, lesson_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LessonProgress
	for rows.Next() {
		var l LessonProgress
		var completedAt sql.NullTime
		if err := rows.Scan(&l.UserID, &l.CourseID, &l.LessonID, &l.Status, &completedAt); err != nil {
			return nil, err
		}
		l.CompletedAt = timePtr(completedAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// SetPatternStatus upserts the progress on one pattern. MasteredAt is set
// the first time the pattern reaches mastered and cleared if it drops back.
func (j *SQLite) SetPatternStatus(ctx context.Context, p PatternProgress) error {
	if !p.Status.Valid() {
		return fmt.Errorf("pattern status %q: %w", p.Status, ErrInvalidValue)
	}
	at := utc(p.UpdatedAt)
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO pattern_progress (user_id, pattern_id, status, mastered_at, updated_at)
		VALUES (?, ?, ?, CASE WHEN ? = 'mastered' THEN ? END, ?)
		ON CONFLICT (user_id, pattern_id) DO UPDATE SET
			status = excluded.status,
			mastered_at = CASE WHEN excluded.status = 'mastered'
				THEN COALESCE(pattern_progress.mastered_at, excluded.mastered_at) END,
			updated_at = excluded.updated_at`,
		p.UserID, p.PatternID, p.Status, p.Status, at, at)
	return err
}

func (j *SQLite) ListPatterns(ctx context.Context, userID string) ([]PatternProgress, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT user_id, pattern_id, status, mastered_at, updated_at
		FROM pattern_progress WHERE user_id = ? ORDER BY pattern_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatternProgress
	for rows.Next() {
		var p PatternProgress
		var masteredAt sql.NullTime
		if err := rows.Scan(&p.UserID, &p.PatternID, &p.Status, &masteredAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.MasteredAt = timePtr(masteredAt)
		p.UpdatedAt = utc(p.UpdatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProgressionSnapshot gathers what progression.CheckStatus needs: the
// current stage, flags detected since since, and the progress counters.
func (j *SQLite) ProgressionSnapshot(ctx context.Context, userID string, since time.Time) (progression.Snapshot, error) {
	cur, err := j.CurrentStage(ctx, userID)
	if err != nil {
		return progression.Snapshot{}, err
	}
	snap := progression.Snapshot{UserID: userID, Stage: cur}

	if snap.Flags, err = j.ListFlags(ctx, userID, since); err != nil {
		return progression.Snapshot{}, err
	}

	err = j.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl_amount > 0 THEN 1 ELSE 0 END), 0)
		FROM trades WHERE user_id = ? AND status = ?`, userID, TradeClosed,
	).Scan(&snap.ClosedTrades, &snap.WinningTrades)
	if err != nil {
		return progression.Snapshot{}, fmt.Errorf("count trades: %w", err)
	}

	err = j.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM lesson_progress WHERE user_id = ? AND status = ?),
			(SELECT COUNT(*) FROM pattern_progress WHERE user_id = ? AND status = ?),
			(SELECT COUNT(*) FROM simulation_sessions WHERE user_id = ? AND session_type = ? AND passed = 1)`,
		userID, LessonCompleted, userID, PatternMastered, userID, sim.StressTest,
	).Scan(&snap.CompletedLessons, &snap.MasteredPatterns, &snap.PassedStressSessions)
	if err != nil {
		return progression.Snapshot{}, fmt.Errorf("count progress: %w", err)
	}
	return snap, nil
}
