package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forexgate/forexgate/internal/id"
	"github.com/forexgate/forexgate/sim"
)

const sessionColumns = `id, user_id, session_type, scenario_id, config, started_at, ended_at, performance, passed, failure_reasons`

func (j *SQLite) CreateSession(ctx context.Context, s *SimulationSession) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	s.StartedAt = utc(s.StartedAt)
	if s.ID == "" {
		s.ID = id.NewAt(s.StartedAt)
	}
	s.FailureReasons = nonNil(s.FailureReasons)
	cfg, err := encode(s.Config)
	if err != nil {
		return err
	}
	perf, err := encode(s.Performance)
	if err != nil {
		return err
	}
	reasons, err := encode(s.FailureReasons)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO simulation_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Type, s.ScenarioID, cfg, s.StartedAt, nullTime(s.EndedAt), perf, boolInt(s.Passed), reasons,
	)
	return err
}

func (j *SQLite) GetSession(ctx context.Context, sessionID string) (SimulationSession, error) {
	var (
		s                  SimulationSession
		cfg, perf, reasons string
		endedAt            sql.NullTime
	)
	err := j.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM simulation_sessions WHERE id = ?`, sessionID).Scan(
		&s.ID, &s.UserID, &s.Type, &s.ScenarioID, &cfg, &s.StartedAt, &endedAt, &perf, &s.Passed, &reasons,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SimulationSession{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return SimulationSession{}, err
	}
	s.StartedAt = utc(s.StartedAt)
	s.EndedAt = timePtr(endedAt)
	if err := decode(cfg, &s.Config); err != nil {
		return SimulationSession{}, err
	}
	if err := decode(perf, &s.Performance); err != nil {
		return SimulationSession{}, err
	}
	if err := decode(reasons, &s.FailureReasons); err != nil {
		return SimulationSession{}, err
	}
	s.FailureReasons = nonNil(s.FailureReasons)
	return s, nil
}

// EndSession stores the final performance and verdict. A session can only
// be ended once; a second call yields ErrStale.
func (j *SQLite) EndSession(ctx context.Context, sessionID string, perf sim.Performance, passed bool, reasons []string, at time.Time) error {
	p, err := encode(perf)
	if err != nil {
		return err
	}
	r, err := encode(nonNil(reasons))
	if err != nil {
		return err
	}
	res, err := j.db.ExecContext(ctx, `
		UPDATE simulation_sessions SET ended_at = ?, performance = ?, passed = ?, failure_reasons = ?
		WHERE id = ? AND ended_at IS NULL`,
		utc(at), p, boolInt(passed), r, sessionID)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}
