// Package scheduler runs the periodic maintenance jobs: daily and weekly
// risk resets, cooldown and plan expiry sweeps, and the progression sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/forexgate/forexgate/config"
	"github.com/forexgate/forexgate/progression"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	JobDailyReset    = "daily_reset"
	JobWeeklyReset   = "weekly_reset"
	JobCooldownSweep = "cooldown_sweep"
	JobPlanExpiry    = "plan_expiry"
	JobProgressSweep = "progress_sweep"
)

type Store interface {
	ResetDaily(ctx context.Context, at time.Time) (int64, error)
	ResetWeekly(ctx context.Context, at time.Time) (int64, error)
	ClearExpiredCooldowns(ctx context.Context, now time.Time) (int64, error)
	ExpirePlans(ctx context.Context, cutoff, at time.Time) (int64, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Refresher recomputes one user's progression status.
type Refresher interface {
	RefreshProgress(ctx context.Context, userID string) (progression.Status, error)
}

type Scheduler struct {
	store       Store
	refresher   Refresher
	cron        *cron.Cron
	log         zerolog.Logger
	now         func() time.Time
	planTTL     time.Duration
	concurrency int
	jobs        []Job
}

type Job struct {
	Name string
	Spec string
	Next time.Time

	id  cron.EntryID
	run func(context.Context) error
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func New(cfg config.SchedulerConfig, store Store, r Refresher, opts ...Option) (*Scheduler, error) {
	ttl, err := cfg.PlanTTLDuration()
	if err != nil {
		return nil, fmt.Errorf("plan ttl: %w", err)
	}
	s := &Scheduler{
		store:       store,
		refresher:   r,
		log:         zerolog.Nop(),
		now:         time.Now,
		planTTL:     ttl,
		concurrency: max(1, cfg.SweepConcurrency),
	}
	for _, o := range opts {
		o(s)
	}

	cl := cronLogger{s.log}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s.jobs = []Job{
		{Name: JobDailyReset, Spec: cfg.DailyReset, run: s.ResetDaily},
		{Name: JobWeeklyReset, Spec: cfg.WeeklyReset, run: s.ResetWeekly},
		{Name: JobCooldownSweep, Spec: cfg.CooldownSweep, run: s.SweepCooldowns},
		{Name: JobPlanExpiry, Spec: cfg.PlanExpiry, run: s.ExpirePlans},
		{Name: JobProgressSweep, Spec: cfg.ProgressSweep, run: func(ctx context.Context) error {
			_, err := s.SweepProgress(ctx)
			return err
		}},
	}
	for i := range s.jobs {
		j := &s.jobs[i]
		id, err := s.cron.AddFunc(j.Spec, s.wrap(j.Name, j.run))
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", j.Name, err)
		}
		j.id = id
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		start := time.Now()
		if err := run(context.Background()); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job done")
	}
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Jobs lists the registered jobs with their next run time. Next is zero
// until the scheduler is running.
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.Next = s.cron.Entry(j.id).Next
		out = append(out, j)
	}
	return out
}

// RunJob runs a job by name immediately.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.Name == name {
			return j.run(ctx)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) ResetDaily(ctx context.Context) error {
	n, err := s.store.ResetDaily(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("reset daily: %w", err)
	}
	s.log.Info().Int64("profiles", n).Msg("daily risk counters reset")
	return nil
}

func (s *Scheduler) ResetWeekly(ctx context.Context) error {
	n, err := s.store.ResetWeekly(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("reset weekly: %w", err)
	}
	s.log.Info().Int64("profiles", n).Msg("weekly pnl reset")
	return nil
}

func (s *Scheduler) SweepCooldowns(ctx context.Context) error {
	n, err := s.store.ClearExpiredCooldowns(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("sweep cooldowns: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("profiles", n).Msg("expired cooldowns cleared")
	}
	return nil
}

// ExpirePlans expires approved plans that were never executed within the
// plan TTL.
func (s *Scheduler) ExpirePlans(ctx context.Context) error {
	now := s.now().UTC()
	n, err := s.store.ExpirePlans(ctx, now.Add(-s.planTTL), now)
	if err != nil {
		return fmt.Errorf("expire plans: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("plans", n).Msg("stale plans expired")
	}
	return nil
}

type SweepResult struct {
	Users  int
	AtRisk int
	Failed int
}

// SweepProgress refreshes every user's progression with a bounded worker
// pool. A failure for one user is logged and counted; it does not stop the
// sweep.
func (s *Scheduler) SweepProgress(ctx context.Context) (SweepResult, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list users: %w", err)
	}

	var atRisk, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := s.refresher.RefreshProgress(gctx, id)
			if err != nil {
				failed.Add(1)
				s.log.Error().Err(err).Str("user_id", id).Msg("refresh progress")
				return nil
			}
			if st.RegressionRisk {
				atRisk.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Users: len(ids), AtRisk: int(atRisk.Load()), Failed: int(failed.Load())}
	s.log.Info().
		Int("users", res.Users).
		Int("at_risk", res.AtRisk).
		Int("failed", res.Failed).
		Msg("progression sweep")
	return res, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
