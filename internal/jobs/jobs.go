package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"chorewheel/internal/backup"
	"chorewheel/internal/calendar"
	"chorewheel/internal/generate"
	"chorewheel/internal/push"
	"chorewheel/internal/store"
)

// horizonDays is how far ahead the nightly run materializes assignments.
const horizonDays = 7

// Scheduler owns the periodic background work: nightly assignment
// generation, scheduled backups, and session pruning.
type Scheduler struct {
	cron       *cron.Cron
	generator  *generate.Generator
	households *store.HouseholdStore
	sessions   *store.SessionStore
	backups    *backup.Manager
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewScheduler(
	generator *generate.Generator,
	households *store.HouseholdStore,
	sessions *store.SessionStore,
	backups *backup.Manager,
	notifier *push.Notifier,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		generator:  generator,
		households: households,
		sessions:   sessions,
		backups:    backups,
		notifier:   notifier,
		logger:     logger.With("component", "jobs"),
	}
}

// Start registers the cron entries and begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	// Generate assignments shortly after midnight so the day's chores exist
	// before anyone wakes up.
	if _, err := s.cron.AddFunc("5 0 * * *", func() { s.GenerateAll(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", func() { s.runBackups(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 * * * *", s.pruneSessions); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// GenerateAll runs generation for every household over the coming week.
// Also invoked from the admin endpoint for an on-demand run.
func (s *Scheduler) GenerateAll(ctx context.Context) {
	ids, err := s.households.ListIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	start := calendar.FromTime(time.Now().UTC())
	end := start.AddDays(horizonDays - 1)

	for _, id := range ids {
		res, err := s.generator.Generate(ctx, id, start, end)
		if err != nil {
			s.logger.Error("nightly generation", "household_id", id, "error", err)
			continue
		}
		if s.notifier != nil {
			s.notifier.ChoresGenerated(id, res.Created)
		}
	}
}

func (s *Scheduler) runBackups(ctx context.Context) {
	if s.backups == nil || !s.backups.Enabled() {
		return
	}

	ids, err := s.households.ListIDs()
	if err != nil {
		s.logger.Error("list households for backup", "error", err)
		return
	}

	for _, id := range ids {
		if _, err := s.backups.Run(ctx, id); err != nil {
			s.logger.Error("scheduled backup", "household_id", id, "error", err)
			continue
		}
		if err := s.backups.Cleanup(ctx, id); err != nil {
			s.logger.Error("backup cleanup", "household_id", id, "error", err)
		}
	}
}

func (s *Scheduler) pruneSessions() {
	n, err := s.sessions.DeleteExpired()
	if err != nil {
		s.logger.Error("prune sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("pruned expired sessions", "count", n)
	}
}
