package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/robfig/cron/v3"
)

// Sweeper applies the backup retention policy.
type Sweeper interface {
	SweepBackups(ctx context.Context) (repository.SweepReport, error)
}

// BackupSweeper runs the retention sweep on a cron schedule.
type BackupSweeper struct {
	cron    *cron.Cron
	sweeper Sweeper
}

// NewBackupSweeper schedules sweeps according to schedule, which accepts an
// optional seconds field and descriptors such as "@daily".
func NewBackupSweeper(sweeper Sweeper, schedule string) (*BackupSweeper, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &BackupSweeper{
		cron:    cron.New(cron.WithParser(parser)),
		sweeper: sweeper,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid backup sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running scheduled sweeps in the background.
func (s *BackupSweeper) Start() {
	s.cron.Start()
	slog.Info("Backup sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *BackupSweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Backup sweeper stopped")
}

func (s *BackupSweeper) run() {
	if _, err := s.sweeper.SweepBackups(context.Background()); err != nil {
		slog.Error("Scheduled backup sweep failed", slog.Any("err", err))
	}
}
