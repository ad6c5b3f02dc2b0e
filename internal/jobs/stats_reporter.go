package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/harshitk99/excali-new/internal/metrics"
	"github.com/harshitk99/excali-new/internal/session"
)

// StatsSource is the part of the session registry the reporter reads.
type StatsSource interface {
	Stats() session.Stats
}

// StatsReporter periodically logs registry occupancy and refreshes the
// session and room gauges.
type StatsReporter struct {
	source   StatsSource
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewStatsReporter(source StatsSource, schedule string, logger *zap.Logger) *StatsReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsReporter{
		source:   source,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the report. An empty schedule disables it.
func (r *StatsReporter) Start() error {
	if r.schedule == "" {
		r.logger.Info("stats reporter disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule stats reporter: %w", err)
	}
	r.cron.Start()
	r.logger.Info("stats reporter started", zap.String("schedule", r.schedule))
	return nil
}

// Stop waits for a running report to finish.
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce publishes the current registry stats.
func (r *StatsReporter) RunOnce() session.Stats {
	stats := r.source.Stats()
	metrics.SetSessions(stats.Sessions)
	metrics.SetRooms(stats.Rooms)
	r.logger.Info("registry stats",
		zap.Int("sessions", stats.Sessions),
		zap.Int("rooms", stats.Rooms),
		zap.Int("memberships", stats.Memberships))
	return stats
}
