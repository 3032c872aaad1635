package worker

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/fieldrun/fieldrun/internal/common"
)

// Janitor periodically sweeps the job registry for stale entries: jobs whose
// client disappeared without an abort, or finished jobs nobody re-attached to.
type Janitor struct {
	cron     *cron.Cron
	registry *Registry
	ttl      time.Duration
	logger   arbor.ILogger
}

// NewJanitor schedules a sweep per the configured cron expression.
func NewJanitor(config *common.ProcessingConfig, registry *Registry, logger arbor.ILogger) (*Janitor, error) {
	j := &Janitor{
		cron:     cron.New(),
		registry: registry,
		ttl:      config.JobTTLDuration(),
		logger:   logger,
	}

	schedule := config.SweepSchedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running the sweep schedule.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info().
		Str("ttl", j.ttl.String()).
		Msg("Stale job janitor started")
}

// Stop stops the schedule and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	if swept := j.registry.SweepStale(j.ttl); swept > 0 {
		j.logger.Info().
			Int("swept", swept).
			Int("active", j.registry.ActiveCount()).
			Msg("Swept stale processing jobs")
	}
}
