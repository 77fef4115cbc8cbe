// Package scheduler runs the periodic maintenance jobs on cron schedules.
// Jobs fail independently; a failing or panicking job never stops the others.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job does one unit of maintenance and reports how many items it touched.
type Job func(ctx context.Context) (affected int, err error)

// Scheduler owns a cron runner and the named jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	jobs    map[string]Job
	timeout time.Duration
}

// New creates a scheduler; each run gets timeout as its deadline.
func New(log logrus.FieldLogger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		log:     log,
		jobs:    make(map[string]Job),
		timeout: timeout,
	}
}

// Add registers job under name with a standard cron spec or descriptor (@every 1h).
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background(), name) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = job
	return nil
}

// Names lists registered jobs in stable order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes one job immediately.
func (s *Scheduler) Run(ctx context.Context, name string) (affected int, err error) {
	job, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	log := s.log.WithField("job", name)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		metrics.RecordJob(name, affected, err)
		if err != nil {
			log.WithError(err).Error("job failed")
			return
		}
		log.WithField("affected", affected).Info("job finished")
	}()

	start := time.Now()
	affected, err = job(ctx)
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("job returned")
	return affected, err
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts new runs and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
