package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/reminder/internal/config"
	"github.com/klokku/reminder/pkg/reminder"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const jobTimeout = time.Minute

// Scheduler triggers the reminder pipeline on cron specs evaluated in the
// configured timezone. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	service reminder.Service
	names   map[cron.EntryID]string
}

type Entry struct {
	Name string
	Next time.Time
}

func New(cfg config.Scheduler, location *time.Location, service reminder.Service) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		service: service,
		names:   make(map[cron.EntryID]string),
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"daily", cfg.Daily, s.runDaily},
		{"weekly", cfg.Weekly, s.runWeekly},
		{"health", cfg.Health, s.checkHealth},
	}
	for _, job := range jobs {
		if job.spec == "" {
			log.Debugf("Scheduler: %s job disabled", job.name)
			continue
		}
		id, err := s.cron.AddFunc(job.spec, withTimeout(job.run))
		if err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
		s.names[id] = job.name
		log.Infof("Scheduler: %s job scheduled at %q (%s)", job.name, job.spec, location)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("Scheduler: stopped before running jobs completed")
	}
}

func (s *Scheduler) Entries() []Entry {
	entries := make([]Entry, 0, len(s.names))
	for _, e := range s.cron.Entries() {
		entries = append(entries, Entry{Name: s.names[e.ID], Next: e.Next})
	}
	return entries
}

func (s *Scheduler) runDaily(ctx context.Context) {
	log.Info("Scheduler: daily reminder started")
	logOutcome("daily", s.service.RunDaily(ctx))
}

func (s *Scheduler) runWeekly(ctx context.Context) {
	log.Info("Scheduler: weekly reminder started")
	logOutcome("weekly", s.service.RunWeekly(ctx))
}

func (s *Scheduler) checkHealth(ctx context.Context) {
	if err := s.service.CheckHealth(ctx); err != nil {
		log.Errorf("Scheduler: health check failed: %v", err)
		return
	}
	log.Debug("Scheduler: health check passed")
}

func logOutcome(job string, outcome reminder.Outcome) {
	if outcome.Failed() {
		log.Errorf("Scheduler: %s reminder finished with %s: %s", job, outcome.Status, outcome.Message())
		return
	}
	log.Infof("Scheduler: %s reminder finished with %s", job, outcome.Status)
}

func withTimeout(run func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		run(ctx)
	}
}

// cronLogger routes cron's own logging through logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
