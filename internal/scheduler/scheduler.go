// Package scheduler runs the periodic maintenance jobs: key health checks, conversation
// pruning and the pool reset.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nutribot/internal/cache"
	"nutribot/internal/chatbot"
	"nutribot/internal/config"
	"nutribot/internal/credential"
	"nutribot/internal/ratelimit"

	"github.com/robfig/cron/v3"
)

// Disabled turns a job off when used as its schedule.
const Disabled = "off"

// healthCheckTimeout bounds one round of key probes.
const healthCheckTimeout = 2 * time.Minute

// Jobs are the components the scheduled jobs act on. Nil fields skip the matching work.
type Jobs struct {
	Pool    *credential.Pool
	Prober  credential.Prober
	Memory  *chatbot.Memory
	Cache   *cache.MemoryStore
	Limiter *ratelimit.MemoryLimiter
}

type Scheduler struct {
	cfg    config.SchedulerConfig
	jobs   Jobs
	c      *cron.Cron
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduler(cfg config.SchedulerConfig, jobs Jobs, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		jobs:   jobs,
		c:      cron.New(),
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
	}
}

// Start registers the configured jobs and starts the cron runner. An invalid schedule is
// returned as an error and nothing is started.
func (s *Scheduler) Start() error {
	entries := []struct {
		name string
		spec string
		run  func()
	}{
		{"key health check", s.cfg.KeyHealthCheck, s.CheckKeys},
		{"memory prune", s.cfg.MemoryPrune, s.Prune},
		{"pool reset", s.cfg.PoolReset, s.ResetPool},
	}
	for _, e := range entries {
		if e.spec == "" || e.spec == Disabled {
			s.logger.Info("Job disabled", "job", e.name)
			continue
		}
		if _, err := s.c.AddFunc(e.spec, e.run); err != nil {
			return fmt.Errorf("error scheduling %s job: %w", e.name, err)
		}
		s.logger.Info("Job scheduled", "job", e.name, "spec", e.spec)
	}
	s.c.Start()
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// CheckKeys probes every API key and disables the ones the provider rejects.
func (s *Scheduler) CheckKeys() {
	if s.jobs.Pool == nil || s.jobs.Prober == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	s.jobs.Pool.CheckHealth(ctx, s.jobs.Prober)
}

// Prune drops idle conversations and expired cache and rate limiter entries.
func (s *Scheduler) Prune() {
	if s.jobs.Memory != nil {
		idle := time.Duration(s.cfg.MemoryIdleMinutes) * time.Minute
		if removed := s.jobs.Memory.Prune(idle); removed > 0 {
			s.logger.Info("Pruned idle conversations", "removed", removed, "remaining", s.jobs.Memory.Len())
		}
	}
	if s.jobs.Cache != nil {
		if removed := s.jobs.Cache.Sweep(); removed > 0 {
			s.logger.Info("Swept expired cache entries", "removed", removed)
		}
	}
	if s.jobs.Limiter != nil {
		s.jobs.Limiter.Sweep(s.now())
	}
}

// ResetPool re-enables every API key.
func (s *Scheduler) ResetPool() {
	if s.jobs.Pool == nil {
		return
	}
	s.logger.Info("Running scheduled API key reset")
	s.jobs.Pool.Reset()
}
