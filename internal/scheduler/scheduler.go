package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/service"
)

// Scheduler runs the daily expiry sweep on a cron cadence. A failed run
// is logged and retried on the next scheduled invocation, never inline.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New wires the sweeper to the given cron spec (standard 5-field form).
func New(sweeper *service.Sweeper, spec string, log *logrus.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if _, err := sweeper.RunDailySweep(ctx, today); err != nil {
			log.Errorf("Scheduled expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep cron spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("Starting expiry sweep scheduler")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Expiry sweep scheduler stopped")
}
