// Package expiry proactively transitions overdue entitlement instances to
// EXPIRED on a schedule, so redemption attempts are not the only place
// expiry is observed.
package expiry

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/entitlekit/lifecycle"
)

// Sweeper runs the bulk expiry transition on a cron schedule.
type Sweeper struct {
	svc  *lifecycle.Service
	log  logrus.FieldLogger
	cron *cron.Cron
	spec string
}

// New constructs a sweeper. spec is a cron expression; empty defaults to
// every ten minutes.
func New(svc *lifecycle.Service, log logrus.FieldLogger, spec string) *Sweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if spec == "" {
		spec = "*/10 * * * *"
	}
	return &Sweeper{svc: svc, log: log, cron: cron.New(), spec: spec}
}

// Start schedules the sweep and begins running it in the background.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.svc.ExpireOverdue(context.Background()); err != nil {
			s.log.WithError(err).Warn("expiry sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
