package cron

import (
	"context"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Default maintenance schedule: nightly at 03:00.
const defaultSpec = "0 0 3 * * *"

// Pruner is the archive surface maintenance needs.
type Pruner interface {
	Prune(retentionDays int) (int64, error)
}

// Service runs the periodic archive maintenance for serve mode.
type Service struct {
	store         Pruner
	retentionDays int
	spec          string
	cron          *rcron.Cron
}

func NewService(store Pruner, retentionDays int) *Service {
	return &Service{
		store:         store,
		retentionDays: retentionDays,
		spec:          defaultSpec,
	}
}

// SetSpec overrides the schedule (for testing).
func (s *Service) SetSpec(spec string) {
	s.spec = spec
}

func (s *Service) Start(ctx context.Context) error {
	s.cron = rcron.New(rcron.WithSeconds())
	if _, err := s.cron.AddFunc(s.spec, s.runMaintenance); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[cron] maintenance scheduled (%s, retention %dd)", s.spec, s.retentionDays)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Service) runMaintenance() {
	pruned, err := s.store.Prune(s.retentionDays)
	if err != nil {
		log.Printf("[cron] archive prune error: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[cron] pruned %d archived records", pruned)
	}
}

func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[cron] stop timeout waiting for running jobs")
	}
	log.Printf("[cron] stopped")
}
