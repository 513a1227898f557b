package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Expirer drops stale remote-control requests and idle sessions.
type Expirer interface {
	Sweep() (requests, sessions int)
}

// Sweeper runs the remote-control expiry on a fixed schedule.
type Sweeper struct {
	cron    *cron.Cron
	target  Expirer
	log     *zerolog.Logger
	enabled bool
}

// NewSweeper schedules target.Sweep every interval. A non-positive interval disables it.
func NewSweeper(target Expirer, interval time.Duration, logger *zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		target: target,
		log:    logger,
	}
	if interval <= 0 {
		return s, nil
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.run); err != nil {
		return nil, fmt.Errorf("schedule sweeper: %w", err)
	}
	s.enabled = true
	return s, nil
}

func (s *Sweeper) run() {
	requests, sessions := s.target.Sweep()
	if requests > 0 || sessions > 0 {
		s.log.Info().Int("requests", requests).Int("sessions", sessions).Msg("expired remote control state")
	}
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	if s.enabled {
		s.cron.Start()
		s.log.Debug().Msg("remote control sweeper started")
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.enabled {
		<-s.cron.Stop().Done()
	}
}
