package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper is anything that can drop sessions idle for longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// Reaper periodically unmounts view sessions that never got a live connection.
type Reaper struct {
	sweeper Sweeper
	ttl     time.Duration
	cron    *cron.Cron
}

// NewReaper schedules sweeps on the standard cron spec (descriptors such as
// "@every 1m" are accepted).
func NewReaper(sweeper Sweeper, ttl time.Duration, spec string) (*Reaper, error) {
	r := &Reaper{
		sweeper: sweeper,
		ttl:     ttl,
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		return nil, fmt.Errorf("invalid reaper schedule %q: %w", spec, err)
	}
	return r, nil
}

// Run starts the reaper in the background.
func (r *Reaper) Run() {
	log.Info().Dur("idle_ttl", r.ttl).Msg("Starting idle view reaper...")
	r.cron.Start()
}

// Stop halts the reaper and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("Stopped idle view reaper.")
}

func (r *Reaper) sweep() {
	if n := r.sweeper.Sweep(r.ttl); n > 0 {
		log.Info().Int("reaped", n).Msg("Reaped idle view sessions")
	}
}
