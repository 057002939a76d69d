// Package daemon runs sync passes on a schedule until it's told to stop.
package daemon

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/sync"
)

// DefaultInterval is used if Options.Interval isn't positive.
const DefaultInterval = 10 * time.Second

// Passer runs a single sync pass.
type Passer interface {
	RunPass(ctx context.Context) (sync.Stats, error)
}

// Options configures a Daemon.
type Options struct {
	// Interval is the time between the start of scheduled passes.
	Interval time.Duration

	// Trigger starts a pass early whenever it receives. It may be nil.
	Trigger <-chan struct{}

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// Log defaults to the standard logrus logger.
	Log log.FieldLogger
}

// Daemon runs passes one at a time.
type Daemon struct {
	passer   Passer
	interval time.Duration
	trigger  <-chan struct{}
	clock    clockwork.Clock
	log      log.FieldLogger
}

// New creates a Daemon that runs passes with `passer`.
func New(passer Passer, opts Options) Daemon {
	d := Daemon{
		passer:   passer,
		interval: opts.Interval,
		trigger:  opts.Trigger,
		clock:    opts.Clock,
		log:      opts.Log,
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.log == nil {
		d.log = log.StandardLogger()
	}
	if d.interval <= 0 {
		d.interval = DefaultInterval
	}
	return d
}

// Run runs a pass immediately, and then once per interval and whenever the
// trigger fires, until `ctx` is cancelled. A running pass is never
// interrupted. Ticks that arrive while a pass is running are coalesced into
// a single following pass.
func (d Daemon) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.WithField("interval", d.interval).Info("Starting sync loop.")
	for ctx.Err() == nil {
		d.runPass(ctx)

		select {
		case <-ctx.Done():
		case <-ticker.Chan():
		case <-d.trigger:
			d.log.Debug("Source changed. Starting an early pass.")
		}
	}

	d.log.Info("Stopping sync loop.")
	return nil
}

// RunOnce runs a single pass, and returns whether it completed without any
// failures.
func (d Daemon) RunOnce(ctx context.Context) bool {
	return d.runPass(ctx)
}

func (d Daemon) runPass(ctx context.Context) bool {
	start := d.clock.Now()
	stats, err := d.passer.RunPass(ctx)
	duration := d.clock.Since(start)
	if err != nil {
		d.log.WithError(err).WithField("duration", duration).Error("Sync failed")
		return false
	}

	d.log.WithFields(log.Fields{
		"duration": duration,
		"fastPath": stats.FastPath,
	}).Info("Sync pass done.")
	return len(stats.Failures) == 0
}
