package cmd

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/daemon"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/fswatch"
	"github.com/sidkik/foldersync/pkg/logsink"
	"github.com/sidkik/foldersync/pkg/sync"
)

func runSync(ctx context.Context, console io.Writer, opts config.Options, once bool) error {
	sink, err := logsink.New(afero.NewOsFs(), opts.LogFile, console)
	if err != nil {
		return errors.WithContext(err, "open log")
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.WithError(err).Warn("Failed to close log file")
		}
	}()
	if verbose() {
		sink.SetLevel(log.DebugLevel)
	}

	sink.WithFields(log.Fields{
		"source":   opts.Source,
		"replica":  opts.Replica,
		"interval": opts.Period(),
		"log":      opts.LogFile,
	}).Info("Starting foldersync")

	engine, err := sync.New(sync.Options{
		Source:  opts.Source,
		Replica: opts.Replica,
		Exclude: opts.Exclude,
		Workers: opts.Workers,
		Log:     sink,
	})
	if err != nil {
		sink.WithError(err).Error("Failed to initialize folders")
		return err
	}

	lock, err := daemon.Lock(engine.Replica())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			sink.WithError(err).Warn("Failed to release lock")
		}
	}()

	var trigger <-chan struct{}
	if opts.Watch && !once {
		watcher, err := fswatch.Watch(engine.Source(), sync.NewExcluder(opts.Exclude), sink)
		if err != nil {
			sink.WithError(err).Warn("Failed to watch the source folder. " +
				"Changes will only be picked up on the scheduled passes.")
		} else {
			defer watcher.Close()
			trigger = watcher.Updates()
		}
	}

	d := daemon.New(engine, daemon.Options{
		Interval: opts.Period(),
		Trigger:  trigger,
		Log:      sink,
	})
	if once {
		if !d.RunOnce(ctx) {
			return errors.NewFriendlyError("The sync pass didn't complete "+
				"cleanly. See %q for details.", opts.LogFile)
		}
		return nil
	}
	return d.Run(ctx)
}
