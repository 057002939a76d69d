package util

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// defaultOptionsPath is overridden in the tests.
var defaultOptionsPath = config.DefaultOptionsPath

// Flags holds the sync options that can be set on the command line.
type Flags struct {
	Source     string
	Replica    string
	Interval   string
	LogFile    string
	ConfigPath string
	Exclude    []string
	Workers    int
	Watch      bool
}

// Register adds the flags to `cmd`.
func (f *Flags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&f.Source, "source", "s", "", "Folder to mirror from")
	flags.StringVarP(&f.Replica, "replica", "r", "", "Folder to mirror into")
	flags.StringVarP(&f.Interval, "interval", "i", "",
		fmt.Sprintf("Seconds between passes (default %d)", config.DefaultInterval))
	flags.StringVarP(&f.LogFile, "log", "l", "", "File to append logs to")
	flags.StringVarP(&f.ConfigPath, "config", "c", "",
		fmt.Sprintf("Options file (default %s)", config.DefaultOptionsPath))
	flags.StringArrayVarP(&f.Exclude, "exclude", "e", nil,
		"Gitignore-style pattern for paths that aren't synced. Can be repeated")
	flags.BoolVarP(&f.Watch, "watch", "w", false,
		"Also start a pass whenever the source changes")
	flags.IntVar(&f.Workers, "workers", 0, "Files copied or deleted at once (default 8)")
}

// Resolve combines the defaults, the options file, the positional arguments
// `[source [replica [interval [logfile]]]]` and the flags, in increasing
// order of precedence. Interval problems aren't fatal: they're reported on
// the command's error output, and the default interval is used.
func (f *Flags) Resolve(cmd *cobra.Command, args []string) (config.Options, error) {
	opts := config.Default()

	fileOpts, err := f.parseOptionsFile()
	if err != nil {
		return config.Options{}, err
	}
	opts = opts.Merge(fileOpts)

	var positional config.Options
	for i, arg := range args {
		switch i {
		case 0:
			positional.Source = arg
		case 1:
			positional.Replica = arg
		case 2:
			positional.Interval = f.parseInterval(cmd, arg)
		case 3:
			positional.LogFile = arg
		}
	}
	opts = opts.Merge(positional)

	changed := cmd.Flags().Changed
	var flagOpts config.Options
	if changed("source") {
		flagOpts.Source = f.Source
	}
	if changed("replica") {
		flagOpts.Replica = f.Replica
	}
	if changed("interval") {
		flagOpts.Interval = f.parseInterval(cmd, f.Interval)
	}
	if changed("log") {
		flagOpts.LogFile = f.LogFile
	}
	if changed("workers") {
		flagOpts.Workers = f.Workers
	}
	flagOpts.Exclude = f.Exclude
	flagOpts.Watch = f.Watch
	opts = opts.Merge(flagOpts)

	return opts.Normalize()
}

func (f *Flags) parseOptionsFile() (config.Options, error) {
	if f.ConfigPath != "" {
		return config.ParseFile(f.ConfigPath)
	}

	opts, err := config.ParseFile(defaultOptionsPath)
	if err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return config.Options{}, nil
		}
		return config.Options{}, err
	}
	return opts, nil
}

// parseInterval returns the interval in `raw`, or the default interval if
// it's invalid.
func (f *Flags) parseInterval(cmd *cobra.Command, raw string) int {
	interval, err := config.ParseInterval(raw)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Invalid interval %q, using the default "+
			"of %d seconds: %s\n", raw, config.DefaultInterval, err)
		return config.DefaultInterval
	}
	return interval
}
