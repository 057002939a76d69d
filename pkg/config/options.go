package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	// DefaultOptionsPath is read when no options file is given on the
	// command line. It's fine for it not to exist.
	DefaultOptionsPath = "~/.foldersync.yaml"

	// DefaultInterval is the number of seconds between passes.
	DefaultInterval = 10

	// InitialOptionsVersion is the first version of the options file.
	// Options files that do not specify a version default to this version.
	InitialOptionsVersion = "v1alpha1"

	// SupportedOptionsVersion is the options file version understood by this
	// binary.
	SupportedOptionsVersion = "v1alpha1"
)

// Options configures the sync daemon.
type Options struct {
	Version string `json:"version,omitempty"`
	Source  string `json:"source,omitempty"`
	Replica string `json:"replica,omitempty"`

	// Interval is the number of seconds between passes.
	Interval int      `json:"interval,omitempty"`
	LogFile  string   `json:"log,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Workers  int      `json:"workers,omitempty"`
	Watch    bool     `json:"watch,omitempty"`
}

// Period returns the time between passes.
func (o Options) Period() time.Duration {
	return time.Duration(o.Interval) * time.Second
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// Default returns the options used when nothing else is configured.
func Default() Options {
	return Options{
		Version:  SupportedOptionsVersion,
		Source:   "~/foldersync/source",
		Replica:  "~/foldersync/replica",
		Interval: DefaultInterval,
		LogFile:  "~/foldersync/foldersync.log",
	}
}

// ParseFile parses the options file at `path`. Fields that aren't set in the
// file are left empty so that the result can be merged onto other options.
// Relative paths are evaluated relative to the options file.
func ParseFile(path string) (Options, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Options{}, errors.WithContext(err, "expand options path")
	}

	opts, err := readOptionsFile(path)
	if err != nil {
		return Options{}, errors.WithContext(err, "parse")
	}

	for _, field := range []*string{&opts.Source, &opts.Replica, &opts.LogFile} {
		if *field == "" {
			continue
		}

		expanded, err := homedirExpand(*field)
		if err != nil {
			return Options{}, errors.WithContext(err, "expand homedir")
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(filepath.Dir(path), expanded)
		}
		*field = expanded
	}
	return opts, nil
}

// WriteFile writes `opts` to the options file at `path`, creating its parent
// folder if needed.
func WriteFile(path string, opts Options) error {
	path, err := homedirExpand(path)
	if err != nil {
		return errors.WithContext(err, "expand options path")
	}

	opts.Version = SupportedOptionsVersion
	yamlBytes, err := yaml.Marshal(opts)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "create folder")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Merge returns `o` with every field that's set in `override` replaced.
func (o Options) Merge(override Options) Options {
	if override.Source != "" {
		o.Source = override.Source
	}
	if override.Replica != "" {
		o.Replica = override.Replica
	}
	if override.Interval != 0 {
		o.Interval = override.Interval
	}
	if override.LogFile != "" {
		o.LogFile = override.LogFile
	}
	if len(override.Exclude) != 0 {
		o.Exclude = append(append([]string{}, o.Exclude...), override.Exclude...)
	}
	if override.Workers != 0 {
		o.Workers = override.Workers
	}
	if override.Watch {
		o.Watch = true
	}
	return o
}

// Normalize expands `~` and makes the paths absolute. The returned error is a
// ConfigError if the options can't be used.
func (o Options) Normalize() (Options, error) {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"source", &o.Source},
		{"replica", &o.Replica},
		{"log", &o.LogFile},
	} {
		if strings.TrimSpace(*field.value) == "" {
			return Options{}, errors.ConfigError{Path: field.name, Reason: "path is required"}
		}

		expanded, err := homedirExpand(*field.value)
		if err != nil {
			return Options{}, errors.ConfigError{Path: *field.value, Reason: "expand homedir", Err: err}
		}

		abs, err := filepath.Abs(expanded)
		if err != nil {
			return Options{}, errors.ConfigError{Path: *field.value, Reason: "resolve absolute path", Err: err}
		}
		*field.value = abs
	}

	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Workers < 0 {
		return Options{}, errors.ConfigError{
			Path:   "workers",
			Reason: "must not be negative",
		}
	}
	return o, nil
}

// ParseInterval parses a number of seconds between passes. The returned
// error is a ConfigError if `raw` isn't a positive integer.
func ParseInterval(raw string) (int, error) {
	interval, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.ConfigError{Path: "interval", Reason: "not a number", Err: err}
	}
	if interval <= 0 {
		return 0, errors.ConfigError{Path: "interval", Reason: "must be positive"}
	}
	return interval, nil
}
