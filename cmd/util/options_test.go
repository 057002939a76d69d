package util

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	defaultOptionsPath = filepath.Join(dir, "missing.yaml")

	optionsPath := filepath.Join(dir, "options.yaml")
	require.NoError(t, os.WriteFile(optionsPath, []byte(`
version: v1alpha1
source: src
replica: /file/replica
interval: 30
exclude: ["*.tmp"]
workers: 2
`), 0644))

	tests := []struct {
		name        string
		flags       []string
		args        []string
		expSource   string
		expReplica  string
		expInterval int
		expLogFile  string
		expExclude  []string
		expWorkers  int
		expWatch    bool
		expWarning  bool
	}{
		{
			name:        "Options file",
			flags:       []string{"-c", optionsPath},
			expSource:   filepath.Join(dir, "src"),
			expReplica:  "/file/replica",
			expInterval: 30,
			expExclude:  []string{"*.tmp"},
			expWorkers:  2,
		},
		{
			name:        "Positional arguments override the options file",
			flags:       []string{"-c", optionsPath},
			args:        []string{"/pos/source", "/pos/replica", "5", "/pos/sync.log"},
			expSource:   "/pos/source",
			expReplica:  "/pos/replica",
			expInterval: 5,
			expLogFile:  "/pos/sync.log",
			expExclude:  []string{"*.tmp"},
			expWorkers:  2,
		},
		{
			name: "Flags override positional arguments",
			flags: []string{"-c", optionsPath, "--replica", "/flag/replica",
				"-i", "60", "-e", "*.log", "-w", "--workers", "4"},
			args:        []string{"/pos/source", "/pos/replica"},
			expSource:   "/pos/source",
			expReplica:  "/flag/replica",
			expInterval: 60,
			expExclude:  []string{"*.tmp", "*.log"},
			expWorkers:  4,
			expWatch:    true,
		},
		{
			name:        "Malformed interval",
			args:        []string{"/pos/source", "/pos/replica", "ten"},
			expSource:   "/pos/source",
			expReplica:  "/pos/replica",
			expInterval: config.DefaultInterval,
			expWarning:  true,
		},
		{
			name:        "Non-positive interval flag",
			flags:       []string{"-s", "/flag/source", "-r", "/flag/replica", "-i", "-3"},
			expSource:   "/flag/source",
			expReplica:  "/flag/replica",
			expInterval: config.DefaultInterval,
			expWarning:  true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var flags Flags
			cmd := &cobra.Command{Use: "test"}
			flags.Register(cmd)

			var stderr bytes.Buffer
			cmd.SetErr(&stderr)
			require.NoError(t, cmd.ParseFlags(test.flags))

			opts, err := flags.Resolve(cmd, test.args)
			require.NoError(t, err)
			assert.Equal(t, test.expSource, opts.Source)
			assert.Equal(t, test.expReplica, opts.Replica)
			assert.Equal(t, test.expInterval, opts.Interval)
			assert.Equal(t, test.expExclude, opts.Exclude)
			assert.Equal(t, test.expWorkers, opts.Workers)
			assert.Equal(t, test.expWatch, opts.Watch)
			if test.expLogFile != "" {
				assert.Equal(t, test.expLogFile, opts.LogFile)
			}
			assert.True(t, filepath.IsAbs(opts.LogFile))

			if test.expWarning {
				assert.Contains(t, stderr.String(), "Invalid interval")
			} else {
				assert.Empty(t, stderr.String())
			}
		})
	}
}

func TestResolveMissingOptionsFile(t *testing.T) {
	var flags Flags
	cmd := &cobra.Command{Use: "test"}
	flags.Register(cmd)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	require.NoError(t, cmd.ParseFlags([]string{"--config", missing}))

	_, err := flags.Resolve(cmd, nil)
	_, ok := errors.RootCause(err).(errors.FileNotFound)
	assert.True(t, ok, "%v", err)
}
