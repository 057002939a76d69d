package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

func TestRunSyncOnce(t *testing.T) {
	dir := t.TempDir()
	opts := config.Options{
		Source:   filepath.Join(dir, "source"),
		Replica:  filepath.Join(dir, "replica"),
		LogFile:  filepath.Join(dir, "logs", "foldersync.log"),
		Interval: config.DefaultInterval,
	}
	require.NoError(t, os.MkdirAll(filepath.Join(opts.Source, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.Source, "docs", "readme.txt"),
		[]byte("hello"), 0644))

	var console bytes.Buffer
	require.NoError(t, runSync(context.Background(), &console, opts, true))

	contents, err := os.ReadFile(filepath.Join(opts.Replica, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	logContents, err := os.ReadFile(opts.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logContents), `msg="Sync finished."`)
	assert.Equal(t, console.String(), string(logContents))

	// The lock is released once the run is over.
	require.NoError(t, runSync(context.Background(), &console, opts, true))
}

func TestRunSyncInvalidRoot(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(source, []byte("not a folder"), 0644))

	err := runSync(context.Background(), &bytes.Buffer{}, config.Options{
		Source:   source,
		Replica:  filepath.Join(dir, "replica"),
		LogFile:  filepath.Join(dir, "foldersync.log"),
		Interval: config.DefaultInterval,
	}, true)
	assert.True(t, errors.IsConfigError(err), "%v", err)
}
