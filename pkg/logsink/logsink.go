// Package logsink builds the logger used by the sync daemon. Every line is
// echoed to the console and appended to a log file.
package logsink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// TimestampFormat is the format of the timestamp on every line.
const TimestampFormat = "02-01-2006 15:04:05"

// Sink is a logger whose output is also appended to a file. It's safe for
// concurrent use, and lines from concurrent writers are never interleaved.
type Sink struct {
	*logrus.Logger
	file afero.File
}

// New opens the log file at `path`, creating it and its parent folders if
// they don't exist, and returns a logger that writes to both the file and
// `console`.
func New(fs afero.Fs, path string, console io.Writer) (*Sink, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithContext(err, "create log folder")
	}

	file, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		// Show the full timestamp rather than the time elapsed since the
		// process started, so that lines from different runs can be told
		// apart in the file.
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,

		// Disable colors since we're logging to a file.
		DisableColors: true,
	})

	// The logger holds its mutex while writing, and the formatter emits each
	// entry as a single buffer, so each line reaches each writer in one
	// Write call.
	logger.SetOutput(io.MultiWriter(file, consoleWriter{console}))
	return &Sink{Logger: logger, file: file}, nil
}

// consoleWriter drops write errors, so that a closed console doesn't stop
// lines from reaching the log file.
type consoleWriter struct {
	io.Writer
}

func (w consoleWriter) Write(p []byte) (int, error) {
	w.Writer.Write(p)
	return len(p), nil
}

// Close flushes and closes the log file. The logger must not be used
// afterwards.
func (s *Sink) Close() error {
	if err := s.file.Sync(); err != nil {
		return errors.WithContext(err, "sync log file")
	}
	return s.file.Close()
}
