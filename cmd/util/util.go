package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/errors"
)

// HandleFatalError prints `err` and exits. Friendly errors are printed
// as-is, since they're meant to be read by the user. Everything else is
// printed with its full context.
func HandleFatalError(err error) {
	var friendlyErr errors.Friendly
	if errors.As(err, &friendlyErr) {
		log.WithError(err).Debug("Fatal error")
		fmt.Fprintln(os.Stderr, friendlyErr.FriendlyMessage())
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// HandlePanic prints the panic value and stack trace before exiting. It must
// be deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "Unexpected panic: %v\n\n%s", r, debug.Stack())
		os.Exit(1)
	}
}
