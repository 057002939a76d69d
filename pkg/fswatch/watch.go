package fswatch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

var fs = afero.NewOsFs()

// Watcher notifies when anything under a root folder changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	excluder *sync.Excluder
	updates  chan struct{}
	log      log.FieldLogger
}

// Watch watches every folder under `root`, except those matched by
// `excluder`. Folders created after the watch starts are watched as well.
func Watch(root string, excluder *sync.Excluder, logger log.FieldLogger) (*Watcher, error) {
	pathsToWatch, err := getPathsToWatch(root, excluder)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	w := &Watcher{
		watcher:  watcher,
		root:     root,
		excluder: excluder,
		log:      logger,
	}
	relevant := make(chan fsnotify.Event, 64)
	go w.filterEvents(relevant)
	w.updates = combineUpdates(relevant)
	return w, nil
}

// Updates receives whenever something under the root changed since the last
// receive. Bursts of changes are combined into a single update.
func (w *Watcher) Updates() <-chan struct{} {
	return w.updates
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// filterEvents forwards the events that aren't excluded, and starts watching
// newly created folders.
func (w *Watcher) filterEvents(relevant chan<- fsnotify.Event) {
	defer close(relevant)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			relPath, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				w.log.WithError(err).WithField("path", event.Name).Debug(
					"Ignoring event outside of the watched folder")
				continue
			}
			relPath = filepath.ToSlash(relPath)

			isDir := false
			if event.Has(fsnotify.Create) {
				fi, err := fs.Stat(event.Name)
				isDir = err == nil && fi.IsDir()
			}
			if w.excluder.Excludes(relPath, isDir) {
				continue
			}

			if isDir {
				w.watchNewFolder(event.Name)
			}
			relevant <- event
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("File watcher error. " +
				"Changes will still be picked up on the next scheduled pass.")
		}
	}
}

func (w *Watcher) watchNewFolder(dir string) {
	paths, err := getChildren(w.root, dir, w.excluder)
	if err != nil {
		w.log.WithError(err).WithField("path", dir).Warn("Failed to list new folder")
	}

	for _, path := range append([]string{dir}, paths...) {
		if err := w.watcher.Add(path); err != nil {
			w.log.WithError(err).WithField("path", path).Warn("Failed to watch new folder")
		}
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

func getPathsToWatch(root string, excluder *sync.Excluder) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.NewFriendlyError("%q is not a folder", root)
	}

	// Because fsnotify doesn't watch directories recursively, we walk the
	// directory's contents and add all subdirectories. Files are covered by
	// the watch on their parent.
	children, err := getChildren(root, root, excluder)
	if err != nil {
		return nil, errors.WithContext(err, "get subdirs")
	}
	return append([]string{root}, children...), nil
}

// getChildren returns the folders beneath `dir` that aren't excluded.
// Exclusions are matched relative to `root`.
func getChildren(root, dir string, excluder *sync.Excluder) (paths []string, err error) {
	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if path == dir || !fi.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}

		if excluder.Excludes(filepath.ToSlash(relPath), true) {
			return filepath.SkipDir
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}
