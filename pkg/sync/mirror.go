package sync

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	goSync "sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/foldersync/pkg/errors"
)

// DefaultWorkers is the number of files copied or deleted at once.
const DefaultWorkers = 8

// Operations recorded in a Failure.
const (
	OpCreateFolder = "create folder"
	OpCompare      = "compare"
	OpCopy         = "copy"
	OpDeleteFile   = "delete file"
	OpDeleteFolder = "delete folder"
	OpRename       = "rename"
)

// Failure describes an entry that couldn't be reconciled. Failures don't stop
// the pass; the entry is retried on the next one.
type Failure struct {
	Op   string
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %s", f.Op, f.Path, f.Err)
}

// Stats summarizes the work done by a pass.
type Stats struct {
	FoldersCreated int
	FilesCopied    int
	BytesCopied    int64
	FilesDeleted   int
	FoldersDeleted int

	// FastPath is true if the trees matched and nothing had to be done.
	FastPath bool
	Elapsed  time.Duration
	Failures []Failure
}

// tally accumulates Stats from concurrent workers.
type tally struct {
	lock  goSync.Mutex
	stats Stats
}

func (t *tally) update(fn func(*Stats)) {
	t.lock.Lock()
	defer t.lock.Unlock()
	fn(&t.stats)
}

// Reconciler makes the replica tree match the source tree. It only ever
// writes beneath the replica root.
type Reconciler struct {
	fs          afero.Fs
	sourceRoot  string
	replicaRoot string
	workers     int
	log         log.FieldLogger
}

// NewReconciler creates a Reconciler for the given roots.
func NewReconciler(fs afero.Fs, sourceRoot, replicaRoot string, workers int,
	logger log.FieldLogger) Reconciler {

	if workers <= 0 {
		workers = DefaultWorkers
	}
	return Reconciler{
		fs:          fs,
		sourceRoot:  sourceRoot,
		replicaRoot: replicaRoot,
		workers:     workers,
		log:         logger,
	}
}

// Reconcile runs the three reconciliation phases in order. Folders have to
// exist before files can be copied into them, and deletions run last so that
// a folder isn't removed right before it receives a new file.
func (r Reconciler) Reconcile(source, replica TreeSnapshot) Stats {
	var t tally
	r.mirrorFolders(source, &t)
	r.copyOrUpdateFiles(source, &t)
	r.deleteStale(source, replica, &t)
	return t.stats
}

// mirrorFolders creates every source folder in the replica. It never removes
// folders.
func (r Reconciler) mirrorFolders(source TreeSnapshot, t *tally) {
	r.log.Info("Mirroring folders.")

	// Create parents before children so that each created folder is counted
	// exactly once.
	folders := source.Folders()
	sort.SliceStable(folders, func(i, j int) bool {
		return depth(folders[i]) < depth(folders[j])
	})

	for _, relPath := range folders {
		dst := r.replicaPath(relPath)
		fi, err := r.fs.Stat(dst)
		switch {
		case err == nil && fi.IsDir():
			continue
		case err == nil:
			// A file is in the way of the folder. The file is stale since the
			// source has a folder at this path.
			if err := r.fs.Remove(dst); err != nil {
				r.fail(t, OpDeleteFile, relPath, err)
				continue
			}
			r.log.WithField("path", relPath).Info("Deleted file replaced by a folder")
			t.update(func(s *Stats) { s.FilesDeleted++ })
		case !os.IsNotExist(err):
			r.fail(t, OpCreateFolder, relPath, err)
			continue
		}

		if err := r.fs.MkdirAll(dst, 0755); err != nil {
			r.fail(t, OpCreateFolder, relPath, err)
			continue
		}
		r.log.WithField("path", relPath).Info("Created folder")
		t.update(func(s *Stats) { s.FoldersCreated++ })
	}
	r.log.Info("Mirroring folders DONE.")
}

// copyOrUpdateFiles copies every source file whose replica copy is missing or
// out of date.
func (r Reconciler) copyOrUpdateFiles(source TreeSnapshot, t *tally) {
	r.log.Info("Copying or updating files.")

	var group errgroup.Group
	group.SetLimit(r.workers)
	for _, relPath := range source.Files() {
		relPath := relPath
		group.Go(func() error {
			r.copyOrUpdate(relPath, t)
			return nil
		})
	}
	group.Wait()

	r.log.Info("Copying and updating DONE.")
}

func (r Reconciler) copyOrUpdate(relPath string, t *tally) {
	src, dst := r.sourcePath(relPath), r.replicaPath(relPath)

	outcome, err := CompareFile(r.fs, src, dst)
	if err != nil {
		r.fail(t, OpCompare, relPath, err)
		return
	}
	if !outcome.NeedsCopy() {
		return
	}

	// A folder is in the way of the file. It's stale since the source has a
	// file at this path.
	if fi, err := r.fs.Stat(dst); err == nil && fi.IsDir() {
		if err := r.fs.RemoveAll(dst); err != nil {
			r.fail(t, OpDeleteFolder, relPath, err)
			return
		}
		r.log.WithField("path", relPath).Info("Deleted folder replaced by a file")
		t.update(func(s *Stats) { s.FoldersDeleted++ })
	}

	n, err := r.copyFile(src, dst)
	if err != nil {
		r.fail(t, OpCopy, relPath, err)
		return
	}

	r.log.WithFields(log.Fields{
		"path":   relPath,
		"reason": outcome.String(),
	}).Info("Copied file")
	t.update(func(s *Stats) {
		s.FilesCopied++
		s.BytesCopied += n
	})
}

// copyFile overwrites `dst` with the contents of `src`, and then gives it the
// same modification time as `src` so that later metadata comparisons match.
func (r Reconciler) copyFile(src, dst string) (int64, error) {
	fi, err := r.fs.Stat(src)
	if err != nil {
		return 0, errors.WithContext(err, "stat source")
	}
	// Copied out, since some filesystems return a FileInfo that tracks later
	// writes.
	before := FileAttributes{Size: fi.Size(), ModTime: fi.ModTime()}

	in, err := r.fs.Open(src)
	if err != nil {
		return 0, errors.WithContext(err, "open source")
	}
	defer in.Close()

	out, err := r.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, errors.WithContext(err, "open replica")
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, errors.WithContext(err, "write")
	}
	if err := out.Close(); err != nil {
		return n, errors.WithContext(err, "close replica")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := r.fs.Chtimes(dst, time.Now(), before.ModTime); err != nil {
		return n, errors.WithContext(err, "set modtime")
	}

	fi, err = r.fs.Stat(src)
	if err != nil {
		return n, errors.WithContext(err, "stat source")
	}
	if !before.Equal(FileAttributes{Size: fi.Size(), ModTime: fi.ModTime()}) {
		return n, errors.ErrFileChanged
	}
	return n, nil
}

// deleteStale removes replica files and folders that have no counterpart in
// the source. Files go first. Folders are then removed deepest first, so a
// stale child is gone before its stale parent is considered.
func (r Reconciler) deleteStale(source, replica TreeSnapshot, t *tally) {
	r.log.Info("Deleting files and folders.")

	var group errgroup.Group
	group.SetLimit(r.workers)
	for _, relPath := range staleFiles(source, replica) {
		relPath := relPath
		group.Go(func() error {
			dst := r.replicaPath(relPath)

			// The file may already be gone, or replaced by a folder that was
			// mirrored from the source earlier in this pass.
			if fi, err := r.fs.Stat(dst); err == nil && fi.IsDir() {
				return nil
			}

			if match, ok := source.FileEqualFold(relPath); ok && r.sameEntry(relPath, match) {
				r.fixCase(relPath, match, t)
				return nil
			}

			err := r.fs.Remove(dst)
			switch {
			case os.IsNotExist(err):
			case err != nil:
				r.fail(t, OpDeleteFile, relPath, err)
			default:
				r.log.WithField("path", relPath).Info("Deleted file")
				t.update(func(s *Stats) { s.FilesDeleted++ })
			}
			return nil
		})
	}
	group.Wait()
	r.log.Info("Deleting files DONE.")

	for _, relPath := range staleFolders(source, replica) {
		dst := r.replicaPath(relPath)
		fi, err := r.fs.Stat(dst)
		if os.IsNotExist(err) || (err == nil && !fi.IsDir()) {
			// Removed along with a stale parent, or replaced by a file copied
			// from the source earlier in this pass.
			continue
		}

		if match, ok := source.FolderEqualFold(relPath); ok && r.sameEntry(relPath, match) {
			r.fixCase(relPath, match, t)
			continue
		}

		if err := r.fs.RemoveAll(dst); err != nil {
			r.fail(t, OpDeleteFolder, relPath, err)
			continue
		}
		r.log.WithField("path", relPath).Info("Deleted folder")
		t.update(func(s *Stats) { s.FoldersDeleted++ })
	}
	r.log.Info("Deleting folders DONE.")
}

// sameEntry returns whether the stale replica path `relPath` and the source
// path `match`, which differ only in case, name the same replica entry. That's
// the case on case-insensitive filesystems, where deleting `relPath` would
// delete the copy of `match`.
func (r Reconciler) sameEntry(relPath, match string) bool {
	if relPath == match {
		return false
	}
	if _, err := r.fs.Stat(r.replicaPath(match)); err != nil {
		return false
	}
	return !r.existsWithCase(match)
}

// existsWithCase returns whether every element of `relPath` is listed in its
// replica folder with exactly the same case.
func (r Reconciler) existsWithCase(relPath string) bool {
	dir := r.replicaRoot
	for _, name := range strings.Split(relPath, "/") {
		f, err := r.fs.Open(dir)
		if err != nil {
			return false
		}
		names, err := f.Readdirnames(-1)
		f.Close()
		if err != nil {
			return false
		}

		found := false
		for _, listed := range names {
			if listed == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		dir = filepath.Join(dir, name)
	}
	return true
}

// fixCase renames the last element of `relPath` to match the case used by
// the source.
func (r Reconciler) fixCase(relPath, match string, t *tally) {
	if path.Base(relPath) == path.Base(match) {
		return
	}

	src := r.replicaPath(relPath)
	dst := filepath.Join(filepath.Dir(src), path.Base(match))
	if err := r.fs.Rename(src, dst); err != nil {
		r.fail(t, OpRename, relPath, err)
		return
	}
	r.log.WithFields(log.Fields{
		"path": relPath,
		"name": path.Base(match),
	}).Info("Renamed entry to match the source's case")
}

func (r Reconciler) fail(t *tally, op, relPath string, err error) {
	r.log.WithError(err).WithFields(log.Fields{
		"op":   op,
		"path": relPath,
	}).Warn("Failed to reconcile entry. It will be retried on the next pass.")
	t.update(func(s *Stats) {
		s.Failures = append(s.Failures, Failure{Op: op, Path: relPath, Err: err})
	})
}

func (r Reconciler) sourcePath(relPath string) string {
	return filepath.Join(r.sourceRoot, filepath.FromSlash(relPath))
}

func (r Reconciler) replicaPath(relPath string) string {
	return filepath.Join(r.replicaRoot, filepath.FromSlash(relPath))
}

// staleFiles returns the replica files that aren't files in the source.
func staleFiles(source, replica TreeSnapshot) (stale []string) {
	for _, relPath := range replica.files {
		if !source.HasFile(relPath) {
			stale = append(stale, relPath)
		}
	}
	return stale
}

// staleFolders returns the replica folders that aren't folders in the source,
// longest path first.
func staleFolders(source, replica TreeSnapshot) (stale []string) {
	for _, relPath := range replica.folders {
		if !source.HasFolder(relPath) {
			stale = append(stale, relPath)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		if len(stale[i]) != len(stale[j]) {
			return len(stale[i]) > len(stale[j])
		}
		return stale[i] > stale[j]
	})
	return stale
}

func depth(relPath string) int {
	n := 0
	for dir := relPath; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		n++
	}
	return n
}
