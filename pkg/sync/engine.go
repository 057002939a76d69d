package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Options configures an Engine.
type Options struct {
	Source  string
	Replica string

	// Exclude contains gitignore-style patterns for paths that shouldn't be
	// synced.
	Exclude []string

	// Workers bounds how many files are copied or deleted at once. Defaults
	// to DefaultWorkers.
	Workers int

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Log defaults to the standard logrus logger.
	Log log.FieldLogger
}

// Engine mirrors a source tree onto a replica tree. The only state it keeps
// between passes is the pair of roots.
type Engine struct {
	fs       afero.Fs
	source   string
	replica  string
	excluder *Excluder
	workers  int
	log      log.FieldLogger
}

// New creates an Engine and ensures that both roots exist as directories.
// The returned error is a ConfigError if syncing can't proceed with the given
// roots.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		fs:       opts.Fs,
		excluder: NewExcluder(opts.Exclude),
		workers:  opts.Workers,
		log:      opts.Log,
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.log == nil {
		e.log = log.StandardLogger()
	}
	if e.workers <= 0 {
		e.workers = DefaultWorkers
	}

	if err := e.Initialize(opts.Source, opts.Replica); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize sets the roots, creating them if they don't exist.
func (e *Engine) Initialize(source, replica string) error {
	source, err := absRoot(source)
	if err != nil {
		return err
	}

	replica, err = absRoot(replica)
	if err != nil {
		return err
	}

	if nested(source, replica) || nested(replica, source) {
		return errors.ConfigError{
			Path:   replica,
			Reason: "the source and replica folders can't contain each other",
		}
	}

	for _, root := range []string{source, replica} {
		if err := e.ensureRoot(root); err != nil {
			return err
		}
	}

	e.source, e.replica = source, replica
	return nil
}

func absRoot(path string) (string, error) {
	if path == "" {
		return "", errors.ConfigError{Path: path, Reason: "path is required"}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.ConfigError{Path: path, Reason: "resolve absolute path", Err: err}
	}
	return abs, nil
}

// nested returns whether `child` is `parent` or is inside it.
func nested(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (e *Engine) ensureRoot(path string) error {
	logger := e.log.WithField("path", path)
	logger.Debug("Checking if folder exists")

	fi, err := e.fs.Stat(path)
	switch {
	case err == nil && fi.IsDir():
		return nil
	case err == nil:
		return errors.ConfigError{Path: path, Reason: "not a directory"}
	case !os.IsNotExist(err):
		return errors.ConfigError{Path: path, Reason: "stat", Err: err}
	}

	if err := e.fs.MkdirAll(path, 0755); err != nil {
		return errors.ConfigError{Path: path, Reason: "create directory", Err: err}
	}
	logger.Info("Folder created")
	return nil
}

// Source returns the absolute path of the source root.
func (e *Engine) Source() string {
	return e.source
}

// Replica returns the absolute path of the replica root.
func (e *Engine) Replica() string {
	return e.replica
}

// RunPass makes the replica match the source.
// The pass is aborted if either tree can't be scanned. Failures on individual
// entries don't abort the pass, and are returned in Stats.Failures instead.
func (e *Engine) RunPass(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	start := time.Now()
	e.log.Info("Start sync.")

	source, replica, err := e.scan()
	if err != nil {
		return Stats{}, err
	}

	treesEqual := TreesEqual(source, replica)
	if treesEqual && MetadataEqual(source, replica) {
		e.log.Info("Folders are identical. No sync needed.")
		return Stats{FastPath: true, Elapsed: time.Since(start)}, nil
	}

	if treesEqual {
		e.log.Info("Folder structures match, but some files changed.")
	} else {
		e.log.Info("Folder structures are different.")
	}

	reconciler := NewReconciler(e.fs, e.source, e.replica, e.workers, e.log)
	stats := reconciler.Reconcile(source, replica)
	stats.Elapsed = time.Since(start)

	logger := e.log.WithFields(log.Fields{
		"foldersCreated": stats.FoldersCreated,
		"filesCopied":    stats.FilesCopied,
		"bytesCopied":    humanize.Bytes(uint64(stats.BytesCopied)),
		"filesDeleted":   stats.FilesDeleted,
		"foldersDeleted": stats.FoldersDeleted,
	})
	if len(stats.Failures) != 0 {
		logger.WithField("failures", len(stats.Failures)).Warn(
			"Sync finished with errors.")
	} else {
		logger.Info("Sync finished.")
	}
	return stats, nil
}

func (e *Engine) scan() (source, replica TreeSnapshot, err error) {
	source, err = Scan(e.fs, e.source, e.excluder)
	if err != nil {
		return TreeSnapshot{}, TreeSnapshot{}, errors.WithContext(err, "scan source")
	}

	replica, err = Scan(e.fs, e.replica, e.excluder)
	if err != nil {
		return TreeSnapshot{}, TreeSnapshot{}, errors.WithContext(err, "scan replica")
	}

	for _, snapshot := range []TreeSnapshot{source, replica} {
		for _, relPath := range snapshot.Skipped() {
			e.log.WithFields(log.Fields{
				"root": snapshot.Root(),
				"path": relPath,
			}).Debug("Skipping entry that is neither a file nor a folder")
		}
	}
	return source, replica, nil
}

// PlannedCopy is a source file that the next pass would copy.
type PlannedCopy struct {
	Path    string
	Outcome FileComparisonOutcome
}

// Plan lists the changes the next pass would make, without making them.
type Plan struct {
	InSync          bool
	FoldersToCreate []string
	FilesToCopy     []PlannedCopy
	FilesToDelete   []string
	FoldersToDelete []string

	// Failures contains files that couldn't be compared.
	Failures []Failure
}

// Plan scans and compares the trees without modifying either of them.
func (e *Engine) Plan(ctx context.Context) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}

	source, replica, err := e.scan()
	if err != nil {
		return Plan{}, err
	}

	if TreesEqual(source, replica) && MetadataEqual(source, replica) {
		return Plan{InSync: true}, nil
	}

	var plan Plan
	for _, relPath := range source.folders {
		if !replica.HasFolder(relPath) {
			plan.FoldersToCreate = append(plan.FoldersToCreate, relPath)
		}
	}

	reconciler := NewReconciler(e.fs, e.source, e.replica, e.workers, e.log)
	for _, relPath := range source.files {
		outcome, err := CompareFile(e.fs, reconciler.sourcePath(relPath),
			reconciler.replicaPath(relPath))
		if err != nil {
			plan.Failures = append(plan.Failures, Failure{Op: OpCompare, Path: relPath, Err: err})
			continue
		}
		if outcome.NeedsCopy() {
			plan.FilesToCopy = append(plan.FilesToCopy, PlannedCopy{Path: relPath, Outcome: outcome})
		}
	}

	plan.FilesToDelete = staleFiles(source, replica)
	plan.FoldersToDelete = staleFolders(source, replica)
	return plan, nil
}
