package sync

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// FileAttributes contains the metadata used to decide whether a replica file
// is out of date without reading its contents.
type FileAttributes struct {
	Size    int64
	ModTime time.Time
}

// Equal returns whether the two files have the same size and modification
// time. Times are compared in UTC.
func (f FileAttributes) Equal(other FileAttributes) bool {
	return f.Size == other.Size && f.ModTime.UTC().Equal(other.ModTime.UTC())
}

// TreeSnapshot is the result of scanning a directory tree. Paths are relative
// to Root, use forward slashes, and are sorted case-insensitively.
// Snapshots are never modified after they're created.
type TreeSnapshot struct {
	root    string
	folders []string
	files   []string
	skipped []string

	folderSet map[string]struct{}
	attrs     map[string]FileAttributes

	// Lowercased paths mapped to the paths in the tree.
	foldedFolders map[string]string
	foldedFiles   map[string]string
}

// NewTreeSnapshot creates a snapshot of a tree rooted at `root` containing
// the given folders and files.
func NewTreeSnapshot(root string, folders []string, files map[string]FileAttributes) TreeSnapshot {
	snapshot := TreeSnapshot{
		root:      root,
		folders:   sortedFold(folders),
		folderSet:     map[string]struct{}{},
		attrs:         map[string]FileAttributes{},
		foldedFolders: map[string]string{},
		foldedFiles:   map[string]string{},
	}
	for _, folder := range snapshot.folders {
		snapshot.folderSet[folder] = struct{}{}
		if _, ok := snapshot.foldedFolders[strings.ToLower(folder)]; !ok {
			snapshot.foldedFolders[strings.ToLower(folder)] = folder
		}
	}

	var filePaths []string
	for path, attrs := range files {
		filePaths = append(filePaths, path)
		snapshot.attrs[path] = attrs
	}
	snapshot.files = sortedFold(filePaths)
	for _, file := range snapshot.files {
		if _, ok := snapshot.foldedFiles[strings.ToLower(file)]; !ok {
			snapshot.foldedFiles[strings.ToLower(file)] = file
		}
	}
	return snapshot
}

// Root returns the path the snapshot was taken of.
func (s TreeSnapshot) Root() string {
	return s.root
}

// Folders returns the relative paths of all folders in the tree.
func (s TreeSnapshot) Folders() []string {
	return append([]string{}, s.folders...)
}

// Files returns the relative paths of all files in the tree.
func (s TreeSnapshot) Files() []string {
	return append([]string{}, s.files...)
}

// Skipped returns the relative paths of entries that were neither regular
// files nor folders, such as symlinks.
func (s TreeSnapshot) Skipped() []string {
	return append([]string{}, s.skipped...)
}

// HasFolder returns whether the tree contains a folder at `relPath`.
func (s TreeSnapshot) HasFolder(relPath string) bool {
	_, ok := s.folderSet[relPath]
	return ok
}

// HasFile returns whether the tree contains a file at `relPath`.
func (s TreeSnapshot) HasFile(relPath string) bool {
	_, ok := s.attrs[relPath]
	return ok
}

// FileEqualFold returns the file in the tree whose path equals `relPath`
// when case is ignored.
func (s TreeSnapshot) FileEqualFold(relPath string) (string, bool) {
	match, ok := s.foldedFiles[strings.ToLower(relPath)]
	return match, ok
}

// FolderEqualFold returns the folder in the tree whose path equals `relPath`
// when case is ignored.
func (s TreeSnapshot) FolderEqualFold(relPath string) (string, bool) {
	match, ok := s.foldedFolders[strings.ToLower(relPath)]
	return match, ok
}

// Attributes returns the metadata captured for the file at `relPath`.
func (s TreeSnapshot) Attributes(relPath string) (FileAttributes, bool) {
	attrs, ok := s.attrs[relPath]
	return attrs, ok
}

// Scan walks every folder and file under `root`, however deep. Entries matched
// by `excluder` are left out, along with everything beneath excluded folders.
// The walk fails if any part of the tree can't be read, since a partial
// snapshot would make the replica look like it has stale entries.
func Scan(fs afero.Fs, root string, excluder *Excluder) (TreeSnapshot, error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return TreeSnapshot{}, errors.IOError{Op: "scan", Path: root, Err: errors.FileNotFound{Path: root}}
		}
		return TreeSnapshot{}, errors.IOError{Op: "scan", Path: root, Err: err}
	}
	if !fi.IsDir() {
		return TreeSnapshot{}, errors.IOError{Op: "scan", Path: root, Err: errors.New("not a directory")}
	}

	// The walk lstats its root. The trailing separator makes a symlinked root
	// resolve to the folder it points to, like the Stat above.
	walkRoot := root
	if !strings.HasSuffix(walkRoot, string(filepath.Separator)) {
		walkRoot += string(filepath.Separator)
	}

	var folders, skipped []string
	files := map[string]FileAttributes{}
	err = afero.Walk(fs, walkRoot, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.IOError{Op: "walk", Path: path, Err: err}
		}

		if path == walkRoot {
			if !fi.IsDir() {
				return errors.IOError{Op: "walk", Path: root, Err: errors.New("not a directory")}
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		if strings.HasPrefix(relPath, "..") {
			return errors.New("%q is not inside %q", path, root)
		}
		relPath = filepath.ToSlash(relPath)

		if excluder.Excludes(relPath, fi.IsDir()) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case fi.IsDir():
			folders = append(folders, relPath)
		case fi.Mode().IsRegular():
			files[relPath] = FileAttributes{
				Size:    fi.Size(),
				ModTime: fi.ModTime().UTC(),
			}
		default:
			skipped = append(skipped, relPath)
		}
		return nil
	})
	if err != nil {
		return TreeSnapshot{}, err
	}

	snapshot := NewTreeSnapshot(root, folders, files)
	sort.Strings(skipped)
	snapshot.skipped = skipped
	return snapshot, nil
}
