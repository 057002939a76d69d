package sync

import (
	"os"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// FileComparisonOutcome is the result of comparing a source file with its
// counterpart in the replica.
type FileComparisonOutcome int

const (
	// Identical means the replica file is up to date.
	Identical FileComparisonOutcome = iota
	// ReplicaMissing means there's no file at the replica path.
	ReplicaMissing
	// MetadataDiffers means the size or modification time differ.
	MetadataDiffers
	// ContentDiffers means the metadata matches, but the contents don't.
	ContentDiffers
)

func (o FileComparisonOutcome) String() string {
	switch o {
	case Identical:
		return "identical"
	case ReplicaMissing:
		return "replica missing"
	case MetadataDiffers:
		return "metadata differs"
	case ContentDiffers:
		return "content differs"
	default:
		return "unknown"
	}
}

// NeedsCopy returns whether the source file should be copied over the replica.
func (o FileComparisonOutcome) NeedsCopy() bool {
	return o != Identical
}

// TreesEqual returns whether the two snapshots contain the same relative
// folder and file paths.
func TreesEqual(source, replica TreeSnapshot) bool {
	return HashTreeStructure(source) == HashTreeStructure(replica)
}

// MetadataEqual returns whether every source file has a replica file with the
// same size and modification time, according to the snapshots. It doesn't
// touch the filesystem.
func MetadataEqual(source, replica TreeSnapshot) bool {
	for path, srcAttrs := range source.attrs {
		replicaAttrs, ok := replica.attrs[path]
		if !ok || !srcAttrs.Equal(replicaAttrs) {
			return false
		}
	}
	return true
}

// CompareFile decides whether the file at `replicaPath` is an up to date copy
// of the file at `sourcePath`.
// The size and modification time are checked first, and the contents are only
// hashed when both match. As a result, a file that was rewritten with the same
// size and timestamp is only caught here if the pass wasn't short-circuited.
func CompareFile(fs afero.Fs, sourcePath, replicaPath string) (FileComparisonOutcome, error) {
	replicaInfo, err := fs.Stat(replicaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ReplicaMissing, nil
		}
		return Identical, errors.IOError{Op: "stat", Path: replicaPath, Err: err}
	}
	if !replicaInfo.Mode().IsRegular() {
		return ReplicaMissing, nil
	}

	sourceInfo, err := fs.Stat(sourcePath)
	if err != nil {
		return Identical, errors.IOError{Op: "stat", Path: sourcePath, Err: err}
	}

	srcAttrs := FileAttributes{Size: sourceInfo.Size(), ModTime: sourceInfo.ModTime()}
	replicaAttrs := FileAttributes{Size: replicaInfo.Size(), ModTime: replicaInfo.ModTime()}
	if !srcAttrs.Equal(replicaAttrs) {
		return MetadataDiffers, nil
	}

	sourceDigest, err := HashFile(fs, sourcePath)
	if err != nil {
		return Identical, err
	}

	replicaDigest, err := HashFile(fs, replicaPath)
	if err != nil {
		return Identical, err
	}

	if sourceDigest != replicaDigest {
		return ContentDiffers, nil
	}
	return Identical, nil
}
