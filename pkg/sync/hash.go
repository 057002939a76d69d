package sync

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Digest is the xxh3-128 hash of a file's contents. It's only used for
// equality checks, so collision resistance doesn't matter.
type Digest [16]byte

// StructuralDigest summarizes the set of relative paths in a TreeSnapshot.
// Two trees with the same StructuralDigest contain the same folders and files,
// but the contents of the files may differ.
type StructuralDigest [16]byte

// HashFile returns the digest of the contents of the file at `path`.
func HashFile(fs afero.Fs, path string) (Digest, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Digest{}, errors.HashError{Path: path, Err: errors.WithContext(err, "open")}
	}
	defer f.Close()

	hasher := xxh3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return Digest{}, errors.HashError{Path: path, Err: errors.WithContext(err, "read")}
	}
	return Digest(hasher.Sum128().Bytes()), nil
}

// HashTreeStructure returns the StructuralDigest of the snapshot. Folders are
// hashed before files, and each group is sorted case-insensitively so that the
// digest doesn't depend on the order the filesystem returned entries in.
func HashTreeStructure(snapshot TreeSnapshot) StructuralDigest {
	hasher := xxh3.New()
	for _, folder := range sortedFold(snapshot.folders) {
		fmt.Fprintf(hasher, "Folder|%s\n", folder)
	}
	for _, file := range sortedFold(snapshot.files) {
		fmt.Fprintf(hasher, "File|%s\n", file)
	}
	return StructuralDigest(hasher.Sum128().Bytes())
}

// lessFold orders paths case-insensitively, falling back to an exact
// comparison so that paths differing only in case still have a fixed order.
func lessFold(a, b string) bool {
	upperA, upperB := strings.ToUpper(a), strings.ToUpper(b)
	if upperA != upperB {
		return upperA < upperB
	}
	return a < b
}

func sortedFold(paths []string) []string {
	sorted := append([]string{}, paths...)
	sort.Slice(sorted, func(i, j int) bool {
		return lessFold(sorted[i], sorted[j])
	})
	return sorted
}
