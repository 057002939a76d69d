package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/errors"
)

func TestScan(t *testing.T) {
	modTime := time.Date(2019, 11, 10, 1, 2, 3, 0, time.UTC)

	tests := []struct {
		name       string
		dirs       []string
		files      []string
		exclude    []string
		expFolders []string
		expFiles   []string
	}{
		{
			name:       "Empty",
			expFolders: []string{},
			expFiles:   []string{},
		},
		{
			name:       "Nested",
			dirs:       []string{"/root/docs", "/root/docs/old", "/root/empty"},
			files:      []string{"/root/docs/readme.txt", "/root/docs/old/v1.txt", "/root/Top.txt"},
			expFolders: []string{"docs", "docs/old", "empty"},
			expFiles:   []string{"docs/old/v1.txt", "docs/readme.txt", "Top.txt"},
		},
		{
			name:       "Excluded",
			dirs:       []string{"/root/logs", "/root/src"},
			files:      []string{"/root/logs/today.log", "/root/src/main.go", "/root/src/main.tmp"},
			exclude:    []string{"logs/", "*.tmp"},
			expFolders: []string{"src"},
			expFiles:   []string{"src/main.go"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll("/root", 0755))
			for _, dir := range test.dirs {
				require.NoError(t, fs.MkdirAll(dir, 0755))
			}
			for _, file := range test.files {
				require.NoError(t, mockFile{path: file, contents: "abc", modTime: modTime}.writeToFs(fs))
			}

			snapshot, err := Scan(fs, "/root", NewExcluder(test.exclude))
			require.NoError(t, err)

			assert.Equal(t, "/root", snapshot.Root())
			assert.Equal(t, test.expFolders, snapshot.Folders())
			assert.Equal(t, test.expFiles, snapshot.Files())
			for _, file := range test.expFiles {
				attrs, ok := snapshot.Attributes(file)
				assert.True(t, ok)
				assert.Equal(t, FileAttributes{Size: 3, ModTime: modTime}, attrs)
				assert.True(t, snapshot.HasFile(file))
				assert.False(t, snapshot.HasFolder(file))
			}
			for _, folder := range test.expFolders {
				assert.True(t, snapshot.HasFolder(folder))
			}
		})
	}
}

func TestScanErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0644))

	_, err := Scan(fs, "/missing", nil)
	assert.True(t, errors.IsIOError(err))
	var dneErr errors.FileNotFound
	assert.True(t, errors.As(err, &dneErr))
	assert.Equal(t, "/missing", dneErr.Path)

	_, err = Scan(fs, "/file", nil)
	assert.True(t, errors.IsIOError(err))
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScanSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target.txt"), []byte("x"), 0644))
	if err := os.Symlink(filepath.Join(root, "target.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %s", err)
	}

	snapshot, err := Scan(afero.NewOsFs(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"target.txt"}, snapshot.Files())
	assert.Equal(t, []string{"link.txt"}, snapshot.Skipped())
}

func TestFileAttributesEqual(t *testing.T) {
	utc := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("UTC+2", 2*60*60))

	assert.True(t, FileAttributes{Size: 1, ModTime: utc}.Equal(FileAttributes{Size: 1, ModTime: local}))
	assert.False(t, FileAttributes{Size: 1, ModTime: utc}.Equal(FileAttributes{Size: 2, ModTime: utc}))
	assert.False(t, FileAttributes{Size: 1, ModTime: utc}.Equal(
		FileAttributes{Size: 1, ModTime: utc.Add(time.Second)}))
}

func TestExcluderNil(t *testing.T) {
	assert.Nil(t, NewExcluder(nil))
	assert.Nil(t, NewExcluder([]string{""}))

	var excluder *Excluder
	assert.False(t, excluder.Excludes("anything", false))
}
