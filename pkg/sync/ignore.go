package sync

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

// Excluder hides paths matching gitignore-style patterns from both the source
// and the replica scans. Excluded paths are therefore never copied or deleted.
// A nil Excluder excludes nothing.
type Excluder struct {
	ignore *gitignore.GitIgnore
}

// NewExcluder compiles `patterns`. It returns nil if there are no patterns.
func NewExcluder(patterns []string) *Excluder {
	var lines []string
	for _, pattern := range patterns {
		if pattern != "" {
			lines = append(lines, pattern)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &Excluder{ignore: gitignore.CompileIgnoreLines(lines...)}
}

// Excludes returns whether the slash-separated relative path should be
// skipped. Directory-only patterns such as "logs/" need the trailing slash to
// match, so it's added for folders.
func (e *Excluder) Excludes(relPath string, isDir bool) bool {
	if e == nil {
		return false
	}
	if e.ignore.MatchesPath(relPath) {
		return true
	}
	return isDir && e.ignore.MatchesPath(relPath+"/")
}
