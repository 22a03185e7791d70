package rewrite

import (
	"io/fs"
	"path/filepath"
	"regexp"
)

// walkGoFiles walks root and calls fn for each non-test .go file that is
// not excluded by skipDirRe. Directory skipping and file filtering live in
// one place so the engine and the watch command share the same traversal.
func walkGoFiles(root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirRe.MatchString(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !goSourceRe.MatchString(d.Name()) || testFileRe.MatchString(d.Name()) {
			return nil
		}
		return fn(path)
	})
}

// IsSourceFile reports whether a file name is one the engine processes:
// a non-test .go file.
func IsSourceFile(name string) bool {
	return goSourceRe.MatchString(name) && !testFileRe.MatchString(name)
}

// ProjectDirs returns every directory under root that the engine would
// scan. The watch command registers these with its filesystem watcher so
// both sides agree on what counts as project source.
func ProjectDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirRe.MatchString(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// ---------------------------------------------------------------------------
// Shared regex patterns
// ---------------------------------------------------------------------------

// skipDirRe matches directory names that should be skipped during scanning:
// hidden dirs (which covers the shadow cache), vendor, testdata.
var skipDirRe = regexp.MustCompile(`^\.|^vendor$|^testdata$`)

// goSourceRe matches .go filenames.
var goSourceRe = regexp.MustCompile(`^.+\.go$`)

// testFileRe matches Go test files.
var testFileRe = regexp.MustCompile(`_test\.go$`)
