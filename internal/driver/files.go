package driver

import (
	"go/build"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"autoplugin/internal/project"
)

// packageDir is one directory holding Go files, files sorted by path.
type packageDir struct {
	Dir   string
	Files []string
}

// listPackages walks root and returns every directory with Go sources.
// Test files, the generated output and directories the go tool ignores
// (leading "." or "_", testdata) are skipped, as are excluded names.
// Files whose build constraints do not match bctx are left out, the same
// way the go tool leaves them out of the package.
func listPackages(root, output string, exclude project.ExcludeConfig, bctx *build.Context) ([]packageDir, error) {
	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "testdata" || exclude.Excluded(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(name, output) {
			return nil
		}
		dir := filepath.Dir(path)
		// an unreadable file stays in so that loading reports it
		if match, err := bctx.MatchFile(dir, name); err == nil && !match {
			return nil
		}
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]packageDir, 0, len(byDir))
	for dir, files := range byDir {
		sort.Strings(files)
		dirs = append(dirs, packageDir{Dir: dir, Files: files})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Dir < dirs[j].Dir })
	return dirs, nil
}

func isSourceFile(name, output string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasPrefix(name, ".") &&
		name != output
}
