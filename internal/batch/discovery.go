package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/facescan/internal/utils"
)

// DiscoverImages lists the supported image files in dir in name order.
// Subdirectories are walked only when recursive is set.
func DiscoverImages(dir string, recursive bool, excludePatterns []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	if recursive {
		return discoverRecursive(dir, excludePatterns)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if shouldIncludeFile(path, excludePatterns) {
			files = append(files, path)
		}
	}
	return files, nil
}

func discoverRecursive(dir string, excludePatterns []string) ([]string, error) {
	var files []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && matchesAnyPattern(path, excludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}

// shouldIncludeFile keeps supported images that match no exclude pattern.
func shouldIncludeFile(path string, excludePatterns []string) bool {
	if !utils.IsSupportedImage(path) {
		return false
	}
	return !matchesAnyPattern(path, excludePatterns)
}

// matchesAnyPattern checks the base name of path against glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
