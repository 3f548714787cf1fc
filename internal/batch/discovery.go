// Package batch expands command line arguments into the image files a run
// should process.
package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImagePatterns match the formats utils.LoadImage decodes.
var DefaultImagePatterns = []string{"*.png", "*.jpg", "*.jpeg", "*.bmp"}

// DiscoverOptions controls directory expansion.
type DiscoverOptions struct {
	Recursive bool
	// Include patterns match the base name; empty means DefaultImagePatterns.
	Include []string
	Exclude []string
}

// DiscoverImages returns the files named by args, walking directories.
// Files keep argument order; a directory contributes its matches in
// lexical order.
func DiscoverImages(args []string, opts DiscoverOptions) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultImagePatterns
	}

	var imageFiles []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := discoverInDirectory(arg, opts.Recursive, include, opts.Exclude)
			if err != nil {
				return nil, err
			}
			imageFiles = append(imageFiles, files...)
		} else if shouldIncludeFile(arg, include, opts.Exclude) {
			imageFiles = append(imageFiles, arg)
		}
	}

	return imageFiles, nil
}

func discoverInDirectory(dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// shouldIncludeFile applies excludes first, then requires an include match.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern matches the base name case-insensitively.
func matchesAnyPattern(path string, patterns []string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(strings.ToLower(pattern), base); matched {
			return true
		}
	}
	return false
}
