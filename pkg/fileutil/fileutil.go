package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohmanhakim/prompt-loader/pkg/failure"
)

// GetFileExtension extracts the lowercased file extension from a path, or empty string if none
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// EnsureDir check if a given directory plus the following path exist, then create one if not
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	targetPath := []string{dir}
	targetPath = append(targetPath, path...)

	if err := os.MkdirAll(filepath.Join(targetPath...), 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	return nil
}

// SafeJoin joins a slash-separated relative path onto root and rejects
// results that would land outside root.
func SafeJoin(root string, rel string) (string, failure.ClassifiedError) {
	cleaned := filepath.Clean(filepath.FromSlash("/" + rel))
	if cleaned == string(filepath.Separator) {
		return "", &FileError{
			Message: fmt.Sprintf("empty path under %s", root),
			Cause:   ErrCausePathError,
		}
	}

	joined := filepath.Join(root, cleaned)
	relToRoot, err := filepath.Rel(root, joined)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", &FileError{
			Message: fmt.Sprintf("%q is outside %s", rel, root),
			Cause:   ErrCausePathEscape,
		}
	}
	return joined, nil
}
