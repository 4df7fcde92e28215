package util

import (
	"os"
	"path/filepath"

	"github.com/quarry-build/quarry/internal/errors"
)

// FileExists returns true if the file at the given path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir returns true if the path points to a directory
func IsDir(path string) bool {
	fileInfo, err := os.Stat(path)
	return err == nil && fileInfo.IsDir()
}

// CanonicalPath returns the canonical version of the given path, relative to the given base path. That is, if the given
// path is a relative path, assume it is relative to the given base path. A canonical path is an absolute path with all
// relative components (e.g. "../") fully resolved. Symlinks are not resolved.
func CanonicalPath(path string, basePath string) (string, error) {
	if !filepath.IsAbs(path) {
		path = JoinPath(basePath, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.New(err)
	}

	return CleanPath(absPath), nil
}

// GetPathRelativeTo returns the relative path you would have to take to get from basePath to path
func GetPathRelativeTo(path string, basePath string) (string, error) {
	if path == "" {
		path = "."
	}

	if basePath == "" {
		basePath = "."
	}

	inputFolderAbs, err := filepath.Abs(basePath)
	if err != nil {
		return "", errors.New(err)
	}

	fileAbs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.New(err)
	}

	relPath, err := filepath.Rel(inputFolderAbs, fileAbs)
	if err != nil {
		return "", errors.New(err)
	}

	return filepath.ToSlash(relPath), nil
}

// ReadFileAsString returns the contents of the file at the given path as a string
func ReadFileAsString(path string) (string, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("error reading file at path %s: %w", path, err)
	}

	return string(bytes), nil
}

// WriteFile writes a file to the given path with the given contents, creating parent directories as
// needed. The file is world readable and owner writable.
func WriteFile(path string, contents []byte) error {
	const ownerWriteGlobalReadPerms = 0644

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(err)
	}

	if err := os.WriteFile(path, contents, ownerWriteGlobalReadPerms); err != nil {
		return errors.New(err)
	}

	return nil
}

// JoinPath always use / as the path separator. Windows-style path separators confuse both the identifier syntax and
// the generated manifest.
func JoinPath(elements ...string) string {
	return filepath.ToSlash(filepath.Join(elements...))
}

// CleanPath is used to clean paths to ensure the returned path uses / as the path separator
func CleanPath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
