package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrFileTooLarge is returned when a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrNotRegularFile is returned when a path names a directory or device
	// where a regular file was expected.
	ErrNotRegularFile = errors.New("not a regular file")
	// ErrNotDirectory is returned when a module root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrBinaryContent is returned for files containing NUL bytes.
	ErrBinaryContent = errors.New("file contains binary content")
)

// ValidateFileAccess checks that a file exists, is a regular file and can be
// opened for reading.
//
// Usage example:
//
//	if err := fileops.ValidateFileAccess("/path/to/variables.tf"); err != nil {
//	    return fmt.Errorf("cannot read file: %w", err)
//	}
func ValidateFileAccess(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s: %w", filePath, os.ErrNotExist)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", filePath, ErrNotRegularFile)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("file is not readable: %w", err)
	}
	file.Close()

	return nil
}

// ValidateFileSizeLimit checks if a file size is within acceptable limits.
// This function helps prevent memory exhaustion from very large files.
//
// Parameters:
//   - filePath: Path to the file to check
//   - maxSize: Maximum allowed file size in bytes
//
// Returns:
//   - error: Validation error if file exceeds size limit or cannot be accessed
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s: %w", filepath.Base(filePath), os.ErrNotExist)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s: %w", filePath, ErrNotRegularFile)
	}

	if fileInfo.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes: %w", fileInfo.Size(), maxSize, ErrFileTooLarge)
	}

	return nil
}

// ValidateModuleRoot expands and cleans a module root path and checks that
// it names a readable directory.
func ValidateModuleRoot(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("module path cannot be empty")
	}

	root := filepath.Clean(ExpandPath(path))
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("module path does not exist: %s: %w", root, os.ErrNotExist)
		}
		return "", fmt.Errorf("cannot access module path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	dir, err := os.Open(root)
	if err != nil {
		return "", fmt.Errorf("module path is not readable: %w", err)
	}
	dir.Close()

	return root, nil
}

// ExpandPath expands a path that starts with "~/" to the user's home directory.
// This is a utility function for handling user home directory shortcuts.
//
// Usage example:
//
//	expanded := fileops.ExpandPath("~/infra/modules/s3")
//	// Returns something like "/home/user/infra/modules/s3"
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
