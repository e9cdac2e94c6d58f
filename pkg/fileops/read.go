package fileops

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ReadTextFile reads a whole text file after checking access and size.
//
// Parameters:
//   - path: File path, "~/" is expanded
//   - maxSize: Maximum allowed size in bytes
//
// Returns:
//   - string: File contents
//   - error: Access, size or content errors, wrapping ErrFileTooLarge,
//     ErrNotRegularFile, ErrBinaryContent or os.ErrNotExist
//
// Usage example:
//
//	text, err := fileops.ReadTextFile("modules/s3/variables.tf", 10*1024*1024)
//	if err != nil {
//	    return fmt.Errorf("read variables: %w", err)
//	}
func ReadTextFile(path string, maxSize int64) (string, error) {
	path = filepath.Clean(ExpandPath(path))

	if err := ValidateFileAccess(path); err != nil {
		return "", err
	}
	if err := ValidateFileSizeLimit(path, maxSize); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%s: %w", path, ErrBinaryContent)
	}

	return string(data), nil
}
