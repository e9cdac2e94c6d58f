// Package fileops provides the file-system primitives used by the rule
// engine: bounded text reads, module-root checks, module discovery and
// atomic writes.
//
// # Reading module files
//
// Rules never touch the file system. Callers read module files through
// ReadTextFile, which combines the checks in this order:
//
// 1. **Path expansion**: ExpandPath() - "~/" shortcuts
// 2. **File Access**: ValidateFileAccess() - exists, regular, readable
// 3. **File Size**: ValidateFileSizeLimit() - prevents resource exhaustion
// 4. **Content**: NUL bytes are rejected as binary content
//
//	text, err := fileops.ReadTextFile(path, 10*1024*1024)
//	if errors.Is(err, fileops.ErrFileTooLarge) {
//	    // report the limit to the caller
//	}
//
// # Atomic Operations
//
// Use AtomicWriteFile() when writing generated documents:
//
//	err := fileops.AtomicWriteFile("README.md", data, 0o644)
//	// Destination appears atomically or remains unchanged on failure
package fileops
