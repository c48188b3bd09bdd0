// Package storage defines the workspace file-system abstraction. The
// workspace directory is expected to be tracked by an external
// version-control tool; this layer only moves bytes.
package storage

import "time"

// FileInfo is lightweight metadata for one note file in the workspace.
type FileInfo struct {
	Path     string    // relative to the workspace root, forward slashes
	Name     string    // base name of the file
	Checksum string    // hex SHA-256 of the content
	ModTime  time.Time // filesystem modification time
}

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the root).
	Move(oldPath, newPath string) error
}
