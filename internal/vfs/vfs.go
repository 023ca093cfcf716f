// Package vfs provides the file system abstraction used by file resources.
//
// OSFS reads and writes the real file system; MemFS keeps everything in
// memory and reports writes through a notification stream, which lets
// tests and scratch workspaces behave like a watched disk.
package vfs

import (
	"io/fs"
)

// VFS is the subset of file operations resources depend on.
type VFS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the content of a file, creating it if necessary.
	// A reader never observes a partially written file.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Stat returns file information.
	Stat(path string) (fs.FileInfo, error)

	// Abs returns the absolute, cleaned path.
	Abs(path string) (string, error)
}
