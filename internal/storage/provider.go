// Package storage defines the log-directory file-system abstraction.
package storage

import "github.com/starford/envtest/internal/models"

// Provider is the interface for log directory operations.
type Provider interface {
	// Root returns the absolute log directory path.
	Root() string
	// List returns metadata for every daily log file in the directory.
	List() ([]models.LogFileMeta, error)
	// Read returns the raw bytes of the named log file.
	Read(name string) ([]byte, error)
	// Append opens name for appending (creating it if needed), writes content and closes it.
	Append(name string, content []byte) error
}
