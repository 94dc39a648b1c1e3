package commands

import (
	"os"
	"path/filepath"

	"github.com/traintrack/fdcsync/pkg/errors"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(dbPath, flowDBPath, workDir string) error {
	// Create database directory
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	// Create workflow journal directory (only needed for sync command)
	if flowDBPath != "" {
		if err := os.MkdirAll(flowDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create workflow directory")
		}
	}

	// Create work directory (only needed for build command)
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}
