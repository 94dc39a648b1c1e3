// Package archive extracts the bulk dataset ZIP archives with limits that
// keep a hostile or corrupted archive from escaping the work directory or
// exhausting the disk.
package archive

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// Guard enforces extraction limits across one archive.
type Guard struct {
	maxFileSize  int64
	maxTotalSize int64
	maxRatio     float64

	mu        sync.Mutex
	extracted int64
}

// NewGuard creates a guard with the given per-file, total, and compression
// ratio limits.
func NewGuard(maxFileSize, maxTotalSize int64, maxRatio float64) *Guard {
	slog.Info("archive_guard_init",
		"max_file_size_mb", maxFileSize/1024/1024,
		"max_total_size_mb", maxTotalSize/1024/1024,
		"max_compression_ratio", maxRatio)

	return &Guard{
		maxFileSize:  maxFileSize,
		maxTotalSize: maxTotalSize,
		maxRatio:     maxRatio,
	}
}

// CheckPath rejects absolute entry names and names that escape the
// extraction directory.
func (g *Guard) CheckPath(name string) error {
	if filepath.IsAbs(name) {
		slog.Error("archive_path_rejected", "path", name, "reason", "absolute_path")
		return fmt.Errorf("archive: absolute path not allowed: %s", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("archive_path_rejected", "path", name, "reason", "path_traversal")
		return fmt.Errorf("archive: path traversal detected: %s", name)
	}
	return nil
}

// CheckFileSize rejects entries whose declared uncompressed size exceeds the
// per-file limit.
func (g *Guard) CheckFileSize(size int64) error {
	if size > g.maxFileSize {
		slog.Error("archive_file_too_large",
			"file_size_mb", size/1024/1024,
			"max_file_size_mb", g.maxFileSize/1024/1024)
		return fmt.Errorf("archive: file size %d exceeds max %d", size, g.maxFileSize)
	}
	return nil
}

// CheckRatio rejects entries whose compression ratio signals a zip bomb.
func (g *Guard) CheckRatio(compressed, uncompressed int64) error {
	if compressed <= 0 {
		// Stored (uncompressed) entries and empty files are fine.
		return nil
	}
	ratio := float64(uncompressed) / float64(compressed)
	if ratio > g.maxRatio {
		slog.Error("archive_compression_bomb",
			"ratio", ratio,
			"max_ratio", g.maxRatio,
			"compressed", compressed,
			"uncompressed", uncompressed)
		return fmt.Errorf("archive: compression ratio %.2f exceeds max %.2f", ratio, g.maxRatio)
	}
	return nil
}

// AddExtracted accumulates bytes written to disk and enforces the total cap.
func (g *Guard) AddExtracted(size int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.extracted += size
	if g.extracted > g.maxTotalSize {
		slog.Error("archive_total_size_exceeded",
			"extracted_mb", g.extracted/1024/1024,
			"max_total_mb", g.maxTotalSize/1024/1024)
		return fmt.Errorf("archive: total extracted size %d exceeds max %d", g.extracted, g.maxTotalSize)
	}
	return nil
}

// Reset zeroes the total-extracted counter between archives.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.extracted = 0
}
