package archive

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/traintrack/fdcsync/pkg/errors"
)

// ExtractZip extracts src into destDir, validating every entry against the
// guard. The guard's total counter is reset at the start, so one guard can
// be reused across consecutive archives.
func ExtractZip(src, destDir string, guard *Guard) error {
	guard.Reset()

	r, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer r.Close()

	slog.Info("archive_extract_start", "archive", filepath.Base(src), "entries", len(r.File), "dest", destDir)

	for _, f := range r.File {
		if err := extractEntry(f, destDir, guard); err != nil {
			return err
		}
	}

	slog.Info("archive_extract_complete", "archive", filepath.Base(src))
	return nil
}

func extractEntry(f *zip.File, destDir string, guard *Guard) error {
	if err := guard.CheckPath(f.Name); err != nil {
		return err
	}

	target := filepath.Join(destDir, filepath.Clean(f.Name))

	if f.FileInfo().IsDir() {
		return errors.Wrap(os.MkdirAll(target, 0755), "failed to create directory")
	}

	declared := int64(f.UncompressedSize64)
	if err := guard.CheckFileSize(declared); err != nil {
		return err
	}
	if err := guard.CheckRatio(int64(f.CompressedSize64), declared); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "failed to create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to open archive entry %s", f.Name)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", target)
	}
	defer out.Close()

	// Cap the copy at the declared size so a lying header cannot write past
	// the guard's accounting.
	written, err := io.Copy(out, io.LimitReader(rc, declared+1))
	if err != nil {
		return errors.Wrapf(err, "failed to extract %s", f.Name)
	}
	if written > declared {
		return errors.Wrapf(os.ErrInvalid, "entry %s larger than declared size %d", f.Name, declared)
	}

	return guard.AddExtracted(written)
}
