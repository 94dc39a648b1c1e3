package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return path
}

func TestExtractZip(t *testing.T) {
	src := writeZip(t, map[string]string{
		"food.csv":          "fdc_id,description\n1,apple\n",
		"nested/detail.csv": "id,value\n1,x\n",
	})
	dest := t.TempDir()
	guard := NewGuard(1024*1024, 10*1024*1024, 1000.0)

	if err := ExtractZip(src, dest, guard); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "food.csv"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "fdc_id,description\n1,apple\n" {
		t.Errorf("content mismatch: %q", data)
	}

	if _, err := os.Stat(filepath.Join(dest, "nested", "detail.csv")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	src := writeZip(t, map[string]string{
		"../escape.csv": "bad",
	})
	guard := NewGuard(1024, 1024, 1000.0)

	if err := ExtractZip(src, t.TempDir(), guard); err == nil {
		t.Error("expected traversal entry to be rejected")
	}
}

func TestExtractZip_RejectsOversizedEntry(t *testing.T) {
	src := writeZip(t, map[string]string{
		"big.csv": string(make([]byte, 2048)),
	})
	guard := NewGuard(1024, 10*1024, 1000.0)

	if err := ExtractZip(src, t.TempDir(), guard); err == nil {
		t.Error("expected oversized entry to be rejected")
	}
}

func TestExtractZip_ResetsGuardBetweenArchives(t *testing.T) {
	content := string(make([]byte, 600))
	first := writeZip(t, map[string]string{"a.csv": content})
	second := writeZip(t, map[string]string{"b.csv": content})
	guard := NewGuard(1024, 1000, 1000.0)

	if err := ExtractZip(first, t.TempDir(), guard); err != nil {
		t.Fatalf("first extract failed: %v", err)
	}
	// Without the reset the second archive would trip the 1000-byte total.
	if err := ExtractZip(second, t.TempDir(), guard); err != nil {
		t.Errorf("second extract failed: %v", err)
	}
}
