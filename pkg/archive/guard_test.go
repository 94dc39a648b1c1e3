package archive

import (
	"testing"
)

func TestCheckPath_PathTraversal(t *testing.T) {
	g := NewGuard(1024, 1024, 10.0)

	tests := []struct {
		path      string
		shouldErr bool
	}{
		{"food.csv", false},
		{"FoodData_Central/food.csv", false},
		{"../etc/passwd", true},
		{"/etc/passwd", true},
		{"dir/../food.csv", false},
		{"dir/../../etc/passwd", true},
	}

	for _, tt := range tests {
		err := g.CheckPath(tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %s", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %s: %v", tt.path, err)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	g := NewGuard(100, 1000, 10.0)

	if err := g.CheckFileSize(50); err != nil {
		t.Errorf("expected no error for size 50, got: %v", err)
	}

	if err := g.CheckFileSize(150); err == nil {
		t.Error("expected error for size 150 exceeding limit 100")
	}
}

func TestCheckRatio(t *testing.T) {
	g := NewGuard(1024, 10240, 10.0)

	if err := g.CheckRatio(10, 100); err != nil {
		t.Errorf("expected no error for ratio 10.0, got: %v", err)
	}

	if err := g.CheckRatio(50, 1000); err == nil {
		t.Error("expected error for ratio 20.0 exceeding limit 10.0")
	}

	// Stored entries and empty files report no compressed size.
	if err := g.CheckRatio(0, 500); err != nil {
		t.Errorf("expected no error for stored entry, got: %v", err)
	}
}

func TestAddExtracted_ExceedsTotal(t *testing.T) {
	g := NewGuard(1024, 500, 10.0)

	if err := g.AddExtracted(400); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := g.AddExtracted(200); err == nil {
		t.Error("expected error when total extracted exceeds limit")
	}
}

func TestReset_AllowsGuardReuse(t *testing.T) {
	g := NewGuard(1024, 500, 10.0)

	if err := g.AddExtracted(400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Reset()
	if err := g.AddExtracted(400); err != nil {
		t.Errorf("expected reset guard to accept a fresh archive, got: %v", err)
	}
}
