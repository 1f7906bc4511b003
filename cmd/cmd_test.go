package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recap"
)

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"S-001.jpg", "S-002.PNG", "S-003.webp", "notes.txt", "README"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o700); err != nil {
		t.Fatal(err)
	}

	files, err := listImages(dir)
	if err != nil {
		t.Fatalf("listImages() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 images, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if filepath.Dir(f) != dir {
			t.Errorf("expected path under %s, got %s", dir, f)
		}
	}
}

func TestListImages_MissingDir(t *testing.T) {
	if _, err := listImages(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestToRecapJSON(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	report := &recap.Report{
		Start:       day,
		End:         day,
		ClassFilter: "7A",
		Columns:     []recap.Column{{Date: day, Period: "subuh"}, {Date: day, Period: "sore"}},
		GroupA: []recap.Row{{
			Identity: database.Identity{ID: 1, ExternalID: "S-001", Name: "Ahmad"},
			Cells:    []string{"present", "absent"},
			Counts:   map[string]int{"present": 1, "absent": 1},
		}},
	}

	out := toRecapJSON(report)

	if out.Start != "2024-03-04" || out.End != "2024-03-04" || out.Class != "7A" {
		t.Errorf("unexpected header %+v", out)
	}
	if len(out.Columns) != 2 || out.Columns[0] != "2024-03-04/subuh" {
		t.Errorf("unexpected columns %v", out.Columns)
	}
	if len(out.Male) != 1 || out.Male[0].ExternalID != "S-001" || out.Male[0].Cells[1] != "absent" {
		t.Errorf("unexpected male rows %+v", out.Male)
	}
	if out.Female == nil || len(out.Female) != 0 {
		t.Errorf("expected empty non-nil female rows, got %#v", out.Female)
	}
}

func TestToIdentityOutput_NilTags(t *testing.T) {
	out := toIdentityOutput(database.Identity{ID: 3, ExternalID: "S-003", Name: "Siti"})
	if out.ClassTags == nil {
		t.Error("expected empty class tags slice, got nil")
	}
}
