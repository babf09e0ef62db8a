package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureIsIdempotent(t *testing.T) {
	fm := NewFolderManager(filepath.Join(t.TempDir(), "downloads"))

	dir, err := fm.Ensure("Products")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if dir != filepath.Join(fm.BaseDir, "Products") {
		t.Errorf("unexpected dir %s", dir)
	}

	marker := filepath.Join(dir, "image_1.jpg")
	if err := os.WriteFile(marker, []byte("x"), 0644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	again, err := fm.Ensure("Products")
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if again != dir {
		t.Errorf("expected %s, got %s", dir, again)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing file should survive Ensure: %v", err)
	}
}

func TestSafeSegment(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Products", "Products"},
		{"Summer Sale", "Summer Sale"},
		{"a/b", "a_b"},
		{`a\b`, "a_b"},
		{"..", "_"},
		{".", "_"},
		{"", "_"},
		{"   ", "_"},
	}

	for _, tt := range tests {
		result := SafeSegment(tt.input)
		if result != tt.expected {
			t.Errorf("SafeSegment(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestExists(t *testing.T) {
	fm := NewFolderManager(t.TempDir())
	if fm.Exists("book.xlsx") {
		t.Error("expected book.xlsx to be absent")
	}
	if err := os.WriteFile(fm.Path("book.xlsx"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !fm.Exists("book.xlsx") {
		t.Error("expected book.xlsx to exist")
	}
	if err := os.Mkdir(fm.Path("dir.xlsx"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if fm.Exists("dir.xlsx") {
		t.Error("directories are not uploads")
	}
}

func TestGetFileType(t *testing.T) {
	fm := NewFolderManager("")
	tests := map[string]string{
		"book.XLSX":   "excel",
		"book.xls":    "excel-legacy",
		"book.xlsm":   "excel",
		"image_1.jpg": "unknown",
		"notes.txt":   "unknown",
	}
	for name, expected := range tests {
		if got := fm.GetFileType(name); got != expected {
			t.Errorf("GetFileType(%q) = %q, expected %q", name, got, expected)
		}
	}
}
