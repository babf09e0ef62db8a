package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FolderManager owns a root directory and the per-name subfolders beneath it.
type FolderManager struct {
	BaseDir string
}

// NewFolderManager creates a folder manager rooted at baseDir
func NewFolderManager(baseDir string) *FolderManager {
	return &FolderManager{
		BaseDir: baseDir,
	}
}

// EnsureRoot ensures the base directory exists
func (fm *FolderManager) EnsureRoot() error {
	if err := os.MkdirAll(fm.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.BaseDir, err)
	}
	return nil
}

// Ensure creates <BaseDir>/<name> if it is missing and returns its path.
// An existing directory is reused as is.
func (fm *FolderManager) Ensure(name string) (string, error) {
	dir := filepath.Join(fm.BaseDir, SafeSegment(name))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return dir, nil
}

// Path joins a file name onto the base directory without creating anything.
func (fm *FolderManager) Path(fileName string) string {
	return filepath.Join(fm.BaseDir, filepath.Base(fileName))
}

// Exists reports whether a regular file with the given name is present under BaseDir.
func (fm *FolderManager) Exists(fileName string) bool {
	info, err := os.Stat(fm.Path(fileName))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// GetFileType determines the file type based on extension
func (fm *FolderManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".xlsx", ".xlsm":
		return "excel"
	case ".xls":
		return "excel-legacy"
	default:
		return "unknown"
	}
}

// SafeSegment turns name into a single path segment: separators become "_"
// and names that would escape the parent ("", ".", "..") are replaced.
func SafeSegment(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(name)
	switch strings.TrimSpace(name) {
	case "", ".", "..":
		return "_"
	}
	return name
}
