// Package workbook stores uploaded spreadsheets and reads worksheets out of them.
package workbook

import (
	"fmt"
	"io"
	"log"
	"os"
	"slices"

	"sheet-image-fetcher/pkg/utils"
)

// Upload is the outcome of a successful Save.
type Upload struct {
	Sheets []string `json:"sheets"`
	File   string   `json:"file"`
}

// Ingest owns the upload directory.
type Ingest struct {
	folders *utils.FolderManager
	allowed map[string]bool
	logger  *log.Logger
}

// NewIngest creates an Ingest writing into folders.BaseDir and accepting the
// given extensions (lower-case, without dot).
func NewIngest(folders *utils.FolderManager, allowedExtensions []string, logger *log.Logger) *Ingest {
	if logger == nil {
		logger = log.Default()
	}
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[ext] = true
	}
	return &Ingest{folders: folders, allowed: allowed, logger: logger}
}

// Allowed reports whether filename carries an accepted extension.
func (in *Ingest) Allowed(filename string) bool {
	return in.allowed[extension(filename)]
}

// Save validates filename, writes r to the upload directory under the
// sanitized name (replacing any previous file) and lists the workbook's sheets.
func (in *Ingest) Save(filename string, r io.Reader) (*Upload, error) {
	if filename == "" || r == nil {
		return nil, ErrMissingFile
	}
	if !in.Allowed(filename) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, filename)
	}
	name := SecureFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, filename)
	}

	if err := in.folders.EnsureRoot(); err != nil {
		return nil, err
	}

	path := in.folders.Path(name)
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	in.logger.Printf("📥 Stored upload %s (%s, %d bytes)", name, in.folders.GetFileType(name), n)

	sheets, err := SheetNames(path)
	if err != nil {
		return nil, err
	}
	return &Upload{Sheets: sheets, File: name}, nil
}

// Locate resolves a previously returned upload name to its path on disk.
func (in *Ingest) Locate(name string) (string, error) {
	clean := SecureFilename(name)
	if clean == "" || !in.folders.Exists(clean) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return in.folders.Path(clean), nil
}

// SheetNames lists the worksheets of the workbook at path, in workbook order.
func SheetNames(path string) ([]string, error) {
	b, err := openBook(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	return b.SheetList(), nil
}

// ReadSheet loads one worksheet. No data is cached between calls.
// Blank rows above the header row are skipped.
func ReadSheet(path, sheetName string) (*Sheet, error) {
	b, err := openBook(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if !slices.Contains(b.SheetList(), sheetName) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheetName)
	}

	rows, err := b.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	rows = skipBlankRows(rows)

	sheet := &Sheet{Name: sheetName}
	if len(rows) > 0 {
		sheet.Headers = rows[0]
		sheet.Rows = rows[1:]
	}
	return sheet, nil
}

// skipBlankRows drops leading rows whose cells are all empty.
func skipBlankRows(rows [][]string) [][]string {
	for len(rows) > 0 && !slices.ContainsFunc(rows[0], func(c string) bool { return c != "" }) {
		rows = rows[1:]
	}
	return rows
}
