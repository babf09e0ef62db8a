package workbook

import "errors"

var (
	// ErrMissingFile indicates no upload payload or an empty filename.
	ErrMissingFile = errors.New("no file uploaded")
	// ErrInvalidFile indicates an extension outside the allowed set, or a
	// name that sanitizes to nothing.
	ErrInvalidFile = errors.New("file type not allowed")
	// ErrFileNotFound indicates the referenced upload is not on disk.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnreadableWorkbook indicates the file could not be parsed as a workbook.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	// ErrSheetNotFound indicates the workbook has no sheet with the requested name.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrColumnNotFound indicates the sheet header has no column with the requested name.
	ErrColumnNotFound = errors.New("column not found")
)
