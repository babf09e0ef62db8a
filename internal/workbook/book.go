package workbook

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// book is an opened workbook, whichever format it is stored in.
type book interface {
	SheetList() []string
	Rows(sheet string) ([][]string, error)
	Close() error
}

type xlsxBook struct {
	f *excelize.File
}

func (b xlsxBook) SheetList() []string {
	return b.f.GetSheetList()
}

func (b xlsxBook) Rows(sheet string) ([][]string, error) {
	return b.f.GetRows(sheet)
}

func (b xlsxBook) Close() error {
	return b.f.Close()
}

// openBook picks the reader from the file content rather than its name:
// legacy .xls workbooks are OLE2 compound files, everything else goes to excelize.
func openBook(path string) (book, error) {
	legacy, err := isCompoundFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	if legacy {
		b, err := openXLS(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
		}
		return b, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return xlsxBook{f: f}, nil
}

func isCompoundFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(oleSignature))
	if _, err := io.ReadFull(f, head); err != nil {
		// Too short to be a compound file; excelize reports the real problem.
		return false, nil
	}
	return bytes.Equal(head, oleSignature), nil
}
