package workbook

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// BIFF8 record types read by the legacy reader.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recFilePass   = 0x002F
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recBOF        = 0x0809

	biff8Version = 0x0600
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var (
	errTruncated  = errors.New("truncated BIFF record")
	errNotBIFF8   = errors.New("only Excel 97-2003 (BIFF8) workbooks are supported")
	errEncrypted  = errors.New("workbook is password protected")
	errNoWorkbook = errors.New("no Workbook stream in compound file")
)

type xlsSheet struct {
	name string
	rows [][]string
}

// xlsBook is a legacy workbook read fully into memory on open.
type xlsBook struct {
	sheets []xlsSheet
}

func openXLS(path string) (*xlsBook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stream, err := workbookStream(f)
	if err != nil {
		return nil, err
	}
	sheets, err := parseBIFF(stream)
	if err != nil {
		return nil, err
	}
	return &xlsBook{sheets: sheets}, nil
}

func (b *xlsBook) SheetList() []string {
	names := make([]string, len(b.sheets))
	for i, s := range b.sheets {
		names[i] = s.name
	}
	return names
}

func (b *xlsBook) Rows(sheet string) ([][]string, error) {
	for _, s := range b.sheets {
		if s.name == sheet {
			return s.rows, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
}

func (b *xlsBook) Close() error { return nil }

// workbookStream extracts the Workbook stream from an OLE2 compound file.
func workbookStream(ra io.ReaderAt) ([]byte, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		// "Book" is the BIFF5 stream name; parseBIFF rejects it by version.
		if entry.Name != "Workbook" && entry.Name != "Book" {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
		}
		return buf, nil
	}
	return nil, errNoWorkbook
}

type record struct {
	typ  uint16
	data []byte
}

// nextRecord reads the record at pos and returns the offset after it.
func nextRecord(stream []byte, pos int) (record, int, error) {
	if pos < 0 || pos+4 > len(stream) {
		return record{}, pos, errTruncated
	}
	typ := binary.LittleEndian.Uint16(stream[pos:])
	end := pos + 4 + int(binary.LittleEndian.Uint16(stream[pos+2:]))
	if end > len(stream) {
		return record{}, pos, errTruncated
	}
	return record{typ: typ, data: stream[pos+4 : end]}, end, nil
}

type boundSheet struct {
	name   string
	offset int
}

// parseBIFF reads the globals substream (sheet directory and shared strings)
// and then each sheet substream at the offset its BOUNDSHEET record names.
func parseBIFF(stream []byte) ([]xlsSheet, error) {
	first, _, err := nextRecord(stream, 0)
	if err != nil {
		return nil, err
	}
	if first.typ != recBOF || len(first.data) < 2 || binary.LittleEndian.Uint16(first.data) != biff8Version {
		return nil, errNotBIFF8
	}

	var (
		bounds   []boundSheet
		sstParts [][]byte
		inSST    bool
	)
	pos := 0
globals:
	for {
		rec, next, err := nextRecord(stream, pos)
		if err != nil {
			return nil, fmt.Errorf("workbook globals: %w", err)
		}
		pos = next

		switch rec.typ {
		case recEOF:
			break globals
		case recFilePass:
			return nil, errEncrypted
		case recBoundSheet:
			if len(rec.data) < 8 {
				return nil, errTruncated
			}
			name, err := shortString(rec.data[6:])
			if err != nil {
				return nil, fmt.Errorf("sheet name: %w", err)
			}
			bounds = append(bounds, boundSheet{name: name, offset: int(binary.LittleEndian.Uint32(rec.data))})
		case recSST:
			sstParts = [][]byte{rec.data}
		case recContinue:
			if inSST {
				sstParts = append(sstParts, rec.data)
			}
		}
		inSST = rec.typ == recSST || (inSST && rec.typ == recContinue)
	}

	var sst []string
	if sstParts != nil {
		if sst, err = readSST(sstParts); err != nil {
			return nil, fmt.Errorf("shared strings: %w", err)
		}
	}

	sheets := make([]xlsSheet, 0, len(bounds))
	for _, bs := range bounds {
		rows, err := parseSheet(stream, bs.offset, sst)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", bs.name, err)
		}
		sheets = append(sheets, xlsSheet{name: bs.name, rows: rows})
	}
	return sheets, nil
}

// parseSheet collects cell values of one sheet substream. Records inside
// nested substreams (embedded charts) are skipped.
func parseSheet(stream []byte, offset int, sst []string) ([][]string, error) {
	var (
		g       grid
		depth   int
		pending = [2]int{-1, -1}
	)
	for pos := offset; ; {
		rec, next, err := nextRecord(stream, pos)
		if err != nil {
			return nil, err
		}
		pos = next

		switch rec.typ {
		case recBOF:
			depth++
			continue
		case recEOF:
			depth--
			if depth <= 0 {
				return g.rows, nil
			}
			continue
		}
		if depth != 1 {
			continue
		}

		d := rec.data
		switch rec.typ {
		case recLabelSST:
			if len(d) < 10 {
				continue
			}
			if i := int(binary.LittleEndian.Uint32(d[6:])); i < len(sst) {
				g.set(d, sst[i])
			}
		case recLabel:
			if len(d) < 9 {
				continue
			}
			if s, err := unicodeString(d[6:]); err == nil {
				g.set(d, s)
			}
		case recNumber:
			if len(d) < 14 {
				continue
			}
			g.set(d, formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))))
		case recRK:
			if len(d) < 10 {
				continue
			}
			g.set(d, formatNumber(decodeRK(binary.LittleEndian.Uint32(d[6:]))))
		case recMulRK:
			if len(d) < 6 {
				continue
			}
			row := int(binary.LittleEndian.Uint16(d))
			col := int(binary.LittleEndian.Uint16(d[2:]))
			for k := 0; 4+k*6+6 <= len(d)-2; k++ {
				rk := binary.LittleEndian.Uint32(d[4+k*6+2:])
				g.put(row, col+k, formatNumber(decodeRK(rk)))
			}
		case recBoolErr:
			if len(d) < 8 || d[7] != 0 {
				continue
			}
			g.set(d, formatBool(d[6]))
		case recFormula:
			if len(d) < 14 {
				continue
			}
			res := d[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				g.set(d, formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(res))))
				continue
			}
			switch res[0] {
			case 0: // string result follows in a STRING record
				pending = [2]int{int(binary.LittleEndian.Uint16(d)), int(binary.LittleEndian.Uint16(d[2:]))}
			case 1:
				g.set(d, formatBool(res[2]))
			}
		case recString:
			if pending[0] < 0 {
				continue
			}
			if s, err := unicodeString(d); err == nil {
				g.put(pending[0], pending[1], s)
			}
			pending = [2]int{-1, -1}
		}
	}
}

// grid grows to fit the cells written into it; rows keep no trailing blanks.
type grid struct {
	rows [][]string
}

// set writes v at the row/column held in the first four bytes of a cell record.
func (g *grid) set(cell []byte, v string) {
	g.put(int(binary.LittleEndian.Uint16(cell)), int(binary.LittleEndian.Uint16(cell[2:])), v)
}

func (g *grid) put(row, col int, v string) {
	if v == "" {
		return
	}
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row]
	for len(r) <= col {
		r = append(r, "")
	}
	r[col] = v
	g.rows[row] = r
}

// decodeRK unpacks the 30-bit RK number encoding.
func decodeRK(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b byte) string {
	if b != 0 {
		return "TRUE"
	}
	return "FALSE"
}

// shortString decodes a string with a one-byte character count.
func shortString(b []byte) (string, error) {
	if len(b) < 2 {
		return "", errTruncated
	}
	return decodeChars(b[2:], int(b[0]), b[1]&0x01 != 0)
}

// unicodeString decodes a string with a two-byte character count.
func unicodeString(b []byte) (string, error) {
	if len(b) < 3 {
		return "", errTruncated
	}
	return decodeChars(b[3:], int(binary.LittleEndian.Uint16(b)), b[2]&0x01 != 0)
}

func decodeChars(b []byte, n int, wide bool) (string, error) {
	if !wide {
		if len(b) < n {
			return "", errTruncated
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = uint16(b[i])
		}
		return string(utf16.Decode(units)), nil
	}
	if len(b) < 2*n {
		return "", errTruncated
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), nil
}

// sstReader walks the shared string table across its CONTINUE records.
type sstReader struct {
	parts [][]byte
	i     int
	pos   int
}

// advance moves past exhausted parts.
func (r *sstReader) advance() error {
	for r.i < len(r.parts) && r.pos >= len(r.parts[r.i]) {
		r.i++
		r.pos = 0
	}
	if r.i >= len(r.parts) {
		return errTruncated
	}
	return nil
}

func (r *sstReader) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for n > 0 {
		if err := r.advance(); err != nil {
			return nil, err
		}
		k := min(n, len(r.parts[r.i])-r.pos)
		out = append(out, r.parts[r.i][r.pos:r.pos+k]...)
		r.pos += k
		n -= k
	}
	return out, nil
}

func (r *sstReader) skip(n int) error {
	for n > 0 {
		if err := r.advance(); err != nil {
			return err
		}
		k := min(n, len(r.parts[r.i])-r.pos)
		r.pos += k
		n -= k
	}
	return nil
}

// chars reads n characters. When the characters run into the next CONTINUE
// record, that record starts with a fresh flags byte selecting the width.
func (r *sstReader) chars(n int, wide bool) (string, error) {
	units := make([]uint16, 0, n)
	for n > 0 {
		if r.i >= len(r.parts) {
			return "", errTruncated
		}
		if r.pos >= len(r.parts[r.i]) {
			r.i++
			r.pos = 0
			flags, err := r.read(1)
			if err != nil {
				return "", err
			}
			wide = flags[0]&0x01 != 0
		}

		width := 1
		if wide {
			width = 2
		}
		k := min(n, (len(r.parts[r.i])-r.pos)/width)
		if k == 0 {
			return "", errTruncated
		}
		b, err := r.read(k * width)
		if err != nil {
			return "", err
		}
		for j := 0; j < k; j++ {
			if wide {
				units = append(units, binary.LittleEndian.Uint16(b[2*j:]))
			} else {
				units = append(units, uint16(b[j]))
			}
		}
		n -= k
	}
	return string(utf16.Decode(units)), nil
}

func readSST(parts [][]byte) ([]string, error) {
	r := &sstReader{parts: parts}
	head, err := r.read(8)
	if err != nil {
		return nil, err
	}
	unique := int(binary.LittleEndian.Uint32(head[4:]))

	var strs []string
	for i := 0; i < unique; i++ {
		h, err := r.read(3)
		if err != nil {
			return nil, err
		}
		cch := int(binary.LittleEndian.Uint16(h))
		flags := h[2]

		var runs, ext int
		if flags&0x08 != 0 {
			b, err := r.read(2)
			if err != nil {
				return nil, err
			}
			runs = int(binary.LittleEndian.Uint16(b))
		}
		if flags&0x04 != 0 {
			b, err := r.read(4)
			if err != nil {
				return nil, err
			}
			ext = int(binary.LittleEndian.Uint32(b))
		}

		s, err := r.chars(cch, flags&0x01 != 0)
		if err != nil {
			return nil, err
		}
		if err := r.skip(4*runs + ext); err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}
