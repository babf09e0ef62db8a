package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"sheet-image-fetcher/internal/fetch"
	"sheet-image-fetcher/internal/httpclient"
	"sheet-image-fetcher/internal/model"
	"sheet-image-fetcher/internal/store"
	"sheet-image-fetcher/internal/workbook"
	"sheet-image-fetcher/pkg/utils"
)

type testEnv struct {
	h         *Handler
	uploads   string
	downloads string
	recorder  *fakeRecorder
}

type fakeRecorder struct {
	mu      sync.Mutex
	metas   []store.BatchMeta
	reports []*fetch.Report
}

func (f *fakeRecorder) RecordBatch(ctx context.Context, meta store.BatchMeta, report *fetch.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metas = append(f.metas, meta)
	f.reports = append(f.reports, report)
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	downloads := filepath.Join(root, "downloads")
	logger := log.New(io.Discard, "", 0)

	ingest := workbook.NewIngest(utils.NewFolderManager(uploads), []string{"xls", "xlsx"}, logger)
	fetcher := fetch.New(httpclient.NewClient(httpclient.DefaultOptions()), utils.NewFolderManager(downloads), logger)
	rec := &fakeRecorder{}
	h := New(ingest, fetcher, Options{MaxUploadSize: 32 << 20, Recorder: rec, Logger: logger})
	t.Cleanup(h.Wait)

	return &testEnv{h: h, uploads: uploads, downloads: downloads, recorder: rec}
}

// sheetSpec is one worksheet: a header row followed by data rows.
type sheetSpec struct {
	name string
	rows [][]string
}

func buildWorkbook(t *testing.T, sheets ...sheetSpec) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range s.rows {
			for c, value := range row {
				if value == "" {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(s.name, cell, value); err != nil {
					t.Fatalf("set %s: %v", cell, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()
	return &body, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, data)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.h.Upload(rr, req)
	return rr
}

func (e *testEnv) download(t *testing.T, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.h.Download(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "jpeg%s", r.URL.Path)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUploadListsSheets(t *testing.T) {
	e := newTestEnv(t)
	data := buildWorkbook(t,
		sheetSpec{name: "Products", rows: [][]string{{"Name", "Image"}}},
		sheetSpec{name: "Archive"},
	)

	rr := e.upload(t, "catalog 2024.xlsx", data)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp model.UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.File != "catalog_2024.xlsx" {
		t.Errorf("expected file catalog_2024.xlsx, got %s", resp.File)
	}
	if len(resp.Sheets) != 2 || resp.Sheets[0] != "Products" || resp.Sheets[1] != "Archive" {
		t.Errorf("unexpected sheets %v", resp.Sheets)
	}
	if _, err := os.Stat(filepath.Join(e.uploads, resp.File)); err != nil {
		t.Errorf("upload not stored: %v", err)
	}
}

func TestUploadLegacyWorkbook(t *testing.T) {
	e := newTestEnv(t)
	data, err := os.ReadFile(filepath.Join("..", "..", "workbook", "testdata", "legacy.xls"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	rr := e.upload(t, "legacy.xls", data)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp model.UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sheets) != 2 || resp.Sheets[0] != "Products" || resp.Sheets[1] != "Notes" {
		t.Errorf("unexpected sheets %v", resp.Sheets)
	}

	// Notes has no image header, so the sheet is read and the column asked for.
	rr = e.download(t, `{"file_name":"legacy.xls","sheet_name":"Notes"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeError(t, rr); !body.AskColumn {
		t.Errorf("expected ask_column, got %+v", body)
	}
}

func TestUploadErrors(t *testing.T) {
	e := newTestEnv(t)
	valid := buildWorkbook(t, sheetSpec{name: "S"})

	tests := []struct {
		name     string
		request  func() *http.Request
		expected string
	}{
		{
			name: "not multipart",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
			},
			expected: "No file part",
		},
		{
			name: "wrong field",
			request: func() *http.Request {
				body, ct := multipartBody(t, "document", "book.xlsx", valid)
				req := httptest.NewRequest(http.MethodPost, "/upload", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			expected: "No file part",
		},
		{
			name: "empty filename",
			request: func() *http.Request {
				body, ct := multipartBody(t, "file", "", nil)
				req := httptest.NewRequest(http.MethodPost, "/upload", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			expected: "No selected file",
		},
		{
			name: "bad extension",
			request: func() *http.Request {
				body, ct := multipartBody(t, "file", "notes.txt", []byte("hello"))
				req := httptest.NewRequest(http.MethodPost, "/upload", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			expected: "File type not allowed",
		},
		{
			name: "unreadable workbook",
			request: func() *http.Request {
				body, ct := multipartBody(t, "file", "broken.xlsx", []byte("not a workbook"))
				req := httptest.NewRequest(http.MethodPost, "/upload", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			expected: "Failed to read workbook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			e.h.Upload(rr, tt.request())
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if resp := decodeError(t, rr); resp.Error != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, resp.Error)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(e.uploads, "notes.txt")); !os.IsNotExist(err) {
		t.Errorf("rejected upload should not be stored")
	}
}

func TestDownloadErrors(t *testing.T) {
	e := newTestEnv(t)
	data := buildWorkbook(t,
		sheetSpec{name: "Products", rows: [][]string{{"Name", "Image"}, {"a", "http://x/1.jpg"}}},
		sheetSpec{name: "Plain", rows: [][]string{{"Name", "Link"}, {"a", "http://x/1.jpg"}}},
	)
	if rr := e.upload(t, "book.xlsx", data); rr.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rr.Code, rr.Body.String())
	}

	tests := []struct {
		name      string
		payload   string
		expected  string
		askColumn bool
	}{
		{"invalid json", `{"file_name":`, "Missing parameters", false},
		{"missing sheet", `{"file_name":"book.xlsx"}`, "Missing parameters", false},
		{"missing file", `{"sheet_name":"Products"}`, "Missing parameters", false},
		{"unknown file", `{"file_name":"other.xlsx","sheet_name":"Products"}`, "File not found", false},
		{"unknown sheet", `{"file_name":"book.xlsx","sheet_name":"Nope"}`, "Sheet not found", false},
		{"no image column", `{"file_name":"book.xlsx","sheet_name":"Plain"}`, "No column containing image links found", true},
		{"absent override", `{"file_name":"book.xlsx","sheet_name":"Plain","user_column":"Photos"}`, "Column not found", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.download(t, tt.payload)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			resp := decodeError(t, rr)
			if resp.Error != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, resp.Error)
			}
			if resp.AskColumn != tt.askColumn {
				t.Errorf("expected ask_column=%v, got %v", tt.askColumn, resp.AskColumn)
			}
		})
	}

	e.h.Wait()
	if entries, _ := os.ReadDir(e.downloads); len(entries) != 0 {
		t.Errorf("failed requests must not start a batch, found %d folders", len(entries))
	}
}

func TestDownloadStartsBatch(t *testing.T) {
	e := newTestEnv(t)
	server := imageServer(t)
	data := buildWorkbook(t,
		sheetSpec{name: "Products", rows: [][]string{
			{"Name", "Product Image"},
			{"Lamp", server.URL + "/lamp"},
			{"Desk", ""},
			{"Chair", server.URL + "/chair"},
		}},
		sheetSpec{name: "Notes"},
	)
	if rr := e.upload(t, "book.xlsx", data); rr.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rr.Code, rr.Body.String())
	}

	rr := e.download(t, `{"file_name":"book.xlsx","sheet_name":"Products"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp model.DownloadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Download started" || resp.FolderName != "Products" {
		t.Errorf("unexpected response %+v", resp)
	}

	e.h.Wait()

	dir := filepath.Join(e.downloads, "Products")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read folder: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 images, got %d", len(entries))
	}
	for i, name := range []string{"lamp", "chair"} {
		got, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("image_%d.jpg", i+1)))
		if err != nil {
			t.Fatalf("image_%d.jpg: %v", i+1, err)
		}
		if string(got) != "jpeg/"+name {
			t.Errorf("image_%d.jpg: unexpected content %q", i+1, got)
		}
	}

	if len(e.recorder.reports) != 1 {
		t.Fatalf("expected 1 recorded batch, got %d", len(e.recorder.reports))
	}
	if meta := e.recorder.metas[0]; meta.File != "book.xlsx" || meta.Sheet != "Products" {
		t.Errorf("unexpected batch meta %+v", meta)
	}
	if report := e.recorder.reports[0]; report.Written() != 2 || report.Failed() != 0 {
		t.Errorf("unexpected report written=%d failed=%d", report.Written(), report.Failed())
	}
}

func TestDownloadUsesUserColumn(t *testing.T) {
	e := newTestEnv(t)
	server := imageServer(t)
	data := buildWorkbook(t, sheetSpec{name: "Links", rows: [][]string{
		{"Name", "URL"},
		{"a", server.URL + "/a"},
	}})
	e.upload(t, "book.xlsx", data)

	rr := e.download(t, `{"file_name":"book.xlsx","sheet_name":"Links","user_column":"URL"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	e.h.Wait()

	if _, err := os.Stat(filepath.Join(e.downloads, "Links", "image_1.jpg")); err != nil {
		t.Errorf("image_1.jpg missing: %v", err)
	}
}

func TestDownloadKeywordBeatsOverride(t *testing.T) {
	e := newTestEnv(t)
	server := imageServer(t)
	data := buildWorkbook(t, sheetSpec{name: "S", rows: [][]string{
		{"Background", "URL", "Hero IMAGE"},
		{server.URL + "/bg", server.URL + "/url", server.URL + "/hero"},
	}})
	e.upload(t, "book.xlsx", data)

	rr := e.download(t, `{"file_name":"book.xlsx","sheet_name":"S","user_column":"URL"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	e.h.Wait()

	got, err := os.ReadFile(filepath.Join(e.downloads, "S", "image_1.jpg"))
	if err != nil {
		t.Fatalf("image_1.jpg: %v", err)
	}
	if string(got) != "jpeg/hero" {
		t.Errorf("expected the image column to win, got %q", got)
	}
}

func TestDownloadFailedLinkKeepsGoing(t *testing.T) {
	e := newTestEnv(t)
	server := imageServer(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	data := buildWorkbook(t, sheetSpec{name: "S", rows: [][]string{
		{"image"},
		{server.URL + "/1"},
		{deadURL + "/2"},
		{server.URL + "/3"},
	}})
	e.upload(t, "book.xlsx", data)

	rr := e.download(t, `{"file_name":"book.xlsx","sheet_name":"S"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 even though a link is dead, got %d", rr.Code)
	}
	e.h.Wait()

	dir := filepath.Join(e.downloads, "S")
	for _, name := range []string{"image_1.jpg", "image_3.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "image_2.jpg")); !os.IsNotExist(err) {
		t.Errorf("image_2.jpg should not exist")
	}
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t)
	rr := httptest.NewRecorder()
	e.h.Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "/upload") {
		t.Error("index page should reference the upload endpoint")
	}
}
