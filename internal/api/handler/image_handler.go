package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"sheet-image-fetcher/internal/column"
	"sheet-image-fetcher/internal/fetch"
	"sheet-image-fetcher/internal/model"
	"sheet-image-fetcher/internal/store"
	"sheet-image-fetcher/internal/workbook"
)

// ErrMissingParameters indicates a download request without file_name or sheet_name.
var ErrMissingParameters = errors.New("missing parameters")

//go:embed static/index.html
var indexPage []byte

// Recorder persists finished batches. *store.Store satisfies it.
type Recorder interface {
	RecordBatch(ctx context.Context, meta store.BatchMeta, report *fetch.Report) error
}

// Options holds the optional collaborators of a Handler.
type Options struct {
	MaxUploadSize int64
	Recorder      Recorder
	Observer      fetch.Observer
	Logger        *log.Logger
}

// Handler serves the upload and download endpoints.
type Handler struct {
	ingest    *workbook.Ingest
	fetcher   *fetch.Fetcher
	recorder  Recorder
	observer  fetch.Observer
	maxUpload int64
	logger    *log.Logger
	wg        sync.WaitGroup
}

// New creates a Handler that stores uploads with ingest and runs batches on fetcher.
func New(ingest *workbook.Ingest, fetcher *fetch.Fetcher, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		ingest:    ingest,
		fetcher:   fetcher,
		recorder:  opts.Recorder,
		observer:  fetch.Observers{fetch.LogObserver{Logger: logger}, opts.Observer},
		maxUpload: opts.MaxUploadSize,
		logger:    logger,
	}
}

// Index serves the front-end page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

// Upload stores a spreadsheet and lists its sheets
// @Summary Upload a spreadsheet
// @Description Store an .xls/.xlsx file under its sanitized name and return the sheet names in workbook order
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} model.UploadResponse "Sheet names and stored file name"
// @Failure 400 {object} model.ErrorResponse "No file part, no selected file, file type not allowed or unreadable workbook"
// @Failure 413 {object} model.ErrorResponse "File too large"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		case r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0:
			// A file input submitted with nothing selected arrives as a plain value
			writeError(w, http.StatusBadRequest, "No selected file")
		default:
			writeError(w, http.StatusBadRequest, "No file part")
		}
		return
	}
	defer file.Close()

	upload, err := h.ingest.Save(header.Filename, file)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.UploadResponse{Sheets: upload.Sheets, File: upload.File})
}

// Download starts fetching the images linked from one sheet
// @Summary Download images from a sheet
// @Description Resolve the image column of a sheet and fetch every link in the background into a folder named after the sheet
// @Tags images
// @Accept json
// @Produce json
// @Param request body model.DownloadRequest true "Uploaded file, sheet and optional column"
// @Success 200 {object} model.DownloadResponse "Download started"
// @Failure 400 {object} model.ErrorResponse "Missing parameters, file/sheet/column not found, or ask_column"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /download [post]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDownload(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	path, err := h.ingest.Locate(req.FileName)
	if err != nil {
		h.respondError(w, err)
		return
	}

	sheet, err := workbook.ReadSheet(path, req.SheetName)
	if err != nil {
		h.respondError(w, err)
		return
	}

	col, err := column.Resolve(sheet.Headers, req.UserColumn)
	if err != nil {
		h.respondError(w, err)
		return
	}

	links, err := sheet.Column(col)
	if err != nil {
		h.respondError(w, err)
		return
	}

	folder := req.SheetName
	h.launch(fetch.NewBatch(folder, links), store.BatchMeta{File: req.FileName, Sheet: req.SheetName})

	writeJSON(w, http.StatusOK, model.DownloadResponse{Message: "Download started", FolderName: folder})
}

// Wait blocks until every batch started by this handler has finished and
// been recorded.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// launch detaches the batch from the request; nothing is reported back to
// the client.
func (h *Handler) launch(batch fetch.Batch, meta store.BatchMeta) {
	handle := h.fetcher.Start(context.Background(), batch, h.observer)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		report := handle.Wait()
		if h.recorder == nil {
			return
		}
		if err := h.recorder.RecordBatch(context.Background(), meta, report); err != nil {
			h.logger.Printf("❌ Failed to record batch %s: %v", report.BatchID, err)
		}
	}()
}

func decodeDownload(r *http.Request) (model.DownloadRequest, error) {
	var req model.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, ErrMissingParameters
	}
	if req.FileName == "" || req.SheetName == "" {
		return req, ErrMissingParameters
	}
	return req, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingParameters):
		writeError(w, http.StatusBadRequest, "Missing parameters")
	case errors.Is(err, workbook.ErrMissingFile):
		writeError(w, http.StatusBadRequest, "No selected file")
	case errors.Is(err, workbook.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, "File type not allowed")
	case errors.Is(err, workbook.ErrUnreadableWorkbook):
		writeError(w, http.StatusBadRequest, "Failed to read workbook")
	case errors.Is(err, workbook.ErrFileNotFound):
		writeError(w, http.StatusBadRequest, "File not found")
	case errors.Is(err, workbook.ErrSheetNotFound):
		writeError(w, http.StatusBadRequest, "Sheet not found")
	case errors.Is(err, column.ErrAmbiguous):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:     "No column containing image links found",
			AskColumn: true,
		})
	case errors.Is(err, workbook.ErrColumnNotFound):
		writeError(w, http.StatusBadRequest, "Column not found")
	default:
		h.logger.Printf("❌ %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
