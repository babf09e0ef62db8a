package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"sheet-image-fetcher/internal/httpclient"
	"sheet-image-fetcher/pkg/utils"
)

// Getter issues one GET per link.
type Getter interface {
	Get(ctx context.Context, url string) (*httpclient.Response, error)
}

// Fetcher runs batches against the download root.
type Fetcher struct {
	getter  Getter
	folders *utils.FolderManager
	logger  *log.Logger
}

// New creates a Fetcher that writes below folders.BaseDir.
func New(getter Getter, folders *utils.FolderManager, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{getter: getter, folders: folders, logger: logger}
}

// Handle tracks a batch started with Start.
type Handle struct {
	BatchID string
	done    chan struct{}
	report  *Report
}

// Done is closed when the batch has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch has finished and returns its report.
func (h *Handle) Wait() *Report {
	<-h.done
	return h.report
}

// Start runs the batch in its own goroutine. The batch cannot be paused or
// queried; cancelling ctx only makes the remaining requests fail fast.
func (f *Fetcher) Start(ctx context.Context, batch Batch, obs Observer) *Handle {
	h := &Handle{BatchID: batch.ID, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.report = f.Run(ctx, batch, obs)
	}()
	return h
}

// Run fetches every link of the batch in order and never returns an error:
// per-link failures are logged and recorded in the report.
func (f *Fetcher) Run(ctx context.Context, batch Batch, obs Observer) *Report {
	if obs == nil {
		obs = nopObserver{}
	}
	total := len(batch.Links)
	report := &Report{
		BatchID:   batch.ID,
		Folder:    batch.Folder,
		Total:     total,
		Items:     make([]Outcome, 0, total),
		StartedAt: time.Now(),
	}

	f.logger.Printf("🚀 Batch %s: fetching %d images into %q", batch.ID, total, batch.Folder)

	dir, dirErr := f.folders.Ensure(batch.Folder)
	if dirErr != nil {
		f.logger.Printf("❌ Batch %s: %v", batch.ID, dirErr)
	}
	report.Dir = dir

	for i, link := range batch.Links {
		index := i + 1
		outcome := Outcome{Index: index, URL: link}

		if dirErr != nil {
			outcome.Status = StatusFailed
			outcome.Err = &FetchError{Index: index, URL: link, Err: dirErr}
		} else {
			outcome.Path = filepath.Join(dir, FileName(index))
			f.fetchOne(ctx, &outcome)
		}

		if outcome.Err != nil {
			f.logger.Printf("❌ Error downloading image %s: %v", link, outcome.Err.Err)
		}
		report.Items = append(report.Items, outcome)
		obs.OnProgress(index, total)
	}

	report.FinishedAt = time.Now()
	f.logger.Printf("🏁 Batch %s finished in %v: %d written, %d failed",
		batch.ID, report.Duration().Round(time.Millisecond), report.Written(), report.Failed())
	return report
}

func (f *Fetcher) fetchOne(ctx context.Context, outcome *Outcome) {
	n, status, err := f.download(ctx, outcome.URL, outcome.Path)
	outcome.HTTPStatus = status
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = &FetchError{Index: outcome.Index, URL: outcome.URL, Err: err}
		return
	}
	outcome.Status = StatusWritten
	outcome.Bytes = n

	if status < 200 || status >= 300 {
		f.logger.Printf("⚠️ Image %d answered HTTP %d, body written as is: %s", outcome.Index, status, outcome.URL)
	}
}

// download reads the whole body before touching the file, so a failed
// request leaves any previous image_<n>.jpg untouched.
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, int, error) {
	resp, err := f.getter.Get(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		os.Remove(path)
		return 0, resp.StatusCode, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return int64(len(body)), resp.StatusCode, nil
}
