package fetch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch is the work for one background download.
type Batch struct {
	ID     string
	Folder string
	Links  []string
}

// NewBatch creates a batch with a fresh id.
func NewBatch(folder string, links []string) Batch {
	return Batch{
		ID:     uuid.New().String(),
		Folder: folder,
		Links:  links,
	}
}

// FileName is the name of the file written for the 1-based index.
func FileName(index int) string {
	return fmt.Sprintf("image_%d.jpg", index)
}

// Status is the result of one link.
type Status int

const (
	StatusWritten Status = iota + 1
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchError records why a single link was skipped.
type FetchError struct {
	Index int
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Outcome is what happened to one link.
type Outcome struct {
	Index      int
	URL        string
	Path       string
	Bytes      int64
	HTTPStatus int
	Status     Status
	Err        *FetchError
}

// Report aggregates the outcomes of a batch. It is kept internal: the HTTP
// surface never returns it.
type Report struct {
	BatchID    string
	Folder     string
	Dir        string
	Total      int
	Items      []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Written counts files that landed on disk.
func (r *Report) Written() int {
	return r.count(StatusWritten)
}

// Failed counts skipped links.
func (r *Report) Failed() int {
	return r.count(StatusFailed)
}

// Errors returns the per-link failures in batch order.
func (r *Report) Errors() []*FetchError {
	var errs []*FetchError
	for _, item := range r.Items {
		if item.Err != nil {
			errs = append(errs, item.Err)
		}
	}
	return errs
}

// Duration is the wall time of the batch.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) count(s Status) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == s {
			n++
		}
	}
	return n
}
