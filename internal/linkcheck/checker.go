// Package linkcheck probes bookmarked URLs for liveness. Work is pulled in
// batches through a Runner so a caller can stop between batches without
// abandoning results already gathered.
package linkcheck

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/types"
)

const (
	defaultBatchSize = 5
	defaultTimeout   = 5 * time.Second
)

// Result is the outcome of probing one bookmark.
type Result struct {
	ID       types.BookmarkId     `json:"id"`
	URL      string               `json:"url"`
	Status   bookmarks.LinkStatus `json:"status"`
	HTTPCode *int                 `json:"httpCode,omitempty"`
	Message  *string              `json:"message,omitempty"`
}

// Report converts the result into the shape the collection service applies.
func (r Result) Report() bookmarks.LinkReport {
	return bookmarks.LinkReport{
		ID:      r.ID,
		Status:  r.Status,
		Code:    r.HTTPCode,
		Message: r.Message,
	}
}

// Checker probes individual URLs.
type Checker struct {
	Client  *http.Client
	Timeout time.Duration
	Logger  *zap.SugaredLogger
}

func NewChecker(logger *zap.SugaredLogger) *Checker {
	return &Checker{
		Client:  &http.Client{},
		Timeout: defaultTimeout,
		Logger:  logger,
	}
}

// Check probes one bookmark with a HEAD request. Any transport failure marks
// the link suspect rather than dead: a refused connection today is not proof
// the page is gone.
func (c *Checker) Check(ctx context.Context, b *bookmarks.Bookmark) Result {
	result := Result{ID: b.ID, URL: b.URL}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.URL, nil)
	if err != nil {
		msg := err.Error()
		result.Status = bookmarks.LinkStatusSuspect
		result.Message = &msg
		return result
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		msg := err.Error()
		result.Status = bookmarks.LinkStatusSuspect
		result.Message = &msg
		if c.Logger != nil {
			c.Logger.Debugw("Link probe failed", "url", b.URL, "error", err)
		}
		return result
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	result.HTTPCode = &code
	result.Status = bookmarks.LinkStatusOk
	return result
}

// Runner walks the unchecked part of a collection snapshot batch by batch.
// Next blocks while one batch is probed; Stop makes the following Next report
// completion. A Runner is not safe for concurrent Next calls.
type Runner struct {
	checker   *Checker
	batchSize int
	pending   []bookmarks.Bookmark
	pos       int

	mu      sync.Mutex
	stopped bool
}

// NewRunner selects the bookmarks still in the unknown state and prepares a
// batched run over them.
func NewRunner(checker *Checker, collection []bookmarks.Bookmark, batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	var pending []bookmarks.Bookmark
	for _, b := range collection {
		if b.LinkStatus == bookmarks.LinkStatusUnknown {
			pending = append(pending, b)
		}
	}
	return &Runner{
		checker:   checker,
		batchSize: batchSize,
		pending:   pending,
	}
}

// Remaining reports how many bookmarks have not been probed yet.
func (r *Runner) Remaining() int {
	return len(r.pending) - r.pos
}

// Stop ends the run after the batch currently in flight, if any.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func (r *Runner) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Next probes the next batch concurrently and returns its results. The
// second return is false once the run is complete or stopped.
func (r *Runner) Next(ctx context.Context) ([]Result, bool) {
	if r.isStopped() || r.pos >= len(r.pending) || ctx.Err() != nil {
		return nil, false
	}

	end := r.pos + r.batchSize
	if end > len(r.pending) {
		end = len(r.pending)
	}
	batch := r.pending[r.pos:end]
	r.pos = end

	results := make([]Result, len(batch))
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.checker.Check(ctx, &batch[i])
		}(i)
	}
	wg.Wait()
	return results, true
}
