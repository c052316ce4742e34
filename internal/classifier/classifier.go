// Package classifier assigns categories to bookmarks in small batches
// through a text generation model. Quota errors are retried with a growing
// backoff; a batch that still fails is skipped so one bad batch never stalls
// the run.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/retry"
	"github.com/arashthr/markcentral/internal/types"
)

const (
	defaultBatchSize  = 3
	defaultBatchDelay = 4 * time.Second
	maxAttempts       = 3
	quotaBackoffStep  = 10 * time.Second
	plainBackoff      = 2 * time.Second
)

// TextGenerator produces one model completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine drives batched classification over a collection snapshot.
type Engine struct {
	Gen       TextGenerator
	BatchSize int
	// Limiter paces batch submissions. Tests inject a permissive one.
	Limiter *rate.Limiter
	Retry   retry.Policy
	Logger  *zap.SugaredLogger
}

func NewEngine(gen TextGenerator, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		Gen:       gen,
		BatchSize: defaultBatchSize,
		Limiter:   rate.NewLimiter(rate.Every(defaultBatchDelay), 1),
		Retry:     defaultRetryPolicy(),
		Logger:    logger,
	}
}

func defaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		Retryable:   func(error) bool { return true },
		Backoff: func(attempt int, err error) time.Duration {
			if IsQuotaError(err) {
				return time.Duration(attempt) * quotaBackoffStep
			}
			return plainBackoff
		},
	}
}

// IsQuotaError reports whether err looks like a rate or quota rejection from
// the model API.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// Summary reports what one classification run did.
type Summary struct {
	Submitted  int `json:"submitted"`
	Classified int `json:"classified"`
	Flagged    int `json:"flagged"`
	Batches    int `json:"batches"`
	Failed     int `json:"failedBatches"`
}

type promptEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type modelResult struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

type modelResponse struct {
	Results []modelResult `json:"results"`
}

// Classify assigns a category to every bookmark that needs one and prepends
// the review folder to those that still have none when the run completes.
// The input snapshot is modified in place and returned.
func (e *Engine) Classify(ctx context.Context, collection []bookmarks.Bookmark) ([]bookmarks.Bookmark, Summary, error) {
	var summary Summary
	if e.Gen == nil {
		return collection, summary, errors.ErrMissingAPIKey
	}

	byId := make(map[types.BookmarkId]*bookmarks.Bookmark)
	var pending []*bookmarks.Bookmark
	for i := range collection {
		if collection[i].NeedsClassification() {
			pending = append(pending, &collection[i])
			byId[collection[i].ID] = &collection[i]
		}
	}
	summary.Submitted = len(pending)

	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		summary.Batches++

		if e.Limiter != nil {
			if err := e.Limiter.Wait(ctx); err != nil {
				return collection, summary, fmt.Errorf("pacing classification batches: %w", err)
			}
		}

		results, err := e.classifyBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return collection, summary, ctx.Err()
			}
			summary.Failed++
			if e.Logger != nil {
				e.Logger.Warnw("Classification batch failed, skipping", "batch", summary.Batches, "size", len(batch), "error", err)
			}
			continue
		}

		for _, r := range results {
			b, ok := byId[types.BookmarkId(r.ID)]
			if !ok {
				continue
			}
			category := bookmarks.Category(r.Category)
			if !bookmarks.IsValidCategory(category) {
				continue
			}
			b.Category = &category
			summary.Classified++
		}
	}

	for _, b := range pending {
		if b.Category == nil && !b.InReviewFolder() {
			b.FolderPath = append([]string{bookmarks.ReviewFolder}, b.FolderPath...)
			summary.Flagged++
		}
	}
	return collection, summary, nil
}

func (e *Engine) classifyBatch(ctx context.Context, batch []*bookmarks.Bookmark) ([]modelResult, error) {
	prompt, err := buildPrompt(batch)
	if err != nil {
		return nil, err
	}

	var text string
	err = e.Retry.Do(ctx, func() error {
		var genErr error
		text, genErr = e.Gen.Generate(ctx, prompt)
		if genErr != nil && e.Logger != nil && IsQuotaError(genErr) {
			e.Logger.Infow("Model quota hit, backing off", "error", genErr)
		}
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}

	parsed, err := parseResponse(text)
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}
	return parsed.Results, nil
}

func buildPrompt(batch []*bookmarks.Bookmark) (string, error) {
	entries := make([]promptEntry, 0, len(batch))
	for _, b := range batch {
		entries = append(entries, promptEntry{
			ID:    string(b.ID),
			Title: b.Title,
			URL:   b.URL,
		})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode classification batch: %w", err)
	}

	var vocab []string
	for _, c := range bookmarks.Categories() {
		vocab = append(vocab, string(c))
	}

	var sb strings.Builder
	sb.WriteString("You categorize browser bookmarks.\n\n")
	sb.WriteString("Assign each bookmark exactly one category from this list:\n")
	sb.WriteString(strings.Join(vocab, "\n"))
	sb.WriteString("\n\nBookmarks:\n")
	sb.Write(payload)
	sb.WriteString("\n\nRespond with JSON only, in the form:\n")
	sb.WriteString(`{"results":[{"id":"...","category":"..."}]}`)
	sb.WriteString("\nUse the id values exactly as given. Do not invent categories.")
	return sb.String(), nil
}

func parseResponse(text string) (*modelResponse, error) {
	// Models occasionally wrap JSON in a markdown fence despite the
	// instructions.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out modelResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &out, nil
}
