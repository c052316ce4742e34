package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/retry"
	"github.com/arashthr/markcentral/internal/types"
)

type fakeGenerator struct {
	calls    int
	generate func(call int, prompt string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	return f.generate(f.calls, prompt)
}

func newTestEngine(gen TextGenerator) *Engine {
	return &Engine{
		Gen:       gen,
		BatchSize: 3,
		Limiter:   rate.NewLimiter(rate.Inf, 1),
		Retry: retry.Policy{
			MaxAttempts: 3,
			Retryable:   func(error) bool { return true },
		},
	}
}

func pendingBookmark(id string) bookmarks.Bookmark {
	return bookmarks.Bookmark{
		ID:    types.BookmarkId(id),
		Title: "t-" + id,
		URL:   "https://" + id + ".example.com",
	}
}

// echoCategories answers every prompt by assigning the given category to each
// id it finds in the prompt payload.
func echoCategories(category string) func(int, string) (string, error) {
	return func(_ int, prompt string) (string, error) {
		start := strings.Index(prompt, "[{")
		end := strings.Index(prompt, "}]")
		if start < 0 || end < 0 {
			return "", fmt.Errorf("prompt carries no batch payload")
		}
		var entries []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(prompt[start:end+2]), &entries); err != nil {
			return "", err
		}
		var results []modelResult
		for _, e := range entries {
			results = append(results, modelResult{ID: e.ID, Category: category})
		}
		out, err := json.Marshal(modelResponse{Results: results})
		return string(out), err
	}
}

func TestClassifyAssignsCategories(t *testing.T) {
	gen := &fakeGenerator{generate: echoCategories("Development & Tech")}
	engine := newTestEngine(gen)

	collection := []bookmarks.Bookmark{
		pendingBookmark("a"),
		pendingBookmark("b"),
		pendingBookmark("c"),
		pendingBookmark("d"),
	}
	got, summary, err := engine.Classify(context.Background(), collection)
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	for i := range got {
		if got[i].Category == nil || *got[i].Category != bookmarks.CategoryDevTech {
			t.Errorf("bookmark %s category = %v, want Development & Tech", got[i].ID, got[i].Category)
		}
		if got[i].InReviewFolder() {
			t.Errorf("classified bookmark %s was flagged for review", got[i].ID)
		}
	}
	if summary.Submitted != 4 || summary.Classified != 4 || summary.Flagged != 0 {
		t.Errorf("summary = %+v, want 4 submitted, 4 classified, 0 flagged", summary)
	}
	if summary.Batches != 2 {
		t.Errorf("summary.Batches = %d, want 2 (batch size 3 over 4 bookmarks)", summary.Batches)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

func TestClassifySkipsAlreadyCategorized(t *testing.T) {
	gen := &fakeGenerator{generate: echoCategories("News & Media")}
	engine := newTestEngine(gen)

	category := bookmarks.CategoryDesign
	done := pendingBookmark("done")
	done.Category = &category

	collection := []bookmarks.Bookmark{done, pendingBookmark("todo")}
	_, summary, err := engine.Classify(context.Background(), collection)
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if summary.Submitted != 1 {
		t.Errorf("summary.Submitted = %d, want 1", summary.Submitted)
	}
	if *collection[0].Category != bookmarks.CategoryDesign {
		t.Error("already categorized bookmark was resubmitted")
	}
}

func TestClassifyResubmitsReviewFolder(t *testing.T) {
	gen := &fakeGenerator{generate: echoCategories("News & Media")}
	engine := newTestEngine(gen)

	category := bookmarks.CategoryOther
	parked := pendingBookmark("parked")
	parked.Category = &category
	parked.FolderPath = []string{bookmarks.ReviewFolder, "Misc"}

	collection := []bookmarks.Bookmark{parked}
	got, summary, err := engine.Classify(context.Background(), collection)
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if summary.Submitted != 1 || summary.Classified != 1 {
		t.Errorf("summary = %+v, want the parked bookmark resubmitted", summary)
	}
	if *got[0].Category != bookmarks.CategoryNews {
		t.Errorf("category = %v, want reclassified value", *got[0].Category)
	}
}

func TestClassifyFailedBatchIsSkipped(t *testing.T) {
	assign := echoCategories("Education & Learning")
	gen := &fakeGenerator{
		generate: func(call int, prompt string) (string, error) {
			if call == 1 {
				return "", fmt.Errorf("model unavailable")
			}
			return assign(call, prompt)
		},
	}
	engine := newTestEngine(gen)
	engine.Retry = retry.Policy{MaxAttempts: 1}
	engine.BatchSize = 1

	collection := []bookmarks.Bookmark{pendingBookmark("a"), pendingBookmark("b")}
	got, summary, err := engine.Classify(context.Background(), collection)
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary.Failed = %d, want 1", summary.Failed)
	}
	if got[0].Category != nil {
		t.Error("bookmark from the failed batch should stay uncategorized")
	}
	if !got[0].InReviewFolder() {
		t.Error("bookmark from the failed batch should be flagged for review")
	}
	if got[1].Category == nil || *got[1].Category != bookmarks.CategoryEducation {
		t.Error("the run should continue past a failed batch")
	}
}

func TestClassifyInvalidCategoryFlagsForReview(t *testing.T) {
	gen := &fakeGenerator{
		generate: func(_ int, _ string) (string, error) {
			return `{"results":[{"id":"a","category":"Cooking"}]}`, nil
		},
	}
	engine := newTestEngine(gen)

	got, summary, err := engine.Classify(context.Background(), []bookmarks.Bookmark{pendingBookmark("a")})
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if got[0].Category != nil {
		t.Errorf("category = %v, want nil for an out-of-vocabulary label", *got[0].Category)
	}
	if !got[0].InReviewFolder() {
		t.Error("bookmark with an invalid label should be flagged for review")
	}
	if summary.Classified != 0 || summary.Flagged != 1 {
		t.Errorf("summary = %+v, want 0 classified, 1 flagged", summary)
	}
}

func TestClassifyReviewSentinelNotDuplicated(t *testing.T) {
	gen := &fakeGenerator{
		generate: func(_ int, _ string) (string, error) {
			return `{"results":[]}`, nil
		},
	}
	engine := newTestEngine(gen)

	parked := pendingBookmark("a")
	parked.FolderPath = []string{bookmarks.ReviewFolder, "Misc"}

	got, _, err := engine.Classify(context.Background(), []bookmarks.Bookmark{parked})
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	count := 0
	for _, segment := range got[0].FolderPath {
		if segment == bookmarks.ReviewFolder {
			count++
		}
	}
	if count != 1 {
		t.Errorf("review sentinel appears %d times in %v, want exactly once", count, got[0].FolderPath)
	}
}

func TestClassifyRetriesQuotaErrors(t *testing.T) {
	assign := echoCategories("Other")
	gen := &fakeGenerator{
		generate: func(call int, prompt string) (string, error) {
			if call < 3 {
				return "", fmt.Errorf("googleapi: Error 429: RESOURCE_EXHAUSTED")
			}
			return assign(call, prompt)
		},
	}
	engine := newTestEngine(gen)

	got, summary, err := engine.Classify(context.Background(), []bookmarks.Bookmark{pendingBookmark("a")})
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}
	if got[0].Category == nil || summary.Classified != 1 {
		t.Error("classification should succeed after quota retries")
	}
}

func TestClassifyWithoutGenerator(t *testing.T) {
	engine := newTestEngine(nil)
	_, _, err := engine.Classify(context.Background(), []bookmarks.Bookmark{pendingBookmark("a")})
	if !errors.Is(err, errors.ErrMissingAPIKey) {
		t.Fatalf("Classify() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestClassifyHonorsContextCancel(t *testing.T) {
	gen := &fakeGenerator{
		generate: func(_ int, _ string) (string, error) {
			return "", fmt.Errorf("429 slow down")
		},
	}
	engine := newTestEngine(gen)
	engine.Retry = defaultRetryPolicy()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := engine.Classify(ctx, []bookmarks.Bookmark{pendingBookmark("a")})
	if err == nil {
		t.Fatal("Classify() expected a context error")
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("Error 429: too many requests"), true},
		{fmt.Errorf("rpc error: RESOURCE_EXHAUSTED"), true},
		{fmt.Errorf("connection reset"), false},
	}
	for _, tt := range tests {
		if got := IsQuotaError(tt.err); got != tt.want {
			t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestParseResponseStripsFences(t *testing.T) {
	text := "```json\n{\"results\":[{\"id\":\"a\",\"category\":\"Other\"}]}\n```"
	got, err := parseResponse(text)
	if err != nil {
		t.Fatalf("parseResponse() unexpected error: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].ID != "a" {
		t.Fatalf("parseResponse() = %+v, want one result", got)
	}
}
