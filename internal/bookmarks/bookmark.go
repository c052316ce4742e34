// Package bookmarks holds the bookmark data model and the pure operations on
// whole collections: import normalization, merge, duplicate detection and
// export. Nothing here touches storage; the Collection service wraps these
// operations around the injected store.
package bookmarks

import (
	"time"

	"github.com/arashthr/markcentral/internal/types"
)

// Source identifies the browser or export that produced a bookmark.
type Source string

const (
	SourceChrome  Source = "chrome"
	SourceEdge    Source = "edge"
	SourceFirefox Source = "firefox"
	SourceSafari  Source = "safari"
	SourceComet   Source = "comet"
	SourceAtlas   Source = "atlas"
	SourceOther   Source = "other"
)

var knownSources = map[Source]bool{
	SourceChrome:  true,
	SourceEdge:    true,
	SourceFirefox: true,
	SourceSafari:  true,
	SourceComet:   true,
	SourceAtlas:   true,
	SourceOther:   true,
}

// ParseSource maps free-form input onto the closed source set. Anything
// unrecognized becomes SourceOther.
func ParseSource(s string) Source {
	src := Source(s)
	if knownSources[src] {
		return src
	}
	return SourceOther
}

// Category is one label from the fixed classification vocabulary.
type Category string

const (
	CategoryDevTech       Category = "Development & Tech"
	CategoryDesign        Category = "Design & UX"
	CategoryNews          Category = "News & Media"
	CategoryShopping      Category = "Commerce & Shopping"
	CategoryFinance       Category = "Finance & Business"
	CategoryEducation     Category = "Education & Learning"
	CategoryEntertainment Category = "Entertainment & Leisure"
	CategoryProductivity  Category = "Tools & Productivity"
	CategoryLifestyle     Category = "Travel & Lifestyle"
	CategoryOther         Category = "Other"
)

// Categories returns the closed vocabulary in presentation order.
func Categories() []Category {
	return []Category{
		CategoryDevTech,
		CategoryDesign,
		CategoryNews,
		CategoryShopping,
		CategoryFinance,
		CategoryEducation,
		CategoryEntertainment,
		CategoryProductivity,
		CategoryLifestyle,
		CategoryOther,
	}
}

func IsValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// LinkStatus is the liveness state maintained by the link checker.
type LinkStatus string

const (
	LinkStatusUnknown LinkStatus = "unknown"
	LinkStatusOk      LinkStatus = "ok"
	LinkStatusSuspect LinkStatus = "suspect"
	LinkStatusDead    LinkStatus = "dead"
)

// ReviewFolder is the sentinel folder segment marking bookmarks that need
// manual review. The classifier prepends it to everything it could not
// classify and the review queue is built from it.
const ReviewFolder = "_REVIEW"

// UntitledPlaceholder is used when an anchor has no text.
const UntitledPlaceholder = "Untitled"

type Bookmark struct {
	ID         types.BookmarkId `json:"id"`
	Title      string           `json:"title"`
	URL        string           `json:"url"`
	Category   *Category        `json:"category"`
	FolderPath []string         `json:"folderPath"`
	Source     Source           `json:"source"`
	IsFavorite bool             `json:"isFavorite"`
	CreatedAt  time.Time        `json:"createdAt"`
	// LastUpdatedAt is best effort: bulk paths (classification, link checks)
	// do not bump it.
	LastUpdatedAt     time.Time  `json:"lastUpdatedAt"`
	LinkStatus        LinkStatus `json:"linkStatus"`
	LinkStatusCode    *int       `json:"linkStatusCode,omitempty"`
	LinkStatusMessage *string    `json:"linkStatusMessage,omitempty"`
}

// NeedsClassification reports whether the classifier should submit this
// bookmark: no category yet, or parked in the review folder.
func (b *Bookmark) NeedsClassification() bool {
	if b.Category == nil {
		return true
	}
	for _, segment := range b.FolderPath {
		if segment == ReviewFolder {
			return true
		}
	}
	return false
}

// InReviewFolder reports whether the review sentinel is already present.
func (b *Bookmark) InReviewFolder() bool {
	for _, segment := range b.FolderPath {
		if segment == ReviewFolder {
			return true
		}
	}
	return false
}
