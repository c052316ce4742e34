package bookmarks

import "time"

// SmartCollection is a named predicate over the collection. The set is
// closed; collections are matched by ID from the report endpoint.
type SmartCollection struct {
	ID          string
	Name        string
	Description string
	Matches     func(b *Bookmark, now time.Time) bool
}

const recentWindow = 30 * 24 * time.Hour

var smartCollections = []SmartCollection{
	{
		ID:          "recent",
		Name:        "Recently added",
		Description: "Added within the last 30 days",
		Matches: func(b *Bookmark, now time.Time) bool {
			return now.Sub(b.CreatedAt) <= recentWindow
		},
	},
	{
		ID:          "favorites",
		Name:        "Favorites",
		Description: "Marked as favorite",
		Matches: func(b *Bookmark, _ time.Time) bool {
			return b.IsFavorite
		},
	},
	{
		ID:          "uncategorized",
		Name:        "Needs review",
		Description: "No category, or parked in the review folder",
		Matches: func(b *Bookmark, _ time.Time) bool {
			return b.Category == nil || b.InReviewFolder()
		},
	},
	{
		ID:          "suspects",
		Name:        "Suspect links",
		Description: "Flagged as potentially dead",
		Matches: func(b *Bookmark, _ time.Time) bool {
			return b.LinkStatus == LinkStatusSuspect || b.LinkStatus == LinkStatusDead
		},
	},
}

// SmartCollections returns the closed set of smart collections.
func SmartCollections() []SmartCollection {
	return smartCollections
}

// SmartCollectionByID looks up a smart collection; ok is false for unknown
// ids.
func SmartCollectionByID(id string) (SmartCollection, bool) {
	for _, sc := range smartCollections {
		if sc.ID == id {
			return sc, true
		}
	}
	return SmartCollection{}, false
}

// FilterSmart returns the members of the named smart collection.
func FilterSmart(collection []Bookmark, sc SmartCollection, now time.Time) []Bookmark {
	var out []Bookmark
	for i := range collection {
		if sc.Matches(&collection[i], now) {
			out = append(out, collection[i])
		}
	}
	return out
}
