package bookmarks

import "strings"

// ImportMode selects how an imported batch combines with the existing
// collection.
type ImportMode string

const (
	// ImportModeReplace discards the existing collection. Destructive; any
	// confirmation step is the caller's responsibility.
	ImportModeReplace ImportMode = "replace"
	// ImportModeMerge appends incoming bookmarks whose URL is not already
	// present, by exact string match.
	ImportModeMerge ImportMode = "merge"
)

// ApplyImport combines an imported batch with an existing collection. IDs are
// never regenerated; merge is a pure set-append keyed on URL.
func ApplyImport(existing, incoming []Bookmark, mode ImportMode) []Bookmark {
	if mode == ImportModeReplace {
		out := make([]Bookmark, len(incoming))
		copy(out, incoming)
		return out
	}

	seen := make(map[string]bool, len(existing))
	for _, b := range existing {
		seen[b.URL] = true
	}

	out := make([]Bookmark, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	for _, b := range incoming {
		if seen[b.URL] {
			continue
		}
		out = append(out, b)
	}
	return out
}

// NormalizeURL strips a single trailing slash. Used by duplicate detection
// only: import-time merge stays on exact matches on purpose, so reporting is
// more aggressive than filtering.
func NormalizeURL(url string) string {
	return strings.TrimSuffix(url, "/")
}

// DuplicateGroups groups bookmarks by normalized URL and returns every group
// with more than one member, for manual cleanup.
func DuplicateGroups(collection []Bookmark) [][]Bookmark {
	byURL := make(map[string][]Bookmark)
	var order []string
	for _, b := range collection {
		norm := NormalizeURL(b.URL)
		if _, ok := byURL[norm]; !ok {
			order = append(order, norm)
		}
		byURL[norm] = append(byURL[norm], b)
	}

	var groups [][]Bookmark
	for _, norm := range order {
		if group := byURL[norm]; len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}
