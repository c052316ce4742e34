package bookmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/store"
	"github.com/arashthr/markcentral/internal/types"
)

// LinkReport carries one link-check outcome back into the collection. It
// mirrors the checker's result without importing it, keeping this package
// free of transport concerns.
type LinkReport struct {
	ID      types.BookmarkId
	Status  LinkStatus
	Code    *int
	Message *string
}

// Collection owns the per-user bookmark snapshot. Every mutation loads the
// current snapshot, derives a new one and swaps the whole blob, so readers
// never observe a partially-applied change.
type Collection struct {
	Store store.Store
}

func collectionKey(userId types.UserId) string {
	return "collection:" + string(userId)
}

// Get returns the user's collection, empty when nothing was imported yet.
func (c *Collection) Get(ctx context.Context, userId types.UserId) ([]Bookmark, error) {
	data, err := c.Store.Get(ctx, collectionKey(userId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []Bookmark{}, nil
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	var collection []Bookmark
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return collection, nil
}

// Replace swaps the entire collection for the given snapshot.
func (c *Collection) Replace(ctx context.Context, userId types.UserId, collection []Bookmark) error {
	if collection == nil {
		collection = []Bookmark{}
	}
	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := c.Store.Set(ctx, collectionKey(userId), data); err != nil {
		return fmt.Errorf("store collection: %w", err)
	}
	return nil
}

func (c *Collection) mutate(ctx context.Context, userId types.UserId, fn func([]Bookmark) ([]Bookmark, error)) ([]Bookmark, error) {
	current, err := c.Get(ctx, userId)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := c.Replace(ctx, userId, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Import applies an imported batch under the given mode and returns the new
// snapshot.
func (c *Collection) Import(ctx context.Context, userId types.UserId, incoming []Bookmark, mode ImportMode) ([]Bookmark, error) {
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		return ApplyImport(existing, incoming, mode), nil
	})
}

// Delete removes one bookmark by id. Deleting an unknown id is ErrNotFound.
func (c *Collection) Delete(ctx context.Context, userId types.UserId, id types.BookmarkId) ([]Bookmark, error) {
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		next := make([]Bookmark, 0, len(existing))
		found := false
		for _, b := range existing {
			if b.ID == id {
				found = true
				continue
			}
			next = append(next, b)
		}
		if !found {
			return nil, errors.ErrNotFound
		}
		return next, nil
	})
}

// ToggleFavorite flips the favorite flag of one bookmark.
func (c *Collection) ToggleFavorite(ctx context.Context, userId types.UserId, id types.BookmarkId) ([]Bookmark, error) {
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		found := false
		for i := range existing {
			if existing[i].ID == id {
				existing[i].IsFavorite = !existing[i].IsFavorite
				found = true
				break
			}
		}
		if !found {
			return nil, errors.ErrNotFound
		}
		return existing, nil
	})
}

// UpdateTitle sets a bookmark's title and bumps its update time.
func (c *Collection) UpdateTitle(ctx context.Context, userId types.UserId, id types.BookmarkId, title string) ([]Bookmark, error) {
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		found := false
		for i := range existing {
			if existing[i].ID == id {
				existing[i].Title = title
				existing[i].LastUpdatedAt = time.Now()
				found = true
				break
			}
		}
		if !found {
			return nil, errors.ErrNotFound
		}
		return existing, nil
	})
}

// ApplyLinkReports merges one batch of link-check results into the
// collection. Results for unknown ids are ignored.
func (c *Collection) ApplyLinkReports(ctx context.Context, userId types.UserId, reports []LinkReport) ([]Bookmark, error) {
	byId := make(map[types.BookmarkId]LinkReport, len(reports))
	for _, r := range reports {
		byId[r.ID] = r
	}
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		for i := range existing {
			r, ok := byId[existing[i].ID]
			if !ok {
				continue
			}
			existing[i].LinkStatus = r.Status
			existing[i].LinkStatusCode = r.Code
			existing[i].LinkStatusMessage = r.Message
		}
		return existing, nil
	})
}

// ResetLinkStatus returns every bookmark to the unknown state so a fresh
// link-check run covers the full collection again.
func (c *Collection) ResetLinkStatus(ctx context.Context, userId types.UserId) ([]Bookmark, error) {
	return c.mutate(ctx, userId, func(existing []Bookmark) ([]Bookmark, error) {
		for i := range existing {
			existing[i].LinkStatus = LinkStatusUnknown
			existing[i].LinkStatusCode = nil
			existing[i].LinkStatusMessage = nil
		}
		return existing, nil
	})
}
