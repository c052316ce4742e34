package service

import (
	"net/http"

	"github.com/arashthr/markcentral/internal/auth/context/loggercontext"
	"github.com/arashthr/markcentral/internal/auth/context/usercontext"
	"github.com/arashthr/markcentral/internal/backup"
	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/errors"
)

type Backups struct {
	Service    *backup.Service
	Collection *bookmarks.Collection
}

// Save snapshots the current collection into the user's backup slot.
func (b *Backups) Save(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "BACKUP_FAILED",
			Message: "Could not load the collection",
		})
		return
	}

	meta, err := b.Service.Save(r.Context(), user.ID, collection)
	if err != nil {
		logger.Errorw("saving backup", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "BACKUP_FAILED",
			Message: "Could not save the backup",
		})
		return
	}
	logger.Infow("backup saved", "count", meta.Count)
	writeResponse(w, meta)
}

// Meta reports the stored snapshot without decrypting it.
func (b *Backups) Meta(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	meta, err := b.Service.Meta(r.Context(), user.ID)
	if err != nil {
		b.writeLoadError(w, r, err)
		return
	}
	writeResponse(w, meta)
}

// Restore replaces the live collection with the decrypted snapshot.
func (b *Backups) Restore(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	collection, meta, err := b.Service.Load(r.Context(), user.ID)
	if err != nil {
		b.writeLoadError(w, r, err)
		return
	}
	if err := b.Collection.Replace(r.Context(), user.ID, collection); err != nil {
		logger.Errorw("restoring backup", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "RESTORE_FAILED",
			Message: "Could not restore the collection",
		})
		return
	}
	logger.Infow("backup restored", "count", meta.Count)
	writeResponse(w, struct {
		Restored int         `json:"restored"`
		Meta     backup.Meta `json:"meta"`
	}{Restored: len(collection), Meta: meta})
}

// Delete removes the stored snapshot.
func (b *Backups) Delete(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())
	if err := b.Service.Delete(r.Context(), user.ID); err != nil {
		logger.Errorw("deleting backup", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "DELETE_FAILED",
			Message: "Could not delete the backup",
		})
		return
	}
	writeResponse(w, struct{}{})
}

func (b *Backups) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
			Code:    "NO_BACKUP",
			Message: "No backup has been saved yet",
		})
	case errors.Is(err, errors.ErrSnapshotCorrupt):
		writeErrorResponse(w, http.StatusConflict, ErrorResponse{
			Code:    "SNAPSHOT_CORRUPT",
			Message: "The stored backup cannot be decrypted",
		})
	default:
		loggercontext.Logger(r.Context()).Errorw("loading backup", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "BACKUP_FAILED",
			Message: "Could not load the backup",
		})
	}
}
