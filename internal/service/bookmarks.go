package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arashthr/markcentral/internal/auth/context/loggercontext"
	"github.com/arashthr/markcentral/internal/auth/context/usercontext"
	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/classifier"
	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/linkcheck"
	"github.com/arashthr/markcentral/internal/types"
	"github.com/arashthr/markcentral/internal/validations"
)

// maxImportSize caps uploaded export files at 10 MB.
const maxImportSize = 10 << 20

type Bookmarks struct {
	Collection *bookmarks.Collection
	Sessions   *bookmarks.SessionTracker
	Classifier *classifier.Engine
	Checker    *linkcheck.Checker
	Enricher   *TitleEnricher
}

// Import accepts a browser export file. The multipart form carries the file
// under "file", plus "source" and "mode" fields.
func (b *Bookmarks) Import(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Expected a multipart form with an export file",
		})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "MISSING_FILE",
			Message: "The export file is missing",
		})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "READ_FAILED",
			Message: "Could not read the export file",
		})
		return
	}

	source := bookmarks.ParseSource(r.FormValue("source"))
	mode := bookmarks.ImportMode(r.FormValue("mode"))
	if mode != bookmarks.ImportModeReplace && mode != bookmarks.ImportModeMerge {
		mode = bookmarks.ImportModeMerge
	}

	imported, err := bookmarks.Parse(string(content), source)
	if err != nil {
		if errors.Is(err, errors.ErrUnparsableExport) {
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Code:    "UNPARSABLE_EXPORT",
				Message: "The file does not look like a bookmark export",
			})
			return
		}
		logger.Errorw("import parse failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "IMPORT_FAILED",
			Message: "Could not import the file",
		})
		return
	}

	collection, err := b.Collection.Import(r.Context(), user.ID, imported, mode)
	if err != nil {
		logger.Errorw("import apply failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "IMPORT_FAILED",
			Message: "Could not store the imported bookmarks",
		})
		return
	}

	if mode == bookmarks.ImportModeReplace {
		b.Sessions.RecordMaster(user.ID, source, len(imported))
	} else {
		b.Sessions.RecordMerge(user.ID, source, len(imported))
	}
	logger.Infow("import complete", "source", source, "mode", mode, "imported", len(imported), "total", len(collection))

	writeResponse(w, struct {
		Imported int                  `json:"imported"`
		Total    int                  `json:"total"`
		Mode     bookmarks.ImportMode `json:"mode"`
	}{Imported: len(imported), Total: len(collection), Mode: mode})
}

func (b *Bookmarks) List(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		loggercontext.Logger(r.Context()).Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "Could not load the collection",
		})
		return
	}
	writeResponse(w, collection)
}

func (b *Bookmarks) Delete(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	collection, err := b.Collection.Delete(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "No bookmark with that id",
			})
			return
		}
		loggercontext.Logger(r.Context()).Errorw("delete bookmark", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "DELETE_FAILED",
			Message: "Could not delete the bookmark",
		})
		return
	}
	writeResponse(w, collection)
}

func (b *Bookmarks) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	collection, err := b.Collection.ToggleFavorite(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "No bookmark with that id",
			})
			return
		}
		loggercontext.Logger(r.Context()).Errorw("toggle favorite", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "UPDATE_FAILED",
			Message: "Could not update the bookmark",
		})
		return
	}
	writeResponse(w, collection)
}

func (b *Bookmarks) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	id := types.BookmarkId(chi.URLParam(r, "id"))

	var data struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.Title == "" {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "A non-empty title is required",
		})
		return
	}

	collection, err := b.Collection.UpdateTitle(r.Context(), user.ID, id, data.Title)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "No bookmark with that id",
			})
			return
		}
		loggercontext.Logger(r.Context()).Errorw("update title", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "UPDATE_FAILED",
			Message: "Could not update the bookmark",
		})
		return
	}
	writeResponse(w, collection)
}

func (b *Bookmarks) Duplicates(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		loggercontext.Logger(r.Context()).Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "Could not load the collection",
		})
		return
	}
	groups := bookmarks.DuplicateGroups(collection)
	if groups == nil {
		groups = [][]bookmarks.Bookmark{}
	}
	writeResponse(w, groups)
}

// Export streams the collection as JSON or a Netscape HTML file, selected by
// the "format" query parameter.
func (b *Bookmarks) Export(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "EXPORT_FAILED",
			Message: "Could not load the collection",
		})
		return
	}

	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.html"`)
		fmt.Fprint(w, bookmarks.ExportNetscape(collection))
	case "", "json":
		data, err := bookmarks.ExportJSON(collection)
		if err != nil {
			logger.Errorw("export bookmarks", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
				Code:    "EXPORT_FAILED",
				Message: "Could not export the collection",
			})
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.json"`)
		w.Write(data)
	default:
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_FORMAT",
			Message: "format must be json or html",
		})
	}
}

// Classify runs the categorization engine over the whole collection and
// stores the updated snapshot.
func (b *Bookmarks) Classify(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "CLASSIFY_FAILED",
			Message: "Could not load the collection",
		})
		return
	}

	classified, summary, err := b.Classifier.Classify(r.Context(), collection)
	if err != nil {
		if errors.Is(err, errors.ErrMissingAPIKey) {
			writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{
				Code:    "MISSING_API_KEY",
				Message: "Classification is not configured",
			})
			return
		}
		logger.Errorw("classification run failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "CLASSIFY_FAILED",
			Message: "The classification run failed",
		})
		return
	}

	if err := b.Collection.Replace(r.Context(), user.ID, classified); err != nil {
		logger.Errorw("storing classified collection", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "CLASSIFY_FAILED",
			Message: "Could not store the classified collection",
		})
		return
	}
	logger.Infow("classification complete",
		"submitted", summary.Submitted, "classified", summary.Classified,
		"flagged", summary.Flagged, "failedBatches", summary.Failed)
	writeResponse(w, summary)
}

// CheckLinks probes every unchecked bookmark batch by batch and applies the
// results as each batch completes, so a timed-out request still leaves the
// finished batches recorded.
func (b *Bookmarks) CheckLinks(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "LINKCHECK_FAILED",
			Message: "Could not load the collection",
		})
		return
	}

	runner := linkcheck.NewRunner(b.Checker, collection, 0)
	var all []linkcheck.Result
	for {
		results, ok := runner.Next(r.Context())
		if !ok {
			break
		}
		reports := make([]bookmarks.LinkReport, 0, len(results))
		for _, res := range results {
			reports = append(reports, res.Report())
		}
		if _, err := b.Collection.ApplyLinkReports(r.Context(), user.ID, reports); err != nil {
			logger.Errorw("applying link reports", "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
				Code:    "LINKCHECK_FAILED",
				Message: "Could not store the link check results",
			})
			return
		}
		all = append(all, results...)
	}

	counts := map[bookmarks.LinkStatus]int{}
	for _, res := range all {
		counts[res.Status]++
	}
	logger.Infow("link check complete", "checked", len(all),
		"ok", counts[bookmarks.LinkStatusOk], "suspect", counts[bookmarks.LinkStatusSuspect])

	if all == nil {
		all = []linkcheck.Result{}
	}
	writeResponse(w, struct {
		Checked int                `json:"checked"`
		Results []linkcheck.Result `json:"results"`
	}{Checked: len(all), Results: all})
}

func (b *Bookmarks) ResetLinkStatus(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	collection, err := b.Collection.ResetLinkStatus(r.Context(), user.ID)
	if err != nil {
		loggercontext.Logger(r.Context()).Errorw("reset link status", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "RESET_FAILED",
			Message: "Could not reset the link statuses",
		})
		return
	}
	writeResponse(w, collection)
}

func (b *Bookmarks) SmartCollections(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	var out []entry
	for _, sc := range bookmarks.SmartCollections() {
		out = append(out, entry{ID: sc.ID, Name: sc.Name, Description: sc.Description})
	}
	writeResponse(w, out)
}

func (b *Bookmarks) SmartCollection(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	sc, ok := bookmarks.SmartCollectionByID(chi.URLParam(r, "id"))
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "No smart collection with that id",
		})
		return
	}

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		loggercontext.Logger(r.Context()).Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "Could not load the collection",
		})
		return
	}
	matched := bookmarks.FilterSmart(collection, sc, time.Now())
	if matched == nil {
		matched = []bookmarks.Bookmark{}
	}
	writeResponse(w, matched)
}

func (b *Bookmarks) ImportSession(w http.ResponseWriter, r *http.Request) {
	user := usercontext.User(r.Context())
	writeResponse(w, b.Sessions.Summary(user.ID))
}

// EnrichTitles fetches readable titles for bookmarks still carrying the
// import placeholder.
func (b *Bookmarks) EnrichTitles(w http.ResponseWriter, r *http.Request) {
	logger := loggercontext.Logger(r.Context())
	user := usercontext.User(r.Context())

	if b.Enricher == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{
			Code:    "NOT_CONFIGURED",
			Message: "Title enrichment is not configured",
		})
		return
	}

	collection, err := b.Collection.Get(r.Context(), user.ID)
	if err != nil {
		logger.Errorw("fetching bookmarks", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "ENRICH_FAILED",
			Message: "Could not load the collection",
		})
		return
	}

	updated := 0
	for i := range collection {
		if collection[i].Title != bookmarks.UntitledPlaceholder {
			continue
		}
		title, err := b.Enricher.Title(r.Context(), collection[i].URL)
		if err != nil {
			logger.Debugw("title enrichment failed", "host", validations.ExtractHostname(collection[i].URL), "error", err)
			continue
		}
		if _, err := b.Collection.UpdateTitle(r.Context(), user.ID, collection[i].ID, title); err != nil {
			logger.Errorw("storing enriched title", "error", err)
			continue
		}
		updated++
	}
	writeResponse(w, struct {
		Updated int `json:"updated"`
	}{Updated: updated})
}
