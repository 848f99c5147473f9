// Package watch exposes the per-user playback-progress surface spec.md
// §4.7 and §6 name, grounded in the teacher's watchhistory handler package
// (chi.Router, auth.UserFromContext) but rebuilt against the shared
// repository/models packages instead of its own private store.
package watch

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"streamvault/internal/apperr"
	"streamvault/internal/auth"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
	"streamvault/internal/repository"
)

type Handler struct {
	watchRepo *repository.WatchRepository
	mediaRepo *repository.MediaRepository
}

func NewHandler(watchRepo *repository.WatchRepository, mediaRepo *repository.MediaRepository) *Handler {
	return &Handler{watchRepo: watchRepo, mediaRepo: mediaRepo}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/progress", h.updateProgress) // mounted at /metadata/watch
	r.Get("/progress/{id}", h.getProgress)
	r.Post("/mark-watched/{id}", h.markWatched)
	r.Delete("/mark-unwatched/{id}", h.markUnwatched)
	r.Get("/continue-watching", h.continueWatching)
	r.Get("/recently-watched", h.recentlyWatched)
	r.Get("/history", h.history)
	r.Get("/stats", h.stats)
	r.Post("/reset/{id}", h.reset)
	return r
}

type progressRequest struct {
	MediaItemID int64   `json:"mediaItemId"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// updateProgress implements spec.md §4.7's update(user, media, current, total).
func (h *Handler) updateProgress(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	var req progressRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid request body")
		return
	}

	progress, completed := models.ComputeProgress(req.CurrentTime, req.Duration)
	record, err := h.watchRepo.Upsert(u.UserID, req.MediaItemID, req.CurrentTime, req.Duration, progress, completed)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	mediaID, err := idParam(r)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	record, err := h.watchRepo.Get(u.UserID, mediaID)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	if record == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]float64{"current": 0, "duration": 0, "progress": 0})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// markWatched implements spec.md §4.7's mark_watched(user, media): sets
// current = total = media.duration.
func (h *Handler) markWatched(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	mediaID, err := idParam(r)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}

	item, err := h.mediaRepo.GetByID(mediaID)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	duration := 0.0
	if item.DurationSeconds != nil {
		duration = *item.DurationSeconds
	}

	record, err := h.watchRepo.Upsert(u.UserID, mediaID, duration, duration, 1, true)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) markUnwatched(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	mediaID, err := idParam(r)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	if err := h.watchRepo.Delete(u.UserID, mediaID); err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reset zeroes a record's progress without deleting its history row.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	mediaID, err := idParam(r)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	existing, err := h.watchRepo.Get(u.UserID, mediaID)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	total := 0.0
	if existing != nil {
		total = existing.TotalSeconds
	}
	record, err := h.watchRepo.Upsert(u.UserID, mediaID, 0, total, 0, false)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) continueWatching(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	records, err := h.watchRepo.ContinueWatching(u.UserID, limitParam(r, 20))
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"count": len(records), "items": records})
}

func (h *Handler) recentlyWatched(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	records, err := h.watchRepo.RecentlyWatched(u.UserID, limitParam(r, 20))
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"count": len(records), "items": records})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	limit := limitParam(r, 50)
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	records, err := h.watchRepo.History(u.UserID, limit, offset)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"count": len(records), "items": records})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	stats, err := h.watchRepo.Stats(u.UserID)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.InvalidInput, "invalid id")
	}
	return id, nil
}

func limitParam(r *http.Request, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		return v
	}
	return def
}
