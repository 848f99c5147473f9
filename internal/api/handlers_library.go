package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
)

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.mediaRepo.ListMovies()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"count": len(movies), "movies": movies})
}

func (s *Server) handleListTvShows(w http.ResponseWriter, r *http.Request) {
	shows, err := s.tvRepo.ListShows()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"count": len(shows), "tvShows": shows})
}

// seasonView is one entry of the {seasonNumber, episodes[]} list spec.md §6
// names for GET /library/tvshow/:id.
type seasonView struct {
	SeasonNumber int               `json:"seasonNumber"`
	Episodes     []*models.Episode `json:"episodes"`
}

func (s *Server) handleGetTvShow(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid show id")
		return
	}
	show, err := s.tvRepo.GetShowByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	episodes, err := s.tvRepo.ListEpisodesByShow(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}

	bySeason := map[int][]*models.Episode{}
	for _, e := range episodes {
		bySeason[e.SeasonNumber] = append(bySeason[e.SeasonNumber], e)
	}
	seasons := make([]int, 0, len(bySeason))
	for n := range bySeason {
		seasons = append(seasons, n)
	}
	sort.Ints(seasons)

	views := make([]seasonView, 0, len(seasons))
	for _, n := range seasons {
		views = append(views, seasonView{SeasonNumber: n, Episodes: bySeason[n]})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"show":    show,
		"seasons": views,
	})
}

func (s *Server) handleNextEpisode(w http.ResponseWriter, r *http.Request) {
	s.handleNeighborEpisode(w, r, s.tvRepo.NextEpisode)
}

func (s *Server) handlePreviousEpisode(w http.ResponseWriter, r *http.Request) {
	s.handleNeighborEpisode(w, r, s.tvRepo.PreviousEpisode)
}

func (s *Server) handleNeighborEpisode(w http.ResponseWriter, r *http.Request, lookup func(*models.Episode) (*models.Episode, error)) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid episode id")
		return
	}
	current, err := s.tvRepo.GetEpisodeByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	neighbor, err := lookup(current)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	if neighbor == nil {
		httputil.WriteError(w, http.StatusNotFound, apperr.NotFound, "no neighboring episode")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, neighbor)
}

// searchResult ranks by prefix-match then rating then year, the ordering
// spec.md §6 specifies for GET /library/search.
type searchResult struct {
	*models.MediaItem
	prefixMatch bool
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": []interface{}{}})
		return
	}
	kind := models.MediaKind(r.URL.Query().Get("type"))
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.mediaRepo.Search(q)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}

	lowerQ := strings.ToLower(q)
	results := make([]searchResult, 0, len(items))
	for _, item := range items {
		if kind != "" && item.Kind != kind {
			continue
		}
		results = append(results, searchResult{
			MediaItem:   item,
			prefixMatch: strings.HasPrefix(strings.ToLower(item.Title), lowerQ),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.prefixMatch != b.prefixMatch {
			return a.prefixMatch
		}
		ar, br := 0.0, 0.0
		if a.Rating != nil {
			ar = *a.Rating
		}
		if b.Rating != nil {
			br = *b.Rating
		}
		if ar != br {
			return ar > br
		}
		ay, by := 0, 0
		if a.Year != nil {
			ay = *a.Year
		}
		if b.Year != nil {
			by = *b.Year
		}
		return ay > by
	})

	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]*models.MediaItem, len(results))
	for i, r := range results {
		out[i] = r.MediaItem
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": out})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid item id")
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path     string `json:"path"`
		SourceID *int64 `json:"sourceId"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil || req.Path == "" {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "path is required")
		return
	}

	source := &models.Source{ID: 0, Protocol: models.SourceLocal}
	if req.SourceID != nil {
		loaded, err := s.sourceRepo.GetByID(*req.SourceID)
		if err != nil {
			httputil.WriteErr(w, s.logger, err)
			return
		}
		source = loaded
	}

	if err := s.indexer.Start(context.Background(), source, req.Path); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	go s.broadcastScanProgress()

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "scan started",
		"progress": s.indexer.Progress(),
	})
}

// broadcastScanProgress pushes indexer.Progress snapshots to any connected
// /ws client until the scan reports Done, so a browser can show a live bar
// instead of polling GET /library/scan/progress.
func (s *Server) broadcastScanProgress() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		progress := s.indexer.Progress()
		s.wsHub.Broadcast("scan:progress", progress)
		if progress.Done {
			return
		}
	}
}

func (s *Server) handleScanProgress(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.indexer.Progress())
}
