package api

import (
	"net/http"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.List()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid user id")
		return
	}
	if err := s.userRepo.Delete(id); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := s.mediaRepo.ListAll()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"count": len(items), "media": items})
}

func (s *Server) handleAdminDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid media id")
		return
	}
	if s.cache != nil {
		s.cache.ClearMedia(id)
	}
	if err := s.mediaRepo.Delete(id); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminLibraryStats(w http.ResponseWriter, r *http.Request) {
	movies, err := s.mediaRepo.CountByKind(models.MediaMovie)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	shows, err := s.mediaRepo.CountByKind(models.MediaTvShow)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	episodes, err := s.mediaRepo.CountByKind(models.MediaEpisode)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"movies": movies, "tvShows": shows, "episodes": episodes,
	})
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	userCount, err := s.userRepo.Count()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	sources, err := s.sourceRepo.List()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	var cacheTotals interface{}
	if s.cache != nil {
		if totals, err := s.cache.Totals(); err == nil {
			cacheTotals = totals
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userCount":   userCount,
		"sourceCount": len(sources),
		"cache":       cacheTotals,
	})
}
