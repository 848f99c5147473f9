package api

import (
	"io"
	"net/http"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
)

func (s *Server) handleListSubtitles(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	subs, err := s.subtitleRepo.ListByMediaItem(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"count": len(subs), "subtitles": subs})
}

func subtitleMIME(format models.SubtitleFormat) string {
	switch format {
	case models.SubtitleVTT:
		return "text/vtt"
	case models.SubtitleASS:
		return "text/x-ssa"
	default:
		return "application/x-subrip"
	}
}

func (s *Server) handleServeSubtitle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	sub, err := s.subtitleRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	item, err := s.mediaRepo.GetByID(sub.MediaItemID)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	if item.SourceID == nil {
		httputil.WriteError(w, http.StatusNotFound, apperr.NotFound, "subtitle's media item has no source")
		return
	}
	source, err := s.sourceRepo.GetByID(*item.SourceID)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	client, err := s.pool.Get(r.Context(), source)
	if err != nil {
		httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Upstream, "connect to subtitle source", err))
		return
	}
	f, err := client.Open(r.Context(), sub.FilePath)
	if err != nil {
		httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Upstream, "open subtitle file", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", subtitleMIME(sub.Format))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
