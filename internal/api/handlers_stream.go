package api

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/probe"
	"streamvault/internal/transcoder"
)

func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid media id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleStreamInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	if item.SourceKind != "local" && item.SourceKind != "" {
		// Non-local sources can't be probed without a local file handle;
		// report what the indexed record already knows instead of failing.
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"duration":     item.DurationSeconds,
			"size":         item.FileSize,
			"qualityLabel": item.QualityLabel,
		})
		return
	}
	result, err := probe.Probe(r.Context(), s.cfg.FFprobePath, item.FilePath)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleStreamQualities(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	height := 1080
	if item.QualityLabel != "" {
		if r2, err := probe.Probe(r.Context(), s.cfg.FFprobePath, item.FilePath); err == nil && r2.Video != nil {
			height = r2.Video.Height
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"ladder": probe.Ladder(height)})
}

func (s *Server) handleStreamDirect(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	if err := s.streamer.ServeDirect(r.Context(), w, r, item); err != nil {
		httputil.WriteErr(w, s.logger, err)
	}
}

func (s *Server) handleStreamTranscode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = transcoder.DefaultProfile
	}
	if err := s.streamer.ServeTranscoded(r.Context(), w, r, item, quality); err != nil {
		httputil.WriteErr(w, s.logger, err)
	}
}

func (s *Server) handlePretranscode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	var req struct {
		Quality string `json:"quality"`
	}
	httputil.ReadJSON(r, &req)
	if req.Quality == "" {
		req.Quality = transcoder.DefaultProfile
	}

	go func() {
		if _, err := s.transcode.TranscodeQuality(context.Background(), item.FilePath, item.ID, req.Quality); err != nil {
			s.logger.Warn("pretranscode failed", "media_item_id", item.ID, "quality", req.Quality, "err", err)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "transcoding"})
}

func (s *Server) handleHLSManifest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	if err := s.streamer.ServeHLSManifest(r.Context(), w, item); err != nil {
		httputil.WriteErr(w, s.logger, err)
	}
}

func (s *Server) handleHLSSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	segment := filepath.Base(chi.URLParam(r, "segment"))
	if err := s.streamer.ServeHLSSegment(w, item, segment); err != nil {
		httputil.WriteErr(w, s.logger, err)
	}
}
