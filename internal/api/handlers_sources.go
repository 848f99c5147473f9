package api

import (
	"net/http"
	"strconv"
	"time"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
	"streamvault/internal/protocolclient"
)

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.sourceRepo.List()
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

// sourceRequest is the create/update body; Password is write-only and never
// echoed back (Source.EncryptedCredential is json:"-").
type sourceRequest struct {
	Name     string             `json:"name"`
	Protocol models.SourceKind  `json:"protocol"`
	Host     *string            `json:"host"`
	Port     *int               `json:"port"`
	Username *string            `json:"username"`
	Password string             `json:"password"`
	Domain   *string            `json:"domain"`
	BasePath *string            `json:"basePath"`
	Enabled  bool               `json:"enabled"`
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "name and protocol are required")
		return
	}
	switch req.Protocol {
	case models.SourceLocal, models.SourceFTP, models.SourceSMB, models.SourceUPnP:
	default:
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "unknown protocol")
		return
	}

	source := &models.Source{
		Name: req.Name, Protocol: req.Protocol, Host: req.Host, Port: req.Port,
		Username: req.Username, Domain: req.Domain, BasePath: req.BasePath, Enabled: req.Enabled,
	}
	if req.Password != "" {
		creds := protocolclient.Credentials{Password: req.Password}
		if req.Username != nil {
			creds.Username = *req.Username
		}
		if req.Domain != nil {
			creds.Domain = *req.Domain
		}
		enc, err := protocolclient.Encrypt(s.cfg.ServerSecret, creds)
		if err != nil {
			httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Internal, "encrypt source credential", err))
			return
		}
		source.EncryptedCredential = &enc
	}

	if err := s.sourceRepo.Create(source); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, source)
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid source id")
		return
	}
	existing, err := s.sourceRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}

	var req sourceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid body")
		return
	}
	existing.Name = req.Name
	existing.Host = req.Host
	existing.Port = req.Port
	existing.Username = req.Username
	existing.Domain = req.Domain
	existing.BasePath = req.BasePath
	existing.Enabled = req.Enabled

	if req.Password != "" {
		creds := protocolclient.Credentials{Password: req.Password}
		if req.Username != nil {
			creds.Username = *req.Username
		}
		if req.Domain != nil {
			creds.Domain = *req.Domain
		}
		enc, err := protocolclient.Encrypt(s.cfg.ServerSecret, creds)
		if err != nil {
			httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Internal, "encrypt source credential", err))
			return
		}
		existing.EncryptedCredential = &enc
	}

	if err := s.sourceRepo.Update(existing); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	s.pool.Invalidate(id) // credentials or address may have changed
	httputil.WriteJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid source id")
		return
	}
	if err := s.sourceRepo.Delete(id); err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	s.pool.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid source id")
		return
	}
	source, err := s.sourceRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}

	root := ""
	if source.BasePath != nil {
		root = *source.BasePath
	}
	client, err := s.pool.Get(r.Context(), source)
	if err != nil {
		s.pool.Invalidate(id)
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"reachable": false, "error": err.Error()})
		return
	}
	if _, err := client.List(r.Context(), root); err != nil {
		s.pool.Invalidate(id)
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"reachable": false, "error": err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"reachable": true})
}

func (s *Server) handleBrowseSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid source id")
		return
	}
	source, err := s.sourceRepo.GetByID(id)
	if err != nil {
		httputil.WriteErr(w, s.logger, err)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" && source.BasePath != nil {
		path = *source.BasePath
	}

	client, err := s.pool.Get(r.Context(), source)
	if err != nil {
		httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Upstream, "connect to source", err))
		return
	}
	entries, err := client.List(r.Context(), path)
	if err != nil {
		httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Upstream, "list source path", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"path": path, "entries": entries})
}

func (s *Server) handleDiscoverSources(w http.ResponseWriter, r *http.Request) {
	timeout := 3 * time.Second
	if v := r.URL.Query().Get("timeout"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	devices, err := protocolclient.Discover(r.Context(), timeout)
	if err != nil {
		httputil.WriteErr(w, s.logger, apperr.Wrap(apperr.Upstream, "discover UPnP sources", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}
