// Package api wires every handler package behind one chi.Router, matching
// spec.md §6's HTTP surface, grounded in the teacher's api.Server (its much
// larger route table trimmed to this spec's library/stream/subtitle/
// network/watch/admin surface) but switched from the teacher's bare
// http.ServeMux to chi so each feature package owns its own sub-router.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"streamvault/internal/auth"
	"streamvault/internal/cachemgr"
	"streamvault/internal/config"
	"streamvault/internal/indexer"
	"streamvault/internal/metadata"
	"streamvault/internal/protocolclient"
	"streamvault/internal/repository"
	"streamvault/internal/streamer"
	"streamvault/internal/transcoder"
	"streamvault/internal/watch"
)

// Server holds every collaborator a handler file needs; individual handler
// methods hang off this type across server.go's sibling files the way the
// teacher splits handlers_*.go per feature.
type Server struct {
	cfg *config.Config

	userRepo     *repository.UserRepository
	mediaRepo    *repository.MediaRepository
	tvRepo       *repository.TVRepository
	sourceRepo   *repository.SourceRepository
	subtitleRepo *repository.SubtitleRepository
	watchRepo    *repository.WatchRepository
	settingsRepo *repository.SettingsRepository

	pool       *protocolclient.Pool
	indexer    *indexer.Indexer
	transcode  *transcoder.Transcoder
	streamer   *streamer.Streamer
	cache      *cachemgr.Manager
	enricher   *metadata.Enricher

	issuer     *auth.TokenIssuer
	middleware *auth.Middleware

	wsHub  *WSHub
	logger *slog.Logger
}

func NewServer(
	cfg *config.Config,
	userRepo *repository.UserRepository,
	mediaRepo *repository.MediaRepository,
	tvRepo *repository.TVRepository,
	sourceRepo *repository.SourceRepository,
	subtitleRepo *repository.SubtitleRepository,
	watchRepo *repository.WatchRepository,
	settingsRepo *repository.SettingsRepository,
	pool *protocolclient.Pool,
	idx *indexer.Indexer,
	transcode *transcoder.Transcoder,
	strm *streamer.Streamer,
	cache *cachemgr.Manager,
	enricher *metadata.Enricher,
	issuer *auth.TokenIssuer,
	mw *auth.Middleware,
	logger *slog.Logger,
) *Server {
	return &Server{
		cfg: cfg, userRepo: userRepo, mediaRepo: mediaRepo, tvRepo: tvRepo,
		sourceRepo: sourceRepo, subtitleRepo: subtitleRepo, watchRepo: watchRepo,
		settingsRepo: settingsRepo, pool: pool, indexer: idx, transcode: transcode,
		streamer: strm, cache: cache, enricher: enricher, issuer: issuer,
		middleware: mw, wsHub: NewWSHub(logger), logger: logger,
	}
}

// Router builds the full mux: auth is public at /auth, everything else
// requires a valid bearer token, admin-gated routes additionally require
// RequireAdmin.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	authHandler := auth.NewHandler(s.userRepo, s.issuer)
	r.Mount("/auth", authHandler.Router())

	r.Group(func(r chi.Router) {
		r.Use(s.middleware.RequireAuth)

		r.Route("/library", func(r chi.Router) {
			r.Get("/movies", s.handleListMovies)
			r.Get("/tvshows", s.handleListTvShows)
			r.Get("/tvshow/{id}", s.handleGetTvShow)
			r.Get("/episode/{id}/next", s.handleNextEpisode)
			r.Get("/episode/{id}/previous", s.handlePreviousEpisode)
			r.Get("/search", s.handleSearch)
			r.Get("/item/{id}", s.handleGetItem)
			r.Post("/scan", s.handleStartScan)
			r.Get("/scan/progress", s.handleScanProgress)
		})

		r.Route("/stream", func(r chi.Router) {
			r.Get("/{id}/info", s.handleStreamInfo)
			r.Get("/{id}/qualities", s.handleStreamQualities)
			r.Get("/{id}/direct", s.handleStreamDirect)
			r.Get("/{id}/transcode", s.handleStreamTranscode)
			r.Post("/{id}/pretranscode", s.handlePretranscode)
			r.Get("/{id}/hls/manifest.m3u8", s.handleHLSManifest)
			r.Get("/{id}/hls/{segment}", s.handleHLSSegment)
		})

		r.Route("/subtitles", func(r chi.Router) {
			r.Get("/media/{id}", s.handleListSubtitles)
			r.Get("/{id}", s.handleServeSubtitle)
		})

		r.Route("/network", func(r chi.Router) {
			r.Route("/sources", func(r chi.Router) {
				r.Get("/", s.handleListSources)
				r.Post("/", s.handleCreateSource)
				r.Put("/{id}", s.handleUpdateSource)
				r.Delete("/{id}", s.handleDeleteSource)
				r.Post("/{id}/test", s.handleTestSource)
				r.Get("/{id}/browse", s.handleBrowseSource)
				r.Post("/discover", s.handleDiscoverSources)
			})
		})

		watchHandler := watch.NewHandler(s.watchRepo, s.mediaRepo)
		r.Mount("/metadata/watch", watchHandler.Router())
		r.Mount("/watch", watchHandler.Router())

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.middleware.RequireAdmin)
			r.Get("/users", s.handleAdminListUsers)
			r.Delete("/users/{id}", s.handleAdminDeleteUser)
			r.Get("/media", s.handleAdminListMedia)
			r.Delete("/media/{id}", s.handleAdminDeleteMedia)
			r.Get("/stats", s.handleAdminLibraryStats)
			r.Get("/dashboard", s.handleAdminDashboard)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// corsMiddleware allows any origin to hit the API with a bearer token; there
// is no cookie-based session for CSRF to target. No CORS library appears
// anywhere in the pack, so this stays hand-rolled per DESIGN.md.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
