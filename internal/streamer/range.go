// Package streamer serves media bytes over HTTP in the three modes spec.md
// §4.6 names — direct byte-range, on-demand transcoded, and HLS — built on
// the teacher's range.go byte-range parser, generalized to read through a
// protocolclient.Client instead of a bare *os.File so remote sources serve
// identically to local ones.
package streamer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
	"streamvault/internal/protocolclient"
	"streamvault/internal/repository"
	"streamvault/internal/transcoder"
)

var webNativeExt = map[string]bool{".mp4": true, ".webm": true, ".m4v": true}

func isWebNative(filePath string) bool {
	return webNativeExt[strings.ToLower(filepath.Ext(filePath))]
}

// weakETag derives a cheap cache-validator from the item's identity and
// size, so proxies/browsers can skip re-fetching an unchanged direct-mode
// range response; xxhash trades cryptographic strength for speed, which is
// all a validator needs.
func weakETag(item *models.MediaItem) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d:%d:%s", item.ID, item.FileSize, item.UpdatedAt)
	return fmt.Sprintf(`W/"%x"`, h.Sum64())
}

func contentTypeFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}

type Streamer struct {
	mediaRepo  *repository.MediaRepository
	sourceRepo *repository.SourceRepository
	pool       *protocolclient.Pool
	transcode  *transcoder.Transcoder
}

func New(mediaRepo *repository.MediaRepository, sourceRepo *repository.SourceRepository,
	pool *protocolclient.Pool, t *transcoder.Transcoder,
) *Streamer {
	return &Streamer{mediaRepo: mediaRepo, sourceRepo: sourceRepo, pool: pool, transcode: t}
}

func (s *Streamer) openItem(ctx context.Context, item *models.MediaItem) (protocolclient.Client, protocolclient.ReadSeekCloser, error) {
	if item.SourceID == nil {
		return nil, nil, apperr.New(apperr.NotFound, "media item has no source")
	}
	source, err := s.sourceRepo.GetByID(*item.SourceID)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.pool.Get(ctx, source)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Upstream, "connect to source", err)
	}
	f, err := client.Open(ctx, item.FilePath)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Upstream, "open source file", err)
	}
	return client, f, nil
}

// ServeDirect implements spec.md §4.6's "direct" mode: range-honoring byte
// serving for web-native containers, with a transparent realtime-transcode
// fallback (fragmented MP4, no range support) for everything else.
func (s *Streamer) ServeDirect(ctx context.Context, w http.ResponseWriter, r *http.Request, item *models.MediaItem) error {
	if !isWebNative(item.FilePath) {
		profile, _ := transcoder.ProfileByLabel(transcoder.DefaultProfile)
		return s.serveRealtime(ctx, w, r, item, profile)
	}

	_, file, err := s.openItem(ctx, item)
	if err != nil {
		return err
	}
	defer file.Close()

	size := item.FileSize
	contentType := contentTypeFor(item.FilePath)
	w.Header().Set("ETag", weakETag(item))

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusOK)
		_, err := io.Copy(w, file)
		return err
	}
	return serveRange(w, file, size, rangeHeader, contentType)
}

func serveRange(w http.ResponseWriter, file protocolclient.ReadSeekCloser, fileSize int64, rangeHeader, contentType string) error {
	rangeHeader = strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.SplitN(rangeHeader, "-", 2)
	if len(parts) != 2 {
		return apperr.New(apperr.InvalidInput, "invalid range header")
	}

	var start, end int64
	if parts[0] != "" {
		v, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, "invalid range start", err)
		}
		start = v
	}
	if parts[1] != "" {
		v, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return apperr.Wrap(apperr.InvalidInput, "invalid range end", err)
		}
		end = v
	} else {
		end = fileSize - 1
	}

	if start >= fileSize {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	length := end - start + 1
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return apperr.Wrap(apperr.Internal, "seek source file", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusPartialContent)

	_, err := io.CopyN(w, file, length)
	return err
}

// ServeTranscoded implements spec.md §4.6's "transcoded" mode: realtime
// fragmented MP4 at the requested quality label.
func (s *Streamer) ServeTranscoded(ctx context.Context, w http.ResponseWriter, r *http.Request, item *models.MediaItem, quality string) error {
	profile, ok := transcoder.ProfileByLabel(quality)
	if !ok {
		return apperr.New(apperr.InvalidInput, "unknown quality label "+quality)
	}
	return s.serveRealtime(ctx, w, r, item, profile)
}

func (s *Streamer) serveRealtime(ctx context.Context, w http.ResponseWriter, r *http.Request, item *models.MediaItem, profile transcoder.Profile) error {
	// ffmpeg reads the source by filesystem path, so realtime transcode of a
	// non-Local source requires its Client to expose one; Local sources
	// always do. Confirm the file opens through the protocol client (surfaces
	// auth/connectivity failures as apperr.Upstream) before invoking ffmpeg.
	_, file, err := s.openItem(ctx, item)
	if err != nil {
		return err
	}
	file.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	fw := &flushWriter{w: w, f: flusher}

	return s.transcode.StreamTranscode(r.Context(), item.FilePath, fw, profile)
}

type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

// ServeHLSManifest implements spec.md §4.6's HLS entrypoint: serve a cached
// manifest, or kick off generation and respond 202 for the client to poll.
func (s *Streamer) ServeHLSManifest(ctx context.Context, w http.ResponseWriter, item *models.MediaItem) error {
	profile, _ := transcoder.ProfileByLabel(transcoder.DefaultProfile)
	manifest := filepath.Join(s.transcode.HLSDir(item.ID), "manifest.m3u8")

	if data, err := os.ReadFile(manifest); err == nil {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return nil
	}

	go func() {
		bgCtx := context.Background()
		_, _, err := s.openItem(bgCtx, item)
		if err != nil {
			return
		}
		s.transcode.GenerateHLS(bgCtx, item.FilePath, item.ID, profile)
	}()

	w.WriteHeader(http.StatusAccepted)
	return nil
}

// ServeHLSSegment serves one cached .ts segment, 404 if not yet written.
func (s *Streamer) ServeHLSSegment(w http.ResponseWriter, item *models.MediaItem, segment string) error {
	path := filepath.Join(s.transcode.HLSDir(item.ID), segment)
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.New(apperr.NotFound, "segment not written yet")
	}
	w.Header().Set("Content-Type", "video/mp2t")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return nil
}
