// Package indexer walks a Source's tree over its ProtocolClient, classifies
// files as Movies or Episodes, upserts them into the Store, and discovers
// subtitle sidecars (spec.md §4.1), generalized from the teacher's
// internal/scanner filesystem walk into a source-polymorphic one.
package indexer

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
	"streamvault/internal/probe"
	"streamvault/internal/protocolclient"
	"streamvault/internal/repository"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".webm": true, ".ts": true, ".m2ts": true,
}

var subtitleExtensions = map[string]bool{".srt": true, ".vtt": true, ".ass": true}

// EnrichDispatcher decouples the Indexer from the concrete job queue
// implementation (internal/jobs), so indexer tests can substitute a no-op.
type EnrichDispatcher interface {
	DispatchEnrich(ctx context.Context, mediaItemID int64) error
}

// Progress is the live snapshot spec.md §4.1 names, readable by any
// concurrent observer while a scan is running.
type Progress struct {
	TotalFiles      int      `json:"totalFiles"`
	ScannedFiles    int      `json:"scannedFiles"`
	AddedFiles      int      `json:"addedFiles"`
	MetadataFetched int      `json:"metadataFetched"`
	Errors          []string `json:"errors"`
	Done            bool     `json:"done"`
}

type Indexer struct {
	pool         *protocolclient.Pool
	ffprobePath  string
	mediaRepo    *repository.MediaRepository
	tvRepo       *repository.TVRepository
	subtitleRepo *repository.SubtitleRepository
	dispatcher   EnrichDispatcher
	autoEnrich   bool
	logger       *slog.Logger

	mu       sync.Mutex
	running  bool
	progress Progress
}

func New(pool *protocolclient.Pool, ffprobePath string, mediaRepo *repository.MediaRepository,
	tvRepo *repository.TVRepository, subtitleRepo *repository.SubtitleRepository,
	dispatcher EnrichDispatcher, autoEnrich bool, logger *slog.Logger,
) *Indexer {
	return &Indexer{
		pool: pool, ffprobePath: ffprobePath, mediaRepo: mediaRepo, tvRepo: tvRepo,
		subtitleRepo: subtitleRepo, dispatcher: dispatcher, autoEnrich: autoEnrich, logger: logger,
	}
}

// Progress returns a copy of the current scan snapshot, safe to call while
// a scan is running from another goroutine.
func (idx *Indexer) Progress() Progress {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.progress
}

// Scan walks source's tree from root and indexes every recognized video
// file. Only one scan may run at a time per process (spec.md §4.1); a
// second concurrent call fails with apperr.ErrScanBusy.
func (idx *Indexer) Scan(ctx context.Context, source *models.Source, root string) error {
	idx.mu.Lock()
	if idx.running {
		idx.mu.Unlock()
		return apperr.ErrScanBusy
	}
	idx.running = true
	idx.progress = Progress{}
	idx.mu.Unlock()

	defer func() {
		idx.mu.Lock()
		idx.running = false
		idx.progress.Done = true
		idx.mu.Unlock()
	}()

	client, err := idx.pool.Get(ctx, source)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "connect to source", err)
	}

	paths, err := idx.collectVideoPaths(ctx, client, root)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "walk source tree", err)
	}

	idx.mu.Lock()
	idx.progress.TotalFiles = len(paths)
	idx.mu.Unlock()

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		idx.indexOne(ctx, client, source, p)
		idx.mu.Lock()
		idx.progress.ScannedFiles++
		idx.mu.Unlock()
	}
	return nil
}

// Start launches Scan in the background, returning apperr.ErrScanBusy
// synchronously instead of blocking the caller for the whole walk if a scan
// is already running (spec.md §6 "409 if a scan is running").
func (idx *Indexer) Start(ctx context.Context, source *models.Source, root string) error {
	idx.mu.Lock()
	busy := idx.running
	idx.mu.Unlock()
	if busy {
		return apperr.ErrScanBusy
	}
	go func() {
		if err := idx.Scan(ctx, source, root); err != nil && err != apperr.ErrScanBusy {
			idx.logger.Warn("background scan failed", "err", err)
		}
	}()
	return nil
}

// collectVideoPaths walks the tree depth-first, collecting every path whose
// extension matches videoExtensions.
func (idx *Indexer) collectVideoPaths(ctx context.Context, client protocolclient.Client, dir string) ([]string, error) {
	var out []string
	entries, err := client.List(ctx, dir)
	if err != nil {
		// A single unreadable subtree aborts only itself (spec.md §4.1).
		idx.recordError(dir + ": " + err.Error())
		return out, nil
	}
	for _, e := range entries {
		full := path.Join(dir, e.Name)
		if e.IsDir {
			children, err := idx.collectVideoPaths(ctx, client, full)
			if err != nil {
				idx.recordError(full + ": " + err.Error())
				continue
			}
			out = append(out, children...)
			continue
		}
		if videoExtensions[strings.ToLower(path.Ext(e.Name))] {
			out = append(out, full)
		}
	}
	return out, nil
}

func (idx *Indexer) recordError(msg string) {
	idx.mu.Lock()
	idx.progress.Errors = append(idx.progress.Errors, msg)
	idx.mu.Unlock()
}

// indexOne dedupes, classifies, upserts, and discovers subtitles for a
// single file path (steps 2-8 of spec.md §4.1).
func (idx *Indexer) indexOne(ctx context.Context, client protocolclient.Client, source *models.Source, filePath string) {
	// source.ID is 0 for the synthetic local source handleStartScan builds
	// when the request names a bare filesystem path rather than a persisted
	// sources row; media_items.source_id is a nullable FK, so that case must
	// store NULL rather than the non-existent id 0 (foreign_keys=ON rejects
	// any other value).
	var sourceID *int64
	if source.ID != 0 {
		sourceID = &source.ID
	}

	existing, err := idx.mediaRepo.FindBySourceFile(source.Protocol, sourceID, filePath)
	if err != nil {
		idx.recordError(filePath + ": " + err.Error())
		return
	}
	if existing != nil {
		return // already indexed
	}

	stat, err := client.Stat(ctx, filePath)
	if err != nil {
		idx.recordError(filePath + ": " + err.Error())
		return
	}

	item := &models.MediaItem{
		FilePath:   filePath,
		FileSize:   stat.Size,
		SourceKind: source.Protocol,
		SourceID:   sourceID,
	}

	isEpisode, showSegment := classifyEpisode(filePath)
	if isEpisode {
		// indexEpisode inserts the item itself, ahead of its Episode row.
		if err := idx.indexEpisode(item, showSegment, filePath); err != nil {
			idx.recordError(filePath + ": " + err.Error())
			return
		}
	} else {
		parsed := ParseMovieFilename(filePath)
		item.Kind = models.MediaMovie
		item.Title = parsed.Title
		item.Year = parsed.Year
		if err := idx.mediaRepo.Create(item); err != nil {
			idx.recordError(filePath + ": " + err.Error())
			return
		}
	}
	idx.mu.Lock()
	idx.progress.AddedFiles++
	idx.mu.Unlock()

	// Best-effort probe for duration/quality label; failure doesn't drop the item.
	if result, err := probe.Probe(ctx, idx.ffprobePath, filePath); err == nil {
		idx.mediaRepo.UpdateProbeResult(item.ID, result.Duration, result.Size, result.QualityLabel)
	}

	idx.discoverSubtitles(ctx, client, item)

	if idx.autoEnrich && idx.dispatcher != nil {
		if err := idx.dispatcher.DispatchEnrich(ctx, item.ID); err == nil {
			idx.mu.Lock()
			idx.progress.MetadataFetched++
			idx.mu.Unlock()
		}
	}
}

// classifyEpisode implements spec.md §4.1 step 3: a path nested under a
// "tv-shows" segment whose filename matches S<d>E<d> or <d>x<d> is an
// Episode; the returned segment is the show-name folder directly under
// "tv-shows".
func classifyEpisode(filePath string) (isEpisode bool, showSegment string) {
	segments := strings.Split(filepath.ToSlash(filePath), "/")
	for i, seg := range segments {
		if strings.EqualFold(seg, "tv-shows") && i+1 < len(segments) {
			if _, ok := ParseEpisodeFilename(filePath); ok {
				return true, segments[i+1]
			}
		}
	}
	return false, ""
}

func (idx *Indexer) indexEpisode(item *models.MediaItem, showSegment, filePath string) error {
	parsed, ok := ParseEpisodeFilename(filePath)
	if !ok {
		return apperr.New(apperr.InvalidInput, "not a recognizable episode filename")
	}

	title := showSegment
	if parsed.ShowTitle != "" {
		title = parsed.ShowTitle
	}

	show, err := idx.tvRepo.FindShowByTitle(title)
	if err != nil {
		return err
	}
	if show == nil {
		// The TvShow's own MediaItem row is created lazily the first time an
		// episode for it is indexed; it carries no file of its own.
		showItem := &models.MediaItem{
			Kind:       models.MediaTvShow,
			Title:      title,
			FilePath:   "tv-shows/" + showSegment,
			SourceKind: item.SourceKind,
			SourceID:   item.SourceID,
		}
		if err := idx.mediaRepo.Create(showItem); err != nil {
			return err
		}
		show = &models.TvShow{MediaItemID: showItem.ID, Title: title}
		if err := idx.tvRepo.CreateShow(show); err != nil {
			return err
		}
	}

	item.Kind = models.MediaEpisode
	item.Title = title

	episode := &models.Episode{
		TvShowID:      show.ID,
		SeasonNumber:  parsed.Season,
		EpisodeNumber: parsed.Episode,
	}
	if err := idx.mediaRepo.Create(item); err != nil {
		return err
	}
	episode.MediaItemID = item.ID
	if err := idx.tvRepo.CreateEpisode(episode); err != nil {
		return err
	}
	return idx.tvRepo.RecountEpisodes(show.ID)
}

// discoverSubtitles implements spec.md §4.1 step 7: sidecar files in the
// same directory sharing the video's stem.
func (idx *Indexer) discoverSubtitles(ctx context.Context, client protocolclient.Client, item *models.MediaItem) {
	dir := path.Dir(item.FilePath)
	stem := strings.TrimSuffix(path.Base(item.FilePath), path.Ext(item.FilePath))

	entries, err := client.List(ctx, dir)
	if err != nil {
		return
	}

	first := true
	for _, e := range entries {
		if e.IsDir || !strings.HasPrefix(e.Name, stem) {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name))
		if !subtitleExtensions[ext] {
			continue
		}
		full := path.Join(dir, e.Name)
		lang, ok := ParseSubtitleSidecar(e.Name)
		label := strings.ToUpper(lang)
		if !ok {
			lang, label = "und", "Unknown"
		} else if human, ok := languageLabels[lang]; ok {
			label = human
		}

		sub := &models.Subtitle{
			MediaItemID: item.ID,
			Language:    lang,
			Label:       label,
			FilePath:    full,
			Format:      models.SubtitleFormat(strings.TrimPrefix(ext, ".")),
			IsDefault:   first,
		}
		if err := idx.subtitleRepo.Create(sub); err == nil {
			first = false
		}
	}
}

var languageLabels = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "ja": "Japanese", "zh": "Chinese", "pt": "Portuguese", "ru": "Russian",
}
