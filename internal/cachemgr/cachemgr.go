// Package cachemgr tracks the transcode cache root — HLS trees and flat
// quality-label MP4s — and enforces its TTL and size-cap policies (spec.md
// §4.5), grounded in the teacher's background-sweep idiom (its cron-driven
// maintenance loops) but rebuilt around this cache root's two artifact
// shapes instead of the teacher's thumbnail/preview cache.
package cachemgr

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Totals is the rolling {total_bytes, file_count} spec.md §4.5 names.
type Totals struct {
	TotalBytes int64
	FileCount  int
}

// Manager owns one cache root directory and the in-flight set of paths
// currently being written by the Transcoder, which no sweep may delete.
type Manager struct {
	root      string
	sizeCap   int64
	ttl       time.Duration
	logger    *slog.Logger
	cron      *cron.Cron

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(root string, sizeCap int64, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		root:     root,
		sizeCap:  sizeCap,
		ttl:      ttl,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// MarkInFlight registers path as currently being written; sweeps skip it.
func (m *Manager) MarkInFlight(path string) {
	m.mu.Lock()
	m.inFlight[path] = true
	m.mu.Unlock()
}

// ClearInFlight releases a path registered with MarkInFlight.
func (m *Manager) ClearInFlight(path string) {
	m.mu.Lock()
	delete(m.inFlight, path)
	m.mu.Unlock()
}

// isInFlight reports whether path, or a directory containing it (an HLS
// tree is marked as a whole), is registered with MarkInFlight.
func (m *Manager) isInFlight(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := path; ; p = filepath.Dir(p) {
		if m.inFlight[p] {
			return true
		}
		if p == m.root || filepath.Dir(p) == p {
			return false
		}
	}
}

// Touch bumps a file's mtime to now, the LRU-by-access proxy spec.md §4.5
// requires the Transcoder and Streamer to call on every access.
func (m *Manager) Touch(path string) {
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

type fileInfo struct {
	path  string
	size  int64
	mtime time.Time
}

func (m *Manager) walk() ([]fileInfo, error) {
	var files []fileInfo
	err := filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		files = append(files, fileInfo{path: path, size: info.Size(), mtime: info.ModTime()})
		return nil
	})
	return files, err
}

// Totals recomputes {total_bytes, file_count} by walking the cache root.
func (m *Manager) Totals() (Totals, error) {
	files, err := m.walk()
	if err != nil {
		return Totals{}, err
	}
	t := Totals{FileCount: len(files)}
	for _, f := range files {
		t.TotalBytes += f.size
	}
	return t, nil
}

// SweepTTL deletes every file older than the configured TTL, then prunes
// any directory left empty, skipping in-flight paths.
func (m *Manager) SweepTTL() {
	files, err := m.walk()
	if err != nil {
		m.logger.Warn("cachemgr: ttl sweep walk failed", "err", err)
		return
	}
	cutoff := time.Now().Add(-m.ttl)
	removed := 0
	for _, f := range files {
		if f.mtime.After(cutoff) || m.isInFlight(f.path) {
			continue
		}
		if err := os.Remove(f.path); err == nil {
			removed++
		}
	}
	m.pruneEmptyDirs()
	if removed > 0 {
		m.logger.Info("cachemgr: ttl sweep removed files", "count", removed)
	}
}

// SweepSizeCap deletes oldest-by-mtime files until total size is at or
// below the configured cap.
func (m *Manager) SweepSizeCap() {
	files, err := m.walk()
	if err != nil {
		m.logger.Warn("cachemgr: size cap sweep walk failed", "err", err)
		return
	}

	var total int64
	for _, f := range files {
		total += f.size
	}
	if total <= m.sizeCap {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })

	removed := 0
	for _, f := range files {
		if total <= m.sizeCap {
			break
		}
		if m.isInFlight(f.path) {
			continue
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
			removed++
		}
	}
	m.pruneEmptyDirs()
	if removed > 0 {
		m.logger.Info("cachemgr: size cap sweep removed files", "count", removed, "total_bytes", total)
	}
}

func (m *Manager) pruneEmptyDirs() {
	filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() || path == m.root {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err == nil && len(entries) == 0 {
			os.Remove(path)
		}
		return nil
	})
}

// ClearMedia implements spec.md §4.5's targeted invalidation: removes the
// HLS tree and every flat MP4 transcode for a media id.
func (m *Manager) ClearMedia(mediaID int64) error {
	hlsDir := filepath.Join(m.root, fmt.Sprintf("hls_%d", mediaID))
	if err := os.RemoveAll(hlsDir); err != nil && !os.IsNotExist(err) {
		return err
	}

	prefix := strconv.FormatInt(mediaID, 10) + "_"
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".mp4") {
			os.Remove(filepath.Join(m.root, e.Name()))
		}
	}
	return nil
}

// StartSweeps schedules the TTL sweep every 6 hours and the size-cap sweep
// every hour via a cron.Cron, in the teacher's background-maintenance idiom.
func (m *Manager) StartSweeps() {
	m.cron = cron.New()
	m.cron.AddFunc("@every 6h", m.SweepTTL)
	m.cron.AddFunc("@every 1h", m.SweepSizeCap)
	m.cron.Start()
}

func (m *Manager) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}
