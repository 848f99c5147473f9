// Package transcoder wraps an external ffmpeg binary to produce web-playable
// MP4 and HLS output on demand (spec.md §4.4), grounded in the teacher's
// stream.Transcoder hardware-encoder detection and session bookkeeping but
// reworked around the spec's file/quality/HLS/realtime surface and per-key
// process supervision instead of the teacher's open-ended session map.
package transcoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"streamvault/internal/apperr"
	"streamvault/internal/cachemgr"
)

// Profile is a fixed {resolution, video_bitrate, fps, preset} tuple, one per
// quality label in the probe transcode ladder.
type Profile struct {
	Label        string
	Width        int
	Height       int
	VideoBitrateK int // kbps
	FPS          int
	Preset       string
}

var profiles = map[string]Profile{
	"4K":    {Label: "4K", Width: 3840, Height: 2160, VideoBitrateK: 8000, FPS: 30, Preset: "veryfast"},
	"1080p": {Label: "1080p", Width: 1920, Height: 1080, VideoBitrateK: 5000, FPS: 30, Preset: "veryfast"},
	"720p":  {Label: "720p", Width: 1280, Height: 720, VideoBitrateK: 2500, FPS: 30, Preset: "veryfast"},
	"480p":  {Label: "480p", Width: 854, Height: 480, VideoBitrateK: 1000, FPS: 30, Preset: "faster"},
	"360p":  {Label: "360p", Width: 640, Height: 360, VideoBitrateK: 600, FPS: 30, Preset: "faster"},
}

// DefaultProfile is used for HLS generation when the caller doesn't pick one.
const DefaultProfile = "720p"

func ProfileByLabel(label string) (Profile, bool) {
	p, ok := profiles[label]
	return p, ok
}

const hlsSegmentSeconds = 10

// job is one in-flight external-encoder process, keyed by output path for
// file jobs or "<mediaID>:<quality>" for HLS jobs (spec.md §4.4).
type job struct {
	cmd  *exec.Cmd
	done chan struct{}
}

type Transcoder struct {
	ffmpegPath string
	cacheDir   string
	logger     *slog.Logger
	cache      *cachemgr.Manager

	mu   sync.Mutex
	jobs map[string]*job

	hwMu       sync.Mutex
	h264Probed bool
	cachedH264 string
}

func New(ffmpegPath, cacheDir string, logger *slog.Logger, cache *cachemgr.Manager) *Transcoder {
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		cacheDir:   cacheDir,
		logger:     logger,
		cache:      cache,
		jobs:       make(map[string]*job),
	}
}

// MP4Path is the cache path a quality-label file job produces.
func (t *Transcoder) MP4Path(mediaID int64, label string) string {
	return filepath.Join(t.cacheDir, fmt.Sprintf("%d_%s.mp4", mediaID, label))
}

// HLSDir is the cache directory a (media, quality) HLS job writes into.
func (t *Transcoder) HLSDir(mediaID int64) string {
	return filepath.Join(t.cacheDir, fmt.Sprintf("hls_%d", mediaID))
}

func detectEncoder(ffmpegPath string) string {
	out, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return "libx264"
	}
	list := string(out)
	for _, hw := range []string{"h264_nvenc", "h264_qsv", "h264_vaapi"} {
		if strings.Contains(list, hw) {
			return hw
		}
	}
	return "libx264"
}

func (t *Transcoder) encoder() string {
	t.hwMu.Lock()
	defer t.hwMu.Unlock()
	if t.h264Probed {
		return t.cachedH264
	}
	t.h264Probed = true
	t.cachedH264 = detectEncoder(t.ffmpegPath)
	return t.cachedH264
}

func (t *Transcoder) binaryExists() bool {
	_, err := exec.LookPath(t.ffmpegPath)
	if err == nil {
		return true
	}
	_, statErr := os.Stat(t.ffmpegPath)
	return statErr == nil
}

// acquire registers key as running, returning the existing in-flight job if
// a concurrent caller already holds it (spec.md §4.4 process supervision).
func (t *Transcoder) acquire(key string, cmd *exec.Cmd) (*job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.jobs[key]; ok {
		return existing, true
	}
	j := &job{cmd: cmd, done: make(chan struct{})}
	t.jobs[key] = j
	return j, false
}

func (t *Transcoder) release(key string) {
	t.mu.Lock()
	j, ok := t.jobs[key]
	delete(t.jobs, key)
	t.mu.Unlock()
	if ok {
		close(j.done)
	}
}

// Cancel kills the running job for key, if any, discarding partial output.
func (t *Transcoder) Cancel(key string) {
	t.mu.Lock()
	j, ok := t.jobs[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	if j.cmd.Process != nil {
		j.cmd.Process.Kill()
	}
}

func videoFilter(p Profile) string {
	return fmt.Sprintf("scale=%d:%d", p.Width, p.Height)
}

// TranscodeToMP4 produces a fast-start MP4 at output from input using profile,
// supervised as a single job keyed on output.
func (t *Transcoder) TranscodeToMP4(ctx context.Context, input, output string, profile Profile) error {
	if !t.binaryExists() {
		return apperr.New(apperr.TranscoderUnavailable, "ffmpeg binary not found")
	}
	if _, err := os.Stat(output); err == nil {
		if t.cache != nil {
			t.cache.Touch(output)
		}
		return nil // cache hit
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "create transcode output dir", err)
	}

	tmpOutput := output + ".partial"
	if t.cache != nil {
		t.cache.MarkInFlight(tmpOutput)
		defer t.cache.ClearInFlight(tmpOutput)
	}

	args := []string{
		"-nostdin", "-y",
		"-i", input,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c:v", t.encoder(),
		"-preset", profile.Preset,
		"-vf", videoFilter(profile),
		"-b:v", strconv.Itoa(profile.VideoBitrateK) + "k",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		tmpOutput,
	}

	if err := t.run(ctx, output, args); err != nil {
		os.Remove(tmpOutput)
		return err
	}
	if err := os.Rename(tmpOutput, output); err != nil {
		return apperr.Wrap(apperr.Internal, "finalize transcode output", err)
	}
	return nil
}

// TranscodeQuality resolves the cache path for (mediaID, label), short
// circuiting if it already exists, otherwise running TranscodeToMP4.
func (t *Transcoder) TranscodeQuality(ctx context.Context, input string, mediaID int64, label string) (string, error) {
	profile, ok := ProfileByLabel(label)
	if !ok {
		return "", apperr.New(apperr.InvalidInput, "unknown quality label "+label)
	}
	output := t.MP4Path(mediaID, label)
	if err := t.TranscodeToMP4(ctx, input, output, profile); err != nil {
		return "", err
	}
	return output, nil
}

// StreamTranscode runs a realtime fragmented-MP4 encode of input, writing
// the output directly to w. The external process is killed if ctx is
// cancelled (HTTP client disconnect).
func (t *Transcoder) StreamTranscode(ctx context.Context, input string, w io.Writer, profile Profile) error {
	if !t.binaryExists() {
		return apperr.New(apperr.TranscoderUnavailable, "ffmpeg binary not found")
	}

	args := []string{
		"-nostdin",
		"-i", input,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c:v", t.encoder(),
		"-preset", profile.Preset,
		"-vf", videoFilter(profile),
		"-b:v", strconv.Itoa(profile.VideoBitrateK) + "k",
		"-c:a", "aac", "-b:a", "128k",
		"-f", "mp4",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.Stdout = w
	stderr := &strings.Builder{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return apperr.Wrap(apperr.EncodeFailed, "start realtime transcode", err)
	}
	err := cmd.Wait()
	if err != nil && ctx.Err() == nil {
		t.logger.Warn("realtime transcode exited non-zero", "input", input, "stderr", tail(stderr.String(), 1000))
		return apperr.Wrap(apperr.EncodeFailed, "realtime transcode failed", err)
	}
	return nil
}

// GenerateHLS produces a cached HLS tree for (mediaID, profile): constant
// 10s segments, no scene-cut keyframes, GOP forced to segment_duration×fps.
func (t *Transcoder) GenerateHLS(ctx context.Context, input string, mediaID int64, profile Profile) (string, error) {
	if !t.binaryExists() {
		return "", apperr.New(apperr.TranscoderUnavailable, "ffmpeg binary not found")
	}

	dir := t.HLSDir(mediaID)
	manifest := filepath.Join(dir, "manifest.m3u8")
	key := fmt.Sprintf("%d:%s", mediaID, profile.Label)

	if _, err := os.Stat(manifest); err == nil {
		if t.cache != nil {
			t.cache.Touch(manifest)
		}
		return manifest, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.Internal, "create hls output dir", err)
	}

	if t.cache != nil {
		t.cache.MarkInFlight(dir)
		defer t.cache.ClearInFlight(dir)
	}

	gop := hlsSegmentSeconds * profile.FPS
	args := []string{
		"-nostdin", "-y",
		"-i", input,
		"-map", "0:v:0", "-map", "0:a:0?",
		"-c:v", t.encoder(),
		"-preset", profile.Preset,
		"-vf", videoFilter(profile),
		"-b:v", strconv.Itoa(profile.VideoBitrateK) + "k",
		"-g", strconv.Itoa(gop),
		"-sc_threshold", "0",
		"-c:a", "aac", "-b:a", "128k",
		"-f", "hls",
		"-hls_time", strconv.Itoa(hlsSegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(dir, "segment_%05d.ts"),
		manifest,
	}

	if err := t.runKeyed(ctx, key, args); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return manifest, nil
}

// run supervises an ffmpeg invocation keyed on its output path.
func (t *Transcoder) run(ctx context.Context, key string, args []string) error {
	return t.runKeyed(ctx, key, args)
}

func (t *Transcoder) runKeyed(ctx context.Context, key string, args []string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	j, alreadyRunning := t.acquire(key, cmd)
	if alreadyRunning {
		<-j.done
		return nil
	}
	defer t.release(key)

	stderr := &strings.Builder{}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		t.logger.Warn("transcode job failed", "key", key, "stderr", tail(stderr.String(), 1000))
		return apperr.Wrap(apperr.EncodeFailed, "transcode failed", err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
