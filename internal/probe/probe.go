// Package probe wraps ffprobe to extract the stream/format facts the
// Indexer and Streamer need (spec.md §4.3), generalized from the teacher's
// scanner ffprobe wrapper into a richer {video, audio, quality_label} shape.
package probe

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"

	"streamvault/internal/apperr"
)

type VideoStream struct {
	Codec  string `json:"codec"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type AudioStream struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sampleRate"`
}

// Result is the shape spec.md §4.3 names:
// {duration, size, bitrate, container, video{...}, audio{...}, quality_label}.
type Result struct {
	Duration     float64      `json:"duration"`
	Size         int64        `json:"size"`
	Bitrate      int          `json:"bitrate"`
	Container    string       `json:"container"`
	Video        *VideoStream `json:"video,omitempty"`
	Audio        *AudioStream `json:"audio,omitempty"`
	QualityLabel string       `json:"qualityLabel"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName   string `json:"codec_name"`
	CodecType   string `json:"codec_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SampleRate  string `json:"sample_rate"`
	Channels    int    `json:"channels"`
}

type ffprobeFormat struct {
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Probe shells out to ffprobe -show_streams -show_format and parses its JSON.
func Probe(ctx context.Context, ffprobePath, filePath string) (*Result, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		filePath)

	out, err := cmd.Output()
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "ffprobe failed", err)
	}

	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "parse ffprobe output", err)
	}

	result := &Result{Container: data.Format.FormatName}
	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if result.Video == nil {
				result.Video = &VideoStream{Codec: s.CodecName, Width: s.Width, Height: s.Height}
			}
		case "audio":
			if result.Audio == nil {
				rate, _ := strconv.Atoi(s.SampleRate)
				result.Audio = &AudioStream{Codec: s.CodecName, Channels: s.Channels, SampleRate: rate}
			}
		}
	}
	if data.Format.Duration != "" {
		result.Duration, _ = strconv.ParseFloat(data.Format.Duration, 64)
	}
	if data.Format.BitRate != "" {
		result.Bitrate, _ = strconv.Atoi(data.Format.BitRate)
	}
	if data.Format.Size != "" {
		result.Size, _ = strconv.ParseInt(data.Format.Size, 10, 64)
	}

	if result.Video != nil {
		result.QualityLabel = QualityLabel(result.Video.Height)
	}
	return result, nil
}

// QualityLabel maps a vertical resolution to spec.md §4.3's exact labels.
func QualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "2K"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	default:
		return "SD"
	}
}

// LadderRung is one entry of the fixed transcode ladder spec.md §4.3 defines.
type LadderRung struct {
	Label        string
	Height       int
	VideoBitrate int // kbps
}

var fullLadder = []LadderRung{
	{"4K", 2160, 8000},
	{"1080p", 1080, 5000},
	{"720p", 720, 2500},
	{"480p", 480, 1000},
	{"360p", 360, 600},
}

// Ladder returns every fixed rung whose height is ≤ the source's height,
// highest first — the set of qualities a client may legitimately transcode to.
func Ladder(sourceHeight int) []LadderRung {
	var out []LadderRung
	for _, rung := range fullLadder {
		if rung.Height <= sourceHeight {
			out = append(out, rung)
		}
	}
	return out
}

var webNativeContainers = map[string]bool{
	"mp4": true, "mov,mp4,m4a,3gp,3g2,mj2": true, "webm": true,
}

var webNativeVideoCodecs = map[string]bool{
	"h264": true, "vp8": true, "vp9": true,
}

// NeedsTranscoding reports spec.md §4.3's exact predicate: not a web-native
// container, or taller than 1080p, or a video codec outside {h264, vp8, vp9}.
func NeedsTranscoding(r *Result) bool {
	if !webNativeContainers[r.Container] {
		return true
	}
	if r.Video != nil {
		if r.Video.Height > 1080 {
			return true
		}
		if !webNativeVideoCodecs[r.Video.Codec] {
			return true
		}
	}
	return false
}
