package indexer

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// garbageTokens are release-group/quality tokens stripped from a cleaned
// title, following the teacher's token-based cleaning approach (its
// scanner's garbageTokens set, trimmed to the subset spec.md §4.1 needs:
// quality/codec/source tags, not the teacher's full adult/music vocabulary).
var garbageTokens = buildGarbageSet(
	[]string{"x264", "x265", "h264", "h265", "h.264", "h.265", "hevc", "avc", "10bit", "8bit"},
	[]string{"aac", "ac3", "dts", "dts-hd", "truehd", "atmos", "flac", "eac3", "5.1", "7.1", "2.0"},
	[]string{"480p", "576p", "720p", "1080p", "2160p", "4k", "uhd"},
	[]string{"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux", "webrip", "web-dl", "webdl",
		"web", "hdtv", "dvdrip", "dvdscr"},
	[]string{"proper", "repack", "internal", "limited", "extended", "unrated", "remastered", "multi"},
)

var (
	yearRx       = regexp.MustCompile(`[\(\[\.\s_-]([12]\d{3})[\)\]\.\s_-]?`)
	tvEpisodeRx  = regexp.MustCompile(`(?i)^(.+?)[.\s_-]+[Ss](\d{1,2})[Ee](\d{1,3})(?:[-Ee](\d{1,3}))?`)
	tvAltRx      = regexp.MustCompile(`(?i)^(.+?)[.\s_-]+(\d{1,2})x(\d{1,3})`)
	bracketsRx   = regexp.MustCompile(`[\[\{][^\]\}]*[\]\}]`)
	separatorsRx = regexp.MustCompile(`[._]+`)
	spacesRx     = regexp.MustCompile(`\s{2,}`)
)

func buildGarbageSet(groups ...[]string) map[string]bool {
	set := map[string]bool{}
	for _, g := range groups {
		for _, tok := range g {
			set[strings.ToLower(tok)] = true
		}
	}
	return set
}

// ParsedMovie is the result of parsing a movie filename.
type ParsedMovie struct {
	Title string
	Year  *int
}

// ParsedEpisode is the result of parsing a TV episode filename.
type ParsedEpisode struct {
	ShowTitle string
	Season    int
	Episode   int
	EpisodeEnd int // >Episode for multi-episode files (S01E01E02)
}

// ParseMovieFilename extracts a title and optional year, stripping
// release-group/quality tokens the way the teacher's token cleaner does.
func ParseMovieFilename(filename string) ParsedMovie {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var year *int
	if loc := yearRx.FindStringSubmatchIndex(base); loc != nil {
		if y, err := strconv.Atoi(base[loc[2]:loc[3]]); err == nil {
			year = &y
			// loc[0] is the start of the whole match, including the
			// leading delimiter (e.g. the "(" in "(1999)") — cutting
			// there instead of at the year digits avoids leaving an
			// orphaned bracket in the title.
			base = base[:loc[0]]
		}
	}

	title := cleanTitle(base)
	return ParsedMovie{Title: title, Year: year}
}

// ParseEpisodeFilename extracts the show title, season, and episode number
// (and an EpisodeEnd for multi-episode files) from a TV filename.
func ParseEpisodeFilename(filename string) (ParsedEpisode, bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if m := tvEpisodeRx.FindStringSubmatch(base); len(m) >= 4 {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		end := episode
		if m[4] != "" {
			if e, err := strconv.Atoi(m[4]); err == nil {
				end = e
			}
		}
		return ParsedEpisode{ShowTitle: cleanTitle(m[1]), Season: season, Episode: episode, EpisodeEnd: end}, true
	}
	if m := tvAltRx.FindStringSubmatch(base); len(m) == 4 {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		return ParsedEpisode{ShowTitle: cleanTitle(m[1]), Season: season, Episode: episode, EpisodeEnd: episode}, true
	}
	return ParsedEpisode{}, false
}

// cleanTitle strips bracketed tags, separator punctuation, and any trailing
// run of garbage (quality/codec/source) tokens, then collapses whitespace.
// Letter case is left as it appears in the filename.
func cleanTitle(raw string) string {
	s := bracketsRx.ReplaceAllString(raw, " ")
	s = separatorsRx.ReplaceAllString(s, " ")
	s = spacesRx.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	end := len(tokens)
	for end > 0 && garbageTokens[strings.ToLower(tokens[end-1])] {
		end--
	}
	return strings.TrimSpace(strings.Join(tokens[:end], " "))
}

// subtitleLanguageTags maps common sidecar filename language codes to ISO
// 639-1, e.g. "Movie.en.srt" or "Movie.eng.srt".
var subtitleLanguageTags = map[string]string{
	"en": "en", "eng": "en", "english": "en",
	"es": "es", "spa": "es", "spanish": "es",
	"fr": "fr", "fre": "fr", "fra": "fr", "french": "fr",
	"de": "de", "ger": "de", "deu": "de", "german": "de",
	"it": "it", "ita": "it", "italian": "it",
	"ja": "ja", "jpn": "ja", "japanese": "ja",
	"zh": "zh", "chi": "zh", "zho": "zh", "chinese": "zh",
	"pt": "pt", "por": "pt", "portuguese": "pt",
	"ru": "ru", "rus": "ru", "russian": "ru",
}

// ParseSubtitleSidecar extracts the language tag from a subtitle filename
// that shares a stem with its media file, e.g. "Movie.en.srt" → "en".
// Returns ("", false) when no recognized language tag is present — the
// caller then records language "und" with the label "Unknown".
func ParseSubtitleSidecar(filename string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return "", false
	}
	tag := strings.ToLower(parts[len(parts)-1])
	if lang, ok := subtitleLanguageTags[tag]; ok {
		return lang, true
	}
	return "", false
}
