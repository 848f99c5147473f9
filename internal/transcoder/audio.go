package transcoder

import "strings"

// needsAudioTranscode reports whether a source audio codec must be
// transcoded to AAC for web playback. The encode paths in this package do
// not consult it: they always encode audio to AAC.
func needsAudioTranscode(codec string) bool {
	switch strings.ToLower(codec) {
	case "aac", "mp3", "opus", "vorbis", "flac":
		return false
	default:
		return true
	}
}
