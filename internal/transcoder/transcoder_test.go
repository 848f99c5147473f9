package transcoder

import "testing"

func TestProfileByLabel(t *testing.T) {
	p, ok := ProfileByLabel("1080p")
	if !ok {
		t.Fatal("ProfileByLabel(1080p) ok = false")
	}
	if p.Width != 1920 || p.Height != 1080 {
		t.Fatalf("ProfileByLabel(1080p) = %+v, want 1920x1080", p)
	}

	if _, ok := ProfileByLabel("8K"); ok {
		t.Fatal("ProfileByLabel(8K) ok = true, want false")
	}
}

func TestMP4PathAndHLSDir(t *testing.T) {
	tr := New("ffmpeg", "/cache", nil, nil)

	if got, want := tr.MP4Path(7, "720p"), "/cache/7_720p.mp4"; got != want {
		t.Errorf("MP4Path() = %q, want %q", got, want)
	}
	if got, want := tr.HLSDir(7), "/cache/hls_7"; got != want {
		t.Errorf("HLSDir() = %q, want %q", got, want)
	}
}

func TestNeedsAudioTranscode(t *testing.T) {
	cases := map[string]bool{
		"aac":    false,
		"AAC":    false,
		"mp3":    false,
		"opus":   false,
		"flac":   false,
		"dts":    true,
		"truehd": true,
		"":       true,
	}
	for codec, want := range cases {
		if got := needsAudioTranscode(codec); got != want {
			t.Errorf("needsAudioTranscode(%q) = %v, want %v", codec, got, want)
		}
	}
}

func TestVideoFilter(t *testing.T) {
	p := Profile{Width: 1280, Height: 720}
	if got, want := videoFilter(p), "scale=1280:720"; got != want {
		t.Errorf("videoFilter() = %q, want %q", got, want)
	}
}
