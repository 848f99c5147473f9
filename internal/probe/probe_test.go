package probe

import "testing"

func TestQualityLabel(t *testing.T) {
	cases := map[int]string{
		2160: "4K",
		1440: "2K",
		1080: "1080p",
		720:  "720p",
		480:  "480p",
		360:  "360p",
		240:  "SD",
	}
	for height, want := range cases {
		if got := QualityLabel(height); got != want {
			t.Errorf("QualityLabel(%d) = %q, want %q", height, got, want)
		}
	}
}

func TestLadder(t *testing.T) {
	rungs := Ladder(1080)
	if len(rungs) != 4 {
		t.Fatalf("Ladder(1080) has %d rungs, want 4", len(rungs))
	}
	for _, r := range rungs {
		if r.Height > 1080 {
			t.Errorf("Ladder(1080) included rung %+v taller than source", r)
		}
	}

	if got := Ladder(200); len(got) != 0 {
		t.Fatalf("Ladder(200) = %+v, want empty", got)
	}
}

func TestNeedsTranscoding(t *testing.T) {
	cases := []struct {
		name string
		r    *Result
		want bool
	}{
		{
			"web native mp4/h264 1080p",
			&Result{Container: "mp4", Video: &VideoStream{Codec: "h264", Height: 1080}},
			false,
		},
		{
			"non web container",
			&Result{Container: "matroska,webm", Video: &VideoStream{Codec: "h264", Height: 1080}},
			true,
		},
		{
			"above 1080p",
			&Result{Container: "mp4", Video: &VideoStream{Codec: "h264", Height: 2160}},
			true,
		},
		{
			"non web codec",
			&Result{Container: "mp4", Video: &VideoStream{Codec: "hevc", Height: 1080}},
			true,
		},
	}

	for _, tc := range cases {
		if got := NeedsTranscoding(tc.r); got != tc.want {
			t.Errorf("%s: NeedsTranscoding() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
