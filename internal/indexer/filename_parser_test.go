package indexer

import "testing"

func TestParseMovieFilename(t *testing.T) {
	cases := []struct {
		filename  string
		wantTitle string
		wantYear  *int
	}{
		{"Inception.2010.1080p.BluRay.x264-GROUP.mkv", "Inception", intPtr(2010)},
		{"The.Matrix.1999.720p.WEB-DL.AAC.mkv", "The Matrix", intPtr(1999)},
		{"The Matrix (1999) 1080p.mp4", "The Matrix", intPtr(1999)},
		{"Plain Movie.mp4", "Plain Movie", nil},
	}

	for _, tc := range cases {
		got := ParseMovieFilename(tc.filename)
		if got.Title != tc.wantTitle {
			t.Errorf("ParseMovieFilename(%q).Title = %q, want %q", tc.filename, got.Title, tc.wantTitle)
		}
		if (got.Year == nil) != (tc.wantYear == nil) {
			t.Errorf("ParseMovieFilename(%q).Year = %v, want %v", tc.filename, got.Year, tc.wantYear)
			continue
		}
		if got.Year != nil && *got.Year != *tc.wantYear {
			t.Errorf("ParseMovieFilename(%q).Year = %d, want %d", tc.filename, *got.Year, *tc.wantYear)
		}
	}
}

func TestParseEpisodeFilename(t *testing.T) {
	cases := []struct {
		filename      string
		wantOK        bool
		wantShow      string
		wantSeason    int
		wantEpisode   int
		wantEpisodeEnd int
	}{
		{"Breaking.Bad.S01E05.720p.mkv", true, "Breaking Bad", 1, 5, 5},
		{"Breaking.Bad.S01E05E06.mkv", true, "Breaking Bad", 1, 5, 6},
		{"The.Office.3x10.avi", true, "The Office", 3, 10, 10},
		{"Not.A.TV.Episode.mkv", false, "", 0, 0, 0},
	}

	for _, tc := range cases {
		got, ok := ParseEpisodeFilename(tc.filename)
		if ok != tc.wantOK {
			t.Errorf("ParseEpisodeFilename(%q) ok = %v, want %v", tc.filename, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if got.ShowTitle != tc.wantShow || got.Season != tc.wantSeason ||
			got.Episode != tc.wantEpisode || got.EpisodeEnd != tc.wantEpisodeEnd {
			t.Errorf("ParseEpisodeFilename(%q) = %+v, want {%q %d %d %d}",
				tc.filename, got, tc.wantShow, tc.wantSeason, tc.wantEpisode, tc.wantEpisodeEnd)
		}
	}
}

func TestParseSubtitleSidecar(t *testing.T) {
	cases := []struct {
		filename string
		wantLang string
		wantOK   bool
	}{
		{"Movie.en.srt", "en", true},
		{"Movie.eng.srt", "en", true},
		{"Movie.fre.srt", "fr", true},
		{"Movie.srt", "", false},
		{"Movie.xx.srt", "", false},
	}

	for _, tc := range cases {
		lang, ok := ParseSubtitleSidecar(tc.filename)
		if lang != tc.wantLang || ok != tc.wantOK {
			t.Errorf("ParseSubtitleSidecar(%q) = (%q, %v), want (%q, %v)",
				tc.filename, lang, ok, tc.wantLang, tc.wantOK)
		}
	}
}

func intPtr(v int) *int { return &v }
