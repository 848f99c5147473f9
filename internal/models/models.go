// Package models defines the persistent entities of the media library: the
// tagged MediaItem variant, its TvShow/Episode companions, remote Sources,
// Subtitles, Users and per-user WatchRecords.
package models

import "time"

// MediaKind discriminates the MediaItem tagged variant.
type MediaKind string

const (
	MediaMovie   MediaKind = "movie"
	MediaTvShow  MediaKind = "tv_show"
	MediaEpisode MediaKind = "episode"
)

// SourceKind identifies the protocol a Source is reached through.
type SourceKind string

const (
	SourceLocal SourceKind = "local"
	SourceFTP   SourceKind = "ftp"
	SourceSMB   SourceKind = "smb"
	SourceUPnP  SourceKind = "upnp"
)

// SubtitleFormat is the container/codec of a Subtitle file.
type SubtitleFormat string

const (
	SubtitleSRT SubtitleFormat = "srt"
	SubtitleVTT SubtitleFormat = "vtt"
	SubtitleASS SubtitleFormat = "ass"
)

// MediaItem is a single file known to the library. Kind discriminates
// whether it is a movie, the container record for a TV show, or a single
// episode.
type MediaItem struct {
	ID              int64      `json:"id" db:"id"`
	Kind            MediaKind  `json:"kind" db:"kind"`
	Title           string     `json:"title" db:"title"`
	Year            *int       `json:"year,omitempty" db:"year"`
	DurationSeconds *float64   `json:"durationSeconds,omitempty" db:"duration_seconds"`
	FilePath        string     `json:"filePath" db:"file_path"`
	FileSize        int64      `json:"fileSize" db:"file_size"`
	SourceKind      SourceKind `json:"sourceKind" db:"source_kind"`
	SourceID        *int64     `json:"sourceId,omitempty" db:"source_id"`
	ExternalID      *string    `json:"externalId,omitempty" db:"external_id"`
	PosterURL       *string    `json:"posterUrl,omitempty" db:"poster_url"`
	BackdropURL     *string    `json:"backdropUrl,omitempty" db:"backdrop_url"`
	Overview        *string    `json:"overview,omitempty" db:"overview"`
	Rating          *float64   `json:"rating,omitempty" db:"rating"`
	Genres          *string    `json:"genres,omitempty" db:"genres"`
	Cast            *string    `json:"cast,omitempty" db:"cast_members"`
	QualityLabel    string     `json:"qualityLabel" db:"quality_label"`
	AddedAt         time.Time  `json:"addedAt" db:"added_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// TvShow is the parent container record for a series. It may exist with
// zero Episodes while a scan is still in progress.
type TvShow struct {
	ID           int64     `json:"id" db:"id"`
	MediaItemID  int64     `json:"mediaItemId" db:"media_item_id"`
	ExternalID   *string   `json:"externalId,omitempty" db:"external_id"`
	Title        string    `json:"title" db:"title"`
	Overview     *string   `json:"overview,omitempty" db:"overview"`
	FirstAirDate *string   `json:"firstAirDate,omitempty" db:"first_air_date"`
	SeasonCount  int       `json:"seasonCount" db:"season_count"`
	EpisodeCount int       `json:"episodeCount" db:"episode_count"`
	Status       *string   `json:"status,omitempty" db:"status"`
	PosterURL    *string   `json:"posterUrl,omitempty" db:"poster_url"`
	BackdropURL  *string   `json:"backdropUrl,omitempty" db:"backdrop_url"`
	Genres       *string   `json:"genres,omitempty" db:"genres"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Episode belongs to a TvShow and wraps the Episode-variant MediaItem that
// holds its file information.
type Episode struct {
	ID            int64     `json:"id" db:"id"`
	TvShowID      int64     `json:"tvShowId" db:"tv_show_id"`
	SeasonNumber  int       `json:"seasonNumber" db:"season_number"`
	EpisodeNumber int       `json:"episodeNumber" db:"episode_number"`
	MediaItemID   int64     `json:"mediaItemId" db:"media_item_id"`
	Title         *string   `json:"title,omitempty" db:"title"`
	Overview      *string   `json:"overview,omitempty" db:"overview"`
	AirDate       *string   `json:"airDate,omitempty" db:"air_date"`
	StillPath     *string   `json:"stillPath,omitempty" db:"still_path"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Source is a remote or local origin that the Indexer can walk.
type Source struct {
	ID                  int64      `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Protocol            SourceKind `json:"protocol" db:"protocol"`
	Host                *string    `json:"host,omitempty" db:"host"`
	Port                *int       `json:"port,omitempty" db:"port"`
	Username            *string    `json:"username,omitempty" db:"username"`
	EncryptedCredential *string    `json:"-" db:"encrypted_credential"`
	BasePath            *string    `json:"basePath,omitempty" db:"base_path"`
	Domain              *string    `json:"domain,omitempty" db:"domain"`
	Enabled             bool       `json:"enabled" db:"enabled"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
}

// Subtitle is a sidecar text track for a MediaItem.
type Subtitle struct {
	ID          int64          `json:"id" db:"id"`
	MediaItemID int64          `json:"mediaItemId" db:"media_item_id"`
	Language    string         `json:"language" db:"language"`
	Label       string         `json:"label" db:"label"`
	FilePath    string         `json:"filePath" db:"file_path"`
	Format      SubtitleFormat `json:"format" db:"format"`
	IsDefault   bool           `json:"isDefault" db:"is_default"`
}

// User is an authenticated household member.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// WatchRecord tracks one user's progress through one MediaItem.
type WatchRecord struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	MediaItemID    int64     `json:"mediaItemId" db:"media_item_id"`
	CurrentSeconds float64   `json:"current" db:"current_seconds"`
	TotalSeconds   float64   `json:"duration" db:"total_seconds"`
	Progress       float64   `json:"progress" db:"progress"`
	Completed      bool      `json:"completed" db:"completed"`
	WatchCount     int       `json:"watchCount" db:"watch_count"`
	LastWatched    time.Time `json:"lastWatched" db:"last_watched"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// CompletionThreshold is the progress fraction at or above which a
// WatchRecord is considered completed (spec.md §3).
const CompletionThreshold = 0.95

// ComputeProgress derives progress/completed from a position and duration,
// matching the WatchRecord invariants.
func ComputeProgress(current, total float64) (progress float64, completed bool) {
	if total > 0 {
		progress = current / total
	}
	if progress > 1 {
		progress = 1
	} else if progress < 0 {
		progress = 0
	}
	completed = progress >= CompletionThreshold
	return
}
