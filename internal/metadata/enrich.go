package metadata

import (
	"context"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
	"streamvault/internal/repository"
)

// Enricher wires a Provider to the repositories a metadata fetch updates.
type Enricher struct {
	provider  *Provider
	mediaRepo *repository.MediaRepository
	tvRepo    *repository.TVRepository
}

func NewEnricher(provider *Provider, mediaRepo *repository.MediaRepository, tvRepo *repository.TVRepository) *Enricher {
	return &Enricher{provider: provider, mediaRepo: mediaRepo, tvRepo: tvRepo}
}

// Enrich fetches and applies external metadata for a single MediaItem,
// following the (media_id) payload the async job dispatcher hands it.
func (e *Enricher) Enrich(ctx context.Context, mediaItemID int64) error {
	if !e.provider.Configured() {
		return nil
	}

	item, err := e.mediaRepo.GetByID(mediaItemID)
	if err != nil {
		return err
	}
	if item.Kind == models.MediaEpisode {
		// Episodes borrow their show's metadata; nothing to enrich per-episode.
		return nil
	}

	matches, err := e.provider.Search(ctx, item.Title, item.Year, item.Kind)
	if err != nil {
		return err
	}
	match, ok := BestMatch(matches)
	if !ok {
		return apperr.New(apperr.NotFound, "no metadata match found")
	}

	genres := joinGenres(match.Genres)
	item.ExternalID = &match.ExternalID
	item.PosterURL = &match.PosterURL
	item.BackdropURL = &match.BackdropURL
	item.Overview = &match.Overview
	item.Rating = &match.Rating
	item.Genres = &genres

	if err := e.mediaRepo.UpdateMetadata(mediaItemID, item); err != nil {
		return err
	}

	if item.Kind == models.MediaTvShow {
		show, err := e.tvRepo.GetShowByMediaItemID(mediaItemID)
		if err == nil && show != nil {
			show.ExternalID = &match.ExternalID
			show.Overview = &match.Overview
			show.PosterURL = &match.PosterURL
			show.BackdropURL = &match.BackdropURL
			show.Genres = &genres
			e.tvRepo.UpdateShowMetadata(show)
		}
	}
	return nil
}
