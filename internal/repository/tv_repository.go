package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type TVRepository struct {
	db *sql.DB
}

func NewTVRepository(db *sql.DB) *TVRepository {
	return &TVRepository{db: db}
}

const tvShowColumns = `id, media_item_id, external_id, title, overview, first_air_date,
	season_count, episode_count, status, poster_url, backdrop_url, genres, created_at`

func scanShow(row interface{ Scan(...interface{}) error }) (*models.TvShow, error) {
	s := &models.TvShow{}
	err := row.Scan(&s.ID, &s.MediaItemID, &s.ExternalID, &s.Title, &s.Overview,
		&s.FirstAirDate, &s.SeasonCount, &s.EpisodeCount, &s.Status, &s.PosterURL,
		&s.BackdropURL, &s.Genres, &s.CreatedAt)
	return s, err
}

func (r *TVRepository) CreateShow(s *models.TvShow) error {
	res, err := r.db.Exec(`INSERT INTO tv_shows
		(media_item_id, external_id, title, overview, first_air_date, poster_url, backdrop_url, genres)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.MediaItemID, s.ExternalID, s.Title, s.Overview, s.FirstAirDate, s.PosterURL, s.BackdropURL, s.Genres)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create tv show", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted tv show id", err)
	}
	s.ID = id
	return nil
}

func (r *TVRepository) GetShowByID(id int64) (*models.TvShow, error) {
	row := r.db.QueryRow(`SELECT `+tvShowColumns+` FROM tv_shows WHERE id = ?`, id)
	s, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "tv show not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get tv show", err)
	}
	return s, nil
}

func (r *TVRepository) GetShowByMediaItemID(mediaItemID int64) (*models.TvShow, error) {
	row := r.db.QueryRow(`SELECT `+tvShowColumns+` FROM tv_shows WHERE media_item_id = ?`, mediaItemID)
	s, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get tv show by media item", err)
	}
	return s, nil
}

// FindShowByTitle is used by the indexer to group episodes under an existing
// show instead of creating a duplicate when a season folder is scanned.
func (r *TVRepository) FindShowByTitle(title string) (*models.TvShow, error) {
	row := r.db.QueryRow(`SELECT `+tvShowColumns+` FROM tv_shows WHERE title = ? COLLATE NOCASE LIMIT 1`, title)
	s, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find tv show by title", err)
	}
	return s, nil
}

func (r *TVRepository) ListShows() ([]*models.TvShow, error) {
	rows, err := r.db.Query(`SELECT ` + tvShowColumns + ` FROM tv_shows ORDER BY title`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list tv shows", err)
	}
	defer rows.Close()

	var shows []*models.TvShow
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan tv show", err)
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}

func (r *TVRepository) UpdateShowMetadata(s *models.TvShow) error {
	_, err := r.db.Exec(`UPDATE tv_shows SET external_id = ?, overview = ?, first_air_date = ?,
		status = ?, poster_url = ?, backdrop_url = ?, genres = ? WHERE id = ?`,
		s.ExternalID, s.Overview, s.FirstAirDate, s.Status, s.PosterURL, s.BackdropURL, s.Genres, s.ID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update tv show metadata", err)
	}
	return nil
}

// RecountEpisodes refreshes the show's denormalized season/episode counts
// after the indexer adds or removes episodes.
func (r *TVRepository) RecountEpisodes(showID int64) error {
	_, err := r.db.Exec(`UPDATE tv_shows SET
		season_count = (SELECT COUNT(DISTINCT season_number) FROM episodes WHERE tv_show_id = ?),
		episode_count = (SELECT COUNT(*) FROM episodes WHERE tv_show_id = ?)
		WHERE id = ?`, showID, showID, showID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "recount tv show episodes", err)
	}
	return nil
}

const episodeColumns = `id, tv_show_id, season_number, episode_number, media_item_id,
	title, overview, air_date, still_path, created_at`

func scanEpisode(row interface{ Scan(...interface{}) error }) (*models.Episode, error) {
	e := &models.Episode{}
	err := row.Scan(&e.ID, &e.TvShowID, &e.SeasonNumber, &e.EpisodeNumber, &e.MediaItemID,
		&e.Title, &e.Overview, &e.AirDate, &e.StillPath, &e.CreatedAt)
	return e, err
}

func (r *TVRepository) CreateEpisode(e *models.Episode) error {
	res, err := r.db.Exec(`INSERT INTO episodes
		(tv_show_id, season_number, episode_number, media_item_id, title, overview, air_date, still_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TvShowID, e.SeasonNumber, e.EpisodeNumber, e.MediaItemID, e.Title, e.Overview, e.AirDate, e.StillPath)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create episode", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted episode id", err)
	}
	e.ID = id
	return nil
}

func (r *TVRepository) GetEpisodeByID(id int64) (*models.Episode, error) {
	row := r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "episode not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get episode", err)
	}
	return e, nil
}

func (r *TVRepository) FindEpisode(showID int64, season, episode int) (*models.Episode, error) {
	row := r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number = ? AND episode_number = ?`, showID, season, episode)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find episode", err)
	}
	return e, nil
}

func (r *TVRepository) ListEpisodesByShow(showID int64) ([]*models.Episode, error) {
	rows, err := r.db.Query(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? ORDER BY season_number, episode_number`, showID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list episodes by show", err)
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan episode", err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// NextEpisode implements spec.md §6's "next-in-season, else first-of-
// next-season" rule, returning nil if e is the last episode of the show.
func (r *TVRepository) NextEpisode(e *models.Episode) (*models.Episode, error) {
	row := r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number = ? AND episode_number > ?
		ORDER BY episode_number ASC LIMIT 1`, e.TvShowID, e.SeasonNumber, e.EpisodeNumber)
	next, err := scanEpisode(row)
	if err == nil {
		return next, nil
	}
	if err != sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.Internal, "find next episode in season", err)
	}

	row = r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number > ?
		ORDER BY season_number ASC, episode_number ASC LIMIT 1`, e.TvShowID, e.SeasonNumber)
	next, err = scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find first episode of next season", err)
	}
	return next, nil
}

// PreviousEpisode is NextEpisode's symmetric counterpart: previous-in-
// season, else last-of-previous-season.
func (r *TVRepository) PreviousEpisode(e *models.Episode) (*models.Episode, error) {
	row := r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number = ? AND episode_number < ?
		ORDER BY episode_number DESC LIMIT 1`, e.TvShowID, e.SeasonNumber, e.EpisodeNumber)
	prev, err := scanEpisode(row)
	if err == nil {
		return prev, nil
	}
	if err != sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.Internal, "find previous episode in season", err)
	}

	row = r.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number < ?
		ORDER BY season_number DESC, episode_number DESC LIMIT 1`, e.TvShowID, e.SeasonNumber)
	prev, err = scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find last episode of previous season", err)
	}
	return prev, nil
}

func (r *TVRepository) ListEpisodesBySeason(showID int64, season int) ([]*models.Episode, error) {
	rows, err := r.db.Query(`SELECT `+episodeColumns+` FROM episodes
		WHERE tv_show_id = ? AND season_number = ? ORDER BY episode_number`, showID, season)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list episodes by season", err)
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan episode", err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}
