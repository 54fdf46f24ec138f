package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

const songColumns = `id, sequence, title, artist, youtube_id, created_at, updated_at, deleted_at`

// SongRepository persists resolved track mappings.
//
// At most one live row exists per (title, artist); soft-deleted rows are ignored by every query.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Create inserts a new [models.Song] with a generated ID and sequence
func (r *SongRepository) Create(ctx context.Context, song *models.Song) error {
	sequence, err := NextSequence(ctx, r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	song.SetID(shared.GenerateID())
	song.SetSequence(sequence)

	if err := song.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO songs (id, sequence, title, artist, youtube_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		song.ID(),
		sequence,
		song.Title(),
		song.Artist(),
		song.YouTubeID(),
		song.CreatedAt(),
		song.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// GetByKey retrieves the live mapping for a (title, artist) pair.
func (r *SongRepository) GetByKey(ctx context.Context, key models.TrackKey) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE title = ? AND artist = ? AND deleted_at IS NULL`
	return scanSong(r.db.QueryRowContext(ctx, query, key.Title, key.Artist))
}

// DeleteByKey soft-deletes the live mapping for key so the next poll searches again.
func (r *SongRepository) DeleteByKey(ctx context.Context, key models.TrackKey) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE songs
		SET deleted_at = ?
		WHERE title = ? AND artist = ? AND deleted_at IS NULL
	`, time.Now(), key.Title, key.Artist)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	return requireRow(result, key.String())
}

// List retrieves all live songs matching the given criteria.
//
// Supported criteria: "artist" (exact), "title" (exact), "youtube_id" (exact), "limit" (int).
func (r *SongRepository) List(criteria map[string]any) ([]*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE deleted_at IS NULL`
	args := []any{}

	for _, col := range []string{"artist", "title", "youtube_id"} {
		if v, ok := criteria[col].(string); ok && v != "" {
			query += " AND " + col + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// Count returns the number of live songs.
func (r *SongRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSong scans a single row from either [sql.Row] or [sql.Rows] into a [models.Song]
func scanSong(row scanner) (*models.Song, error) {
	var (
		id        string
		sequence  int
		title     string
		artist    string
		youtubeID string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &title, &artist, &youtubeID, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song := models.NewSong(sequence, models.TrackKey{Title: title, Artist: artist}, youtubeID)
	song.SetID(id)
	song.SetCreatedAt(createdAt)
	song.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		song.SetDeletedAt(&deletedAt.Time)
	}

	return song, nil
}

// requireRow turns a zero-row update into a not-found error naming ref.
func requireRow(result sql.Result, ref string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrSongNotFound, ref)
	}
	return nil
}
