package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

const deliveryColumns = `id, viewer_id, title, artist, youtube_id, source, delivered_at`

// DeliveryRepository stores the append-only history of links pushed to viewers.
type DeliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a new DeliveryRepository with the given database connection
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record inserts a delivery with a generated ID.
func (r *DeliveryRepository) Record(ctx context.Context, delivery *models.Delivery) error {
	delivery.SetID(shared.GenerateID())

	if err := delivery.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		delivery.ID(),
		delivery.ViewerID(),
		delivery.Title(),
		delivery.Artist(),
		delivery.YouTubeID(),
		string(delivery.Source()),
		delivery.DeliveredAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}

	return nil
}

// Recent returns up to limit deliveries, newest first. An empty viewerID matches every viewer.
func (r *DeliveryRepository) Recent(ctx context.Context, viewerID string, limit int) ([]*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries`
	args := []any{}

	if viewerID != "" {
		query += " WHERE viewer_id = ?"
		args = append(args, viewerID)
	}

	query += " ORDER BY delivered_at DESC, rowid DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return deliveries, nil
}

// Prune removes deliveries older than before and returns how many were removed.
// Timestamps are stored in UTC so they compare in order.
func (r *DeliveryRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM deliveries WHERE delivered_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}
	return result.RowsAffected()
}

func scanDelivery(row scanner) (*models.Delivery, error) {
	var (
		id          string
		viewerID    string
		title       string
		artist      string
		youtubeID   string
		source      string
		deliveredAt time.Time
	)

	if err := row.Scan(&id, &viewerID, &title, &artist, &youtubeID, &source, &deliveredAt); err != nil {
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}

	d := models.NewDelivery(viewerID, models.TrackKey{Title: title, Artist: artist}, models.NewVideoMatch(youtubeID), models.MatchSource(source))
	d.SetID(id)
	d.SetDeliveredAt(deliveredAt)
	return d, nil
}
