package store

import (
	"context"
	"fmt"

	"cleanbot/internal/model"
)

const photoColumns = `id, order_id, file_id, type, uploaded_at`

// AddOrderPhoto appends a photo record and fills its id and timestamp.
func (s *Store) AddOrderPhoto(ctx context.Context, p *model.OrderPhoto) error {
	const q = `
		INSERT INTO order_photos (order_id, file_id, type)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at`
	err := s.db.QueryRowxContext(ctx, q, p.OrderID, p.FileID, p.Type).
		Scan(&p.ID, &p.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert photo for order %d: %w", p.OrderID, err)
	}
	return nil
}

// OrderPhotos lists the photo records of one order in upload order.
func (s *Store) OrderPhotos(ctx context.Context, orderID int64) ([]model.OrderPhoto, error) {
	var out []model.OrderPhoto
	q := `SELECT ` + photoColumns + ` FROM order_photos WHERE order_id = $1 ORDER BY id`
	if err := s.db.SelectContext(ctx, &out, q, orderID); err != nil {
		return nil, fmt.Errorf("select photos for order %d: %w", orderID, err)
	}
	return out, nil
}

// AllOrderPhotos lists every photo record grouped by order. Used by the
// full export.
func (s *Store) AllOrderPhotos(ctx context.Context) ([]model.OrderPhoto, error) {
	var out []model.OrderPhoto
	q := `SELECT ` + photoColumns + ` FROM order_photos ORDER BY order_id, id`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("select photos: %w", err)
	}
	return out, nil
}
