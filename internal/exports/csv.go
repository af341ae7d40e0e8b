// Package exports renders order listings as semicolon-separated CSV for
// the admin export commands.
package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"cleanbot/internal/model"
)

var basicHeader = []string{"id", "city", "date", "time", "status", "manager_id", "master_id"}

var fullHeader = []string{
	"id", "city", "address", "date", "time", "type", "equipment", "conditions",
	"comment", "client_contact", "manager_contact", "manager_id", "master_id",
	"status", "created_at", "photos_before", "photos_after",
}

// Basic renders the short export: one row per order, header always
// present.
func Basic(orders []model.Order) ([]byte, error) {
	return render(basicHeader, orders, func(o model.Order) []string {
		return []string{
			strconv.FormatInt(o.ID, 10),
			o.City,
			o.Date,
			o.Time,
			string(o.Status),
			strconv.FormatInt(o.ManagerID, 10),
			masterField(o),
		}
	})
}

// Full renders the complete export including photo file ids grouped per
// category. photos maps an order id to its photo log.
func Full(orders []model.Order, photos map[int64][]model.OrderPhoto) ([]byte, error) {
	return render(fullHeader, orders, func(o model.Order) []string {
		before, after := splitPhotos(photos[o.ID])
		return []string{
			strconv.FormatInt(o.ID, 10),
			o.City,
			o.Address,
			o.Date,
			o.Time,
			o.Type,
			o.Equipment,
			o.Conditions,
			o.Comment,
			o.ClientContact,
			o.ManagerContact,
			strconv.FormatInt(o.ManagerID, 10),
			masterField(o),
			string(o.Status),
			o.CreatedAt.Format("2006-01-02 15:04:05"),
			before,
			after,
		}
	})
}

// GroupPhotos buckets a flat photo listing by order id, preserving upload
// order.
func GroupPhotos(photos []model.OrderPhoto) map[int64][]model.OrderPhoto {
	out := make(map[int64][]model.OrderPhoto)
	for _, p := range photos {
		out[p.OrderID] = append(out[p.OrderID], p)
	}
	return out
}

func render(header []string, orders []model.Order, row func(model.Order) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, o := range orders {
		if err := w.Write(row(o)); err != nil {
			return nil, fmt.Errorf("write order %d: %w", o.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func masterField(o model.Order) string {
	if !o.MasterID.Valid {
		return ""
	}
	return strconv.FormatInt(o.MasterID.Int64, 10)
}

func splitPhotos(photos []model.OrderPhoto) (before, after string) {
	var b, a []string
	for _, p := range photos {
		switch p.Type {
		case model.PhotoBefore:
			b = append(b, p.FileID)
		case model.PhotoAfter:
			a = append(a, p.FileID)
		}
	}
	return strings.Join(b, ","), strings.Join(a, ",")
}
