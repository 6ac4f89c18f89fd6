package store

import (
	"context"

	"github.com/pyae198022/ShopHub/internal/models"
)

// TrackProductView records a visit, bumping view_count in place when the user
// has seen the product before.
func (s *Store) TrackProductView(ctx context.Context, userID, productID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO product_views (user_id, product_id, view_count, viewed_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET view_count = view_count + 1, viewed_at = excluded.viewed_at
	`, userID, productID, now())
	return dbErr("store.TrackProductView", err)
}

func (s *Store) BrowsingHistory(ctx context.Context, userID string, limit int) ([]models.ProductView, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.original_price, p.image, p.category, p.stock, p.rating,
			p.review_count, p.tags, p.created_at, p.updated_at, v.view_count, v.viewed_at
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		WHERE v.user_id = ?
		ORDER BY v.viewed_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, dbErr("store.BrowsingHistory", err)
	}
	defer rows.Close()

	history := []models.ProductView{}
	for rows.Next() {
		var pv models.ProductView
		p, err := scanProduct(viewScanner{rows: rows, extra: []any{&pv.ViewCount, &pv.ViewedAt}})
		if err != nil {
			return nil, dbErr("store.BrowsingHistory", err)
		}
		pv.Product = *p
		history = append(history, pv)
	}
	return history, rows.Err()
}

// viewScanner appends the product_views columns to a product scan.
type viewScanner struct {
	rows  rowScanner
	extra []any
}

func (v viewScanner) Scan(dest ...any) error {
	return v.rows.Scan(append(dest, v.extra...)...)
}
