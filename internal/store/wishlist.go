package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
)

func (s *Store) ListWishlist(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, product_id, created_at FROM wishlists
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, dbErr("store.ListWishlist", err)
	}
	defer rows.Close()

	entries := []models.WishlistEntry{}
	for rows.Next() {
		var e models.WishlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) AddWishlist(ctx context.Context, userID, productID string) (*models.WishlistEntry, error) {
	e := &models.WishlistEntry{ID: uuid.NewString(), UserID: userID, ProductID: productID, CreatedAt: now()}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO wishlists (id, user_id, product_id, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.UserID, e.ProductID, e.CreatedAt)
	if isUniqueViolation(err) {
		return nil, apperr.Conflictf("store.AddWishlist", "product is already in the wishlist")
	}
	if err != nil {
		return nil, dbErr("store.AddWishlist", err)
	}
	return e, nil
}

func (s *Store) RemoveWishlist(ctx context.Context, userID, productID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM wishlists WHERE user_id = ? AND product_id = ?`, userID, productID)
	return expectRow("store.RemoveWishlist", res, err)
}
