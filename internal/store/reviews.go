package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
)

// ErrAlreadyVoted is returned when a user votes twice on the same review.
var ErrAlreadyVoted = apperr.New(apperr.Conflict, "store.MarkReviewHelpful", "You have already voted on this review")

func (s *Store) ListReviews(ctx context.Context, productID string) ([]models.ProductReview, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, product_id, COALESCE(user_id, ''), user_name, COALESCE(user_email, ''), rating, COALESCE(title, ''),
			content, is_verified_purchase, helpful_count, created_at
		FROM product_reviews
		WHERE product_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, productID)
	if err != nil {
		return nil, dbErr("store.ListReviews", err)
	}
	defer rows.Close()

	reviews := []models.ProductReview{}
	for rows.Next() {
		var r models.ProductReview
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.UserName, &r.UserEmail, &r.Rating, &r.Title,
			&r.Content, &r.IsVerifiedPurchase, &r.HelpfulCount, &r.CreatedAt); err != nil {
			return nil, dbErr("store.ListReviews", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ReviewRatings returns only the rating column, for statistics.
func (s *Store) ReviewRatings(ctx context.Context, productID string) ([]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT rating FROM product_reviews WHERE product_id = ?`, productID)
	if err != nil {
		return nil, dbErr("store.ReviewRatings", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// CreateReview inserts the review and refreshes the product's denormalized
// rating and review count in the same transaction.
func (s *Store) CreateReview(ctx context.Context, r *models.ProductReview) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = now()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_reviews (id, product_id, user_id, user_name, user_email, rating, title, content, is_verified_purchase, helpful_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		`, r.ID, r.ProductID, nullString(r.UserID), r.UserName, nullString(r.UserEmail), r.Rating, nullString(r.Title),
			r.Content, r.IsVerifiedPurchase, r.CreatedAt)
		if err != nil {
			return dbErr("store.CreateReview", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM product_reviews WHERE product_id = ?), 0),
				review_count = (SELECT COUNT(*) FROM product_reviews WHERE product_id = ?)
			WHERE id = ?
		`, r.ProductID, r.ProductID, r.ProductID)
		return dbErr("store.CreateReview rating", err)
	})
}

// MarkReviewHelpful records the user's vote and bumps helpful_count in one
// transaction. The counter is incremented in SQL so concurrent votes never
// lose updates, and the (user_id, review_id) unique key rejects a second
// vote, which rolls the increment back.
func (s *Store) MarkReviewHelpful(ctx context.Context, reviewID, productID, userID string) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE product_reviews SET helpful_count = helpful_count + 1
			WHERE id = ? AND product_id = ?
			RETURNING helpful_count
		`, reviewID, productID).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("store.MarkReviewHelpful", "review %s not found", reviewID)
		}
		if err != nil {
			return dbErr("store.MarkReviewHelpful", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO review_votes (id, user_id, review_id, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID, reviewID, now())
		if isUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		return dbErr("store.MarkReviewHelpful vote", err)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// VotedReviewIDs lists the reviews of productID the user has voted on.
func (s *Store) VotedReviewIDs(ctx context.Context, userID, productID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT v.review_id FROM review_votes v
		JOIN product_reviews r ON r.id = v.review_id
		WHERE v.user_id = ? AND r.product_id = ?
	`, userID, productID)
	if err != nil {
		return nil, dbErr("store.VotedReviewIDs", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUserReviews lists the reviews written by userID, newest first.
func (s *Store) ListUserReviews(ctx context.Context, userID string) ([]models.UserReview, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT r.id, r.product_id, COALESCE(p.name, ''), COALESCE(r.title, ''), r.content, r.rating,
			r.helpful_count, r.created_at
		FROM product_reviews r
		LEFT JOIN products p ON p.id = r.product_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.rowid DESC
	`, userID)
	if err != nil {
		return nil, dbErr("store.ListUserReviews", err)
	}
	defer rows.Close()

	reviews := []models.UserReview{}
	for rows.Next() {
		var r models.UserReview
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.Title, &r.Content, &r.Rating,
			&r.HelpfulCount, &r.CreatedAt); err != nil {
			return nil, dbErr("store.ListUserReviews", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ListUserVotes lists the helpful votes cast by userID with the reviews
// they were cast on, newest first.
func (s *Store) ListUserVotes(ctx context.Context, userID string) ([]models.UserVote, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT v.id, v.review_id, v.created_at, r.product_id, COALESCE(r.title, ''), r.user_name, r.rating
		FROM review_votes v
		JOIN product_reviews r ON r.id = v.review_id
		WHERE v.user_id = ?
		ORDER BY v.created_at DESC, v.rowid DESC
	`, userID)
	if err != nil {
		return nil, dbErr("store.ListUserVotes", err)
	}
	defer rows.Close()

	votes := []models.UserVote{}
	for rows.Next() {
		var v models.UserVote
		if err := rows.Scan(&v.ID, &v.ReviewID, &v.CreatedAt, &v.Review.ProductID, &v.Review.Title,
			&v.Review.UserName, &v.Review.Rating); err != nil {
			return nil, dbErr("store.ListUserVotes", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// HasPurchased reports whether the user has a qualifying order containing
// the product.
func (s *Store) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var statuses []any
	for _, st := range models.OrderStatuses() {
		if st.Qualifies() {
			statuses = append(statuses, string(st))
		}
	}
	args := append([]any{userID, productID}, statuses...)

	var found bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN order_items i ON i.order_id = o.id
			WHERE o.user_id = ? AND i.product_id = ? AND o.status IN (`+placeholders(len(statuses))+`)
		)
	`, args...).Scan(&found)
	if err != nil {
		return false, dbErr("store.HasPurchased", err)
	}
	return found, nil
}
