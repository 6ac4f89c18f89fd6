package models

import "time"

type ProductReview struct {
	ID                 string    `json:"id"`
	ProductID          string    `json:"product_id"`
	UserID             string    `json:"user_id,omitempty"` // empty for anonymous reviews
	UserName           string    `json:"user_name"`
	UserEmail          string    `json:"user_email,omitempty"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title,omitempty"`
	Content            string    `json:"content"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	HelpfulCount       int       `json:"helpful_count"`
	CreatedAt          time.Time `json:"created_at"`
}

type ReviewInput struct {
	ProductID string `json:"product_id" validate:"required"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name" validate:"required_without=UserID"`
	UserEmail string `json:"user_email" validate:"omitempty,email"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Title     string `json:"title" validate:"max=200"`
	Content   string `json:"content" validate:"required,max=5000"`
}

type ReviewVote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ReviewID  string    `json:"review_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewStats struct {
	AverageRating      float64     `json:"averageRating"`
	TotalReviews       int         `json:"totalReviews"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

// NewReviewStats computes statistics from ratings. Ratings outside 1..5 are
// counted in the average but not in the distribution.
func NewReviewStats(ratings []int) ReviewStats {
	stats := ReviewStats{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	if len(ratings) == 0 {
		return stats
	}
	sum := 0
	for _, r := range ratings {
		sum += r
		if _, ok := stats.RatingDistribution[r]; ok {
			stats.RatingDistribution[r]++
		}
	}
	stats.TotalReviews = len(ratings)
	stats.AverageRating = float64(sum) / float64(len(ratings))
	return stats
}

// UserReview is a review as listed on its author's profile.
type UserReview struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	Rating       int       `json:"rating"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserVote is a helpful vote with a summary of the review it was cast on.
type UserVote struct {
	ID        string      `json:"id"`
	ReviewID  string      `json:"review_id"`
	CreatedAt time.Time   `json:"created_at"`
	Review    VotedReview `json:"review"`
}

type VotedReview struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title,omitempty"`
	UserName  string `json:"user_name"`
	Rating    int    `json:"rating"`
}
