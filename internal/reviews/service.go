package reviews

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/changefeed"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/validation"
)

const Table = "product_reviews"

type Repository interface {
	ListReviews(ctx context.Context, productID string) ([]models.ProductReview, error)
	ReviewRatings(ctx context.Context, productID string) ([]int, error)
	CreateReview(ctx context.Context, r *models.ProductReview) error
	MarkReviewHelpful(ctx context.Context, reviewID, productID, userID string) (int, error)
	VotedReviewIDs(ctx context.Context, userID, productID string) ([]string, error)
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
	ListUserReviews(ctx context.Context, userID string) ([]models.UserReview, error)
	ListUserVotes(ctx context.Context, userID string) ([]models.UserVote, error)
}

type Publisher interface {
	Publish(e changefeed.Event)
}

type Service struct {
	repo     Repository
	feed     Publisher
	validate *validator.Validate
}

func NewService(repo Repository, feed Publisher) *Service {
	return &Service{repo: repo, feed: feed, validate: validation.New()}
}

func (s *Service) ListReviews(ctx context.Context, productID string) ([]models.ProductReview, error) {
	return s.repo.ListReviews(ctx, productID)
}

// ComputeStats derives the aggregate from the stored ratings on every call.
func (s *Service) ComputeStats(ctx context.Context, productID string) (models.ReviewStats, error) {
	ratings, err := s.repo.ReviewRatings(ctx, productID)
	if err != nil {
		return models.ReviewStats{}, err
	}
	return models.NewReviewStats(ratings), nil
}

// CreateReview validates and stores a review. The verified-purchase flag is
// derived from the reviewer's orders, never taken from the input.
func (s *Service) CreateReview(ctx context.Context, in models.ReviewInput) (*models.ProductReview, error) {
	const op = "reviews.CreateReview"
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserName = strings.TrimSpace(in.UserName)
	in.UserEmail = strings.TrimSpace(in.UserEmail)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Check(s.validate, op, in); err != nil {
		return nil, err
	}
	if in.UserName == "" {
		in.UserName = "Anonymous"
	}

	r := &models.ProductReview{
		ProductID: in.ProductID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		UserEmail: in.UserEmail,
		Rating:    in.Rating,
		Title:     in.Title,
		Content:   in.Content,
	}
	if in.UserID != "" {
		verified, err := s.repo.HasPurchased(ctx, in.UserID, in.ProductID)
		if err != nil {
			return nil, err
		}
		r.IsVerifiedPurchase = verified
	}

	if err := s.repo.CreateReview(ctx, r); err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.NotFoundf(op, "product %s not found", in.ProductID)
		}
		return nil, err
	}
	slog.Info("Review created", "review_id", r.ID, "product_id", r.ProductID, "rating", r.Rating)
	s.publish(changefeed.OpInsert, r.ID)
	return r, nil
}

// MarkHelpful records one helpful vote per user per review and returns the
// new count. A repeat vote returns a Conflict.
func (s *Service) MarkHelpful(ctx context.Context, reviewID, productID, userID string) (int, error) {
	if userID == "" {
		return 0, apperr.New(apperr.Unauthorized, "reviews.MarkHelpful", "You must be signed in to vote")
	}
	count, err := s.repo.MarkReviewHelpful(ctx, reviewID, productID, userID)
	if err != nil {
		return 0, err
	}
	s.publish(changefeed.OpUpdate, reviewID)
	return count, nil
}

// UserVotes lists the review ids of productID the user already voted on.
func (s *Service) UserVotes(ctx context.Context, userID, productID string) ([]string, error) {
	if userID == "" {
		return []string{}, nil
	}
	return s.repo.VotedReviewIDs(ctx, userID, productID)
}

// UserReviews lists the reviews the user has written.
func (s *Service) UserReviews(ctx context.Context, userID string) ([]models.UserReview, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthorized, "reviews.UserReviews", "You must be signed in")
	}
	return s.repo.ListUserReviews(ctx, userID)
}

// VotingHistory lists the user's helpful votes.
func (s *Service) VotingHistory(ctx context.Context, userID string) ([]models.UserVote, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthorized, "reviews.VotingHistory", "You must be signed in")
	}
	return s.repo.ListUserVotes(ctx, userID)
}

func (s *Service) publish(op changefeed.Op, id string) {
	if s.feed != nil {
		s.feed.Publish(changefeed.Event{Table: Table, Op: op, RecordID: id})
	}
}
