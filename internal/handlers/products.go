package handlers

import (
	"net/http"
	"strconv"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/auth"
	"github.com/pyae198022/ShopHub/internal/catalog"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/reviews"
	"github.com/pyae198022/ShopHub/internal/wishlist"
	"github.com/shopspring/decimal"
)

// ProductHandler serves the public catalog and the customer actions that
// hang off a product: reviews, votes, wishlist and browsing history.
type ProductHandler struct {
	Catalog  *catalog.Service
	Reviews  *reviews.Service
	Wishlist *wishlist.Service
}

func userID(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	const op = "handlers.parseFilter"
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Tag:      q.Get("tag"),
		Sort:     q.Get("sort"),
		InStock:  q.Get("inStock") == "true",
	}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		if raw := q.Get(key); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return f, apperr.Validationf(op, "%s must be a number", key)
			}
			*dst = &d
		}
	}
	for key, dst := range map[string]*int{"page": &f.Page, "pageSize": &f.PageSize} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return f, apperr.Validationf(op, "%s must be an integer", key)
			}
			*dst = n
		}
	}
	return f, nil
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get returns one product and records the view for signed-in users.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Catalog.TrackView(r.Context(), userID(r), id)
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

type reviewList struct {
	Reviews        []models.ProductReview `json:"reviews"`
	VotedReviewIDs []string               `json:"votedReviewIds"`
}

func (h *ProductHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	list, err := h.Reviews.ListReviews(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	votes, err := h.Reviews.UserVotes(r.Context(), userID(r), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.ProductReview{}
	}
	writeJSON(w, http.StatusOK, reviewList{Reviews: list, VotedReviewIDs: votes})
}

func (h *ProductHandler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reviews.ComputeStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CreateReview accepts anonymous reviews with a name. Signed-in reviewers
// are bound to their account.
func (h *ProductHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.ProductID = r.PathValue("id")
	in.UserID = ""
	if id, ok := auth.FromContext(r.Context()); ok {
		in.UserID = id.UserID
		if in.UserEmail == "" {
			in.UserEmail = id.Email
		}
	}
	review, err := h.Reviews.CreateReview(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

type helpfulRequest struct {
	ProductID string `json:"productId"`
}

func (h *ProductHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	var req helpfulRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	count, err := h.Reviews.MarkHelpful(r.Context(), r.PathValue("id"), req.ProductID, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"helpfulCount": count})
}

func (h *ProductHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Wishlist.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.WishlistEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *ProductHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")
	if _, err := h.Catalog.Get(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}
	added, err := h.Wishlist.Toggle(r.Context(), userID(r), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": added})
}

func (h *ProductHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	views, err := h.Catalog.BrowsingHistory(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []models.ProductView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}
