package handlers

import (
	"net/http"

	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/profile"
	"github.com/pyae198022/ShopHub/internal/reviews"
)

// ProfileHandler serves the signed-in user's own profile and activity.
type ProfileHandler struct {
	Profiles *profile.Service
	Reviews  *reviews.Service
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Profiles.Update(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) MyReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reviews.UserReviews(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": list})
}

func (h *ProfileHandler) MyVotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reviews.VotingHistory(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": list})
}
