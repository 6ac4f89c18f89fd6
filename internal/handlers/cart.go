package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/cart"
	"github.com/pyae198022/ShopHub/internal/models"
)

// ProductSource looks up the product a visitor adds to the cart.
type ProductSource interface {
	Get(ctx context.Context, id string) (*models.Product, error)
}

// CartHandler binds a cart engine to the visitor's session for the span of
// one request.
type CartHandler struct {
	Store    sessions.Store
	Products ProductSource
}

type cartResponse struct {
	models.Cart
	ItemCount int          `json:"itemCount"`
	Notice    *cart.Notice `json:"notice,omitempty"`
}

// engine opens the visitor's cart. The returned notice pointer is filled in
// by the mutation the handler performs.
func (h *CartHandler) engine(w http.ResponseWriter, r *http.Request) (*cart.Engine, **cart.Notice) {
	notice := new(*cart.Notice)
	e := cart.New(r.Context(),
		&cart.SessionPersister{Store: h.Store, R: r, W: w},
		cart.WithNotifier(func(n cart.Notice) { *notice = &n }),
	)
	return e, notice
}

func respondCart(w http.ResponseWriter, c models.Cart, notice *cart.Notice) {
	writeJSON(w, http.StatusOK, cartResponse{Cart: c, ItemCount: c.ItemCount(), Notice: notice})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, _ := h.engine(w, r)
	respondCart(w, e.Cart(), nil)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, apperr.Validationf("handlers.AddItem", "productId is required"))
		return
	}
	p, err := h.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.InStock() {
		writeError(w, r, apperr.Validationf("handlers.AddItem", "%s is out of stock", p.Name))
		return
	}
	e, notice := h.engine(w, r)
	c := e.AddItem(r.Context(), *p, req.Quantity)
	respondCart(w, c, *notice)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, notice := h.engine(w, r)
	c := e.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity)
	respondCart(w, c, *notice)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	e, notice := h.engine(w, r)
	c := e.RemoveItem(r.Context(), r.PathValue("id"))
	respondCart(w, c, *notice)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	e, notice := h.engine(w, r)
	c := e.Clear(r.Context())
	respondCart(w, c, *notice)
}
