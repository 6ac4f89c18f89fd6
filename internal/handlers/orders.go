package handlers

import (
	"net/http"

	"github.com/pyae198022/ShopHub/internal/auth"
	"github.com/pyae198022/ShopHub/internal/changefeed"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/orders"
)

type OrderHandler struct {
	Orders *orders.Manager
	Carts  *CartHandler
	Feed   *changefeed.Hub
}

type checkoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	CardNumber      string                 `json:"cardNumber"`
}

type checkoutResponse struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

// Checkout turns the visitor's cart into an order. No payment is taken;
// only the last digits of the card are kept as a label. The cart is
// cleared once the order exists.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, _ := h.Carts.engine(w, r)
	id, err := h.Orders.CreateOrder(r.Context(), userID(r), e.Cart(), req.ShippingAddress, orders.PaymentDescriptor(req.CardNumber))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.Clear(r.Context())
	writeJSON(w, http.StatusCreated, checkoutResponse{OrderID: id, Status: models.StatusConfirmed})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListUserOrders(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	o, err := h.Orders.GetOrderFor(r.Context(), r.PathValue("id"), id.UserID, id.IsAdmin())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Live streams order change events. Customers only hear about their own
// orders; admins hear about all of them. Clients re-fetch on each message.
func (h *OrderHandler) Live(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	filter := changefeed.Filter{Table: orders.Table}
	if !id.IsAdmin() {
		filter.UserID = id.UserID
	}
	h.Feed.ServeWS(w, r, filter)
}
