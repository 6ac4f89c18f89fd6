package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/catalog"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/orders"
	"github.com/pyae198022/ShopHub/internal/store"
)

const maxUploadBytes = 10 << 20 // 10MB

// DashboardSource provides the admin dashboard figures.
type DashboardSource interface {
	GetDashboardStats(ctx context.Context) (*store.DashboardStats, error)
}

type AdminHandler struct {
	Orders  *orders.Manager
	Catalog *catalog.Service
	Stats   DashboardSource
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetDashboardStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.OrderFilter{Status: models.OrderStatus(q.Get("status")), Search: q.Get("search")}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	page, err := h.Orders.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page.Orders == nil {
		page.Orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, page)
}

// updateOrderRequest is an OrderUpdate plus an optional request to email
// the customer once the update is stored.
type updateOrderRequest struct {
	models.OrderUpdate
	Notify bool `json:"notify"`
}

type updateOrderResponse struct {
	Order        *models.Order         `json:"order"`
	Notification *orders.NotifyResult `json:"notification,omitempty"`
}

func (h *AdminHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	o, err := h.Orders.UpdateOrder(r.Context(), id, req.OrderUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := updateOrderResponse{Order: o}
	if req.Notify {
		// The update stands even if the email fails.
		res := h.Orders.NotifyStatusChange(r.Context(), id, orders.NotifyRequest{Status: o.Status})
		if !res.Success {
			slog.Warn("Order updated but notification failed", "order_id", id, "error", res.Error, "retryable", res.Retryable)
		}
		resp.Notification = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

// NotifyOrder sends a status email. The result is always returned in the
// body; the status code tells the client whether a retry may help.
func (h *AdminHandler) NotifyOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.NotifyRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res := h.Orders.NotifyStatusChange(r.Context(), r.PathValue("id"), req)
	status := http.StatusOK
	switch {
	case res.Success:
	case res.Retryable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage takes a multipart "image" field, resizes it and points the
// product at the stored file.
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Validationf("handlers.UploadImage", "File too large."))
			return
		}
		writeError(w, r, apperr.Wrap(apperr.Validation, "handlers.UploadImage", "invalid upload", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, apperr.Validationf("handlers.UploadImage", "image is required"))
		return
	}
	defer file.Close()

	p, err := h.Catalog.SetImage(r.Context(), r.PathValue("id"), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type bulkRequest struct {
	IDs   []string `json:"ids"`
	Stock *int     `json:"stock,omitempty"`
}

func (h *AdminHandler) BulkStock(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Stock == nil {
		writeError(w, r, apperr.Validationf("handlers.BulkStock", "stock is required"))
		return
	}
	n, err := h.Catalog.BulkUpdateStock(r.Context(), req.IDs, *req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *AdminHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Catalog.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
