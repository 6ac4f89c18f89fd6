package handlers

import "net/http"

// Handlers groups everything Register wires onto the mux.
type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Admin    *AdminHandler
	Profile  *ProfileHandler
	Limiter  *RateLimiter // optional; guards login and checkout
}

// Register adds the JSON API routes to mux. Callers wrap the mux with
// IdentifyMiddleware so the auth checks see the caller.
func Register(mux *http.ServeMux, h Handlers) {
	// Public catalog
	mux.HandleFunc("GET /api/products", h.Products.List)
	mux.HandleFunc("GET /api/products/{id}", h.Products.Get)
	mux.HandleFunc("GET /api/categories", h.Products.Categories)
	mux.HandleFunc("GET /api/products/{id}/reviews", h.Products.ListReviews)
	mux.HandleFunc("GET /api/products/{id}/reviews/stats", h.Products.ReviewStats)
	mux.HandleFunc("POST /api/products/{id}/reviews", h.Products.CreateReview)

	// Cart (session cookie)
	mux.HandleFunc("GET /api/cart", h.Cart.Get)
	mux.HandleFunc("POST /api/cart/items", h.Cart.AddItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.Cart.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.Cart.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", h.Cart.Clear)

	// Auth
	mux.HandleFunc("POST /api/login", h.Limiter.Middleware(h.Auth.Login))
	mux.HandleFunc("POST /api/logout", h.Auth.Logout)
	mux.HandleFunc("GET /api/csrf", h.Auth.CSRFToken)
	mux.HandleFunc("GET /api/me", RequireUser(h.Auth.Me))

	// Customer
	mux.HandleFunc("POST /api/checkout", RequireUser(h.Limiter.Middleware(h.Orders.Checkout)))
	mux.HandleFunc("GET /api/orders", RequireUser(h.Orders.List))
	mux.HandleFunc("GET /api/orders/live", RequireUser(h.Orders.Live))
	mux.HandleFunc("GET /api/orders/{id}", RequireUser(h.Orders.Get))
	mux.HandleFunc("POST /api/reviews/{id}/helpful", RequireUser(h.Products.MarkHelpful))
	mux.HandleFunc("GET /api/wishlist", RequireUser(h.Products.ListWishlist))
	mux.HandleFunc("POST /api/wishlist/{productID}/toggle", RequireUser(h.Products.ToggleWishlist))
	mux.HandleFunc("GET /api/history", RequireUser(h.Products.History))
	mux.HandleFunc("GET /api/me/reviews", RequireUser(h.Profile.MyReviews))
	mux.HandleFunc("GET /api/me/votes", RequireUser(h.Profile.MyVotes))
	mux.HandleFunc("GET /api/profile", RequireUser(h.Profile.Get))
	mux.HandleFunc("PUT /api/profile", RequireUser(h.Profile.Update))

	// Admin
	mux.HandleFunc("GET /api/admin/stats", RequireAdmin(h.Admin.Dashboard))
	mux.HandleFunc("GET /api/admin/orders", RequireAdmin(h.Admin.ListOrders))
	mux.HandleFunc("PATCH /api/admin/orders/{id}", RequireAdmin(h.Admin.UpdateOrder))
	mux.HandleFunc("POST /api/admin/orders/{id}/notify", RequireAdmin(h.Admin.NotifyOrder))
	mux.HandleFunc("POST /api/admin/products", RequireAdmin(h.Admin.CreateProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}", RequireAdmin(h.Admin.UpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", RequireAdmin(h.Admin.DeleteProduct))
	mux.HandleFunc("POST /api/admin/products/{id}/image", RequireAdmin(h.Admin.UploadImage))
	mux.HandleFunc("POST /api/admin/products/bulk-stock", RequireAdmin(h.Admin.BulkStock))
	mux.HandleFunc("POST /api/admin/products/bulk-delete", RequireAdmin(h.Admin.BulkDelete))
}
