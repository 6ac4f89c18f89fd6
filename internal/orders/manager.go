package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/cart"
	"github.com/pyae198022/ShopHub/internal/changefeed"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/notify"
	"github.com/pyae198022/ShopHub/internal/validation"
)

const Table = "orders"

type Repository interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	CountOrders(ctx context.Context, f models.OrderFilter) (int, error)
	UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate, expectStatus models.OrderStatus) error
	OrderStats(ctx context.Context) (*models.OrderStats, error)
}

// UserDirectory resolves an account's registered email.
type UserDirectory interface {
	UserEmail(ctx context.Context, userID string) (string, error)
}

type Publisher interface {
	Publish(e changefeed.Event)
}

type Renderer interface {
	Render(data notify.StatusEmail) (subject, html string, err error)
}

type Option func(*Manager)

// WithStrictTransitions makes UpdateOrder reject backward status moves and
// detect concurrent status changes.
func WithStrictTransitions(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

func WithStoreName(name string) Option {
	return func(m *Manager) { m.storeName = name }
}

type Manager struct {
	repo          Repository
	users         UserDirectory
	feed          Publisher
	mailer        notify.Mailer
	templates     Renderer
	validate      *validator.Validate
	strict        bool
	notifyTimeout time.Duration
	storeName     string
}

func NewManager(repo Repository, users UserDirectory, feed Publisher, mailer notify.Mailer, templates Renderer, opts ...Option) *Manager {
	m := &Manager{
		repo:          repo,
		users:         users,
		feed:          feed,
		mailer:        mailer,
		templates:     templates,
		validate:      validation.New(),
		notifyTimeout: 10 * time.Second,
		storeName:     "ShopHub",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PaymentDescriptor is the decorative label stored on the order. Only the
// last four digits of the card are kept.
func PaymentDescriptor(cardNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cardNumber)
	if len(digits) < 4 {
		return "Card"
	}
	return "Card ending in " + digits[len(digits)-4:]
}

// CreateOrder freezes the cart into a confirmed order. Totals are derived
// from the line items' snapshot prices, and the header and items are
// written atomically.
func (m *Manager) CreateOrder(ctx context.Context, userID string, c models.Cart, addr models.ShippingAddress, paymentMethod string) (string, error) {
	const op = "orders.CreateOrder"
	if userID == "" {
		return "", apperr.New(apperr.Unauthorized, op, "You must be signed in to place an order")
	}
	if c.IsEmpty() {
		return "", apperr.Validationf(op, "cart is empty")
	}
	addr = trimAddress(addr)
	if err := validation.Check(m.validate, op, addr); err != nil {
		return "", err
	}

	totals := cart.Calculate(c.Items)
	order := &models.Order{
		UserID:          userID,
		Status:          models.StatusConfirmed,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		ShippingAddress: addr,
		PaymentMethod:   strings.TrimSpace(paymentMethod),
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "Card"
	}
	for _, li := range c.Items {
		if li.Quantity < 1 {
			return "", apperr.Validationf(op, "quantity for %s must be at least 1", li.Product.Name)
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    li.Product.ID,
			ProductName:  li.Product.Name,
			ProductImage: li.Product.Image,
			Quantity:     li.Quantity,
			Price:        li.Product.Price,
		})
	}

	if err := m.repo.CreateOrder(ctx, order); err != nil {
		slog.Error("Failed to create order", "user_id", userID, "error", err)
		if apperr.KindOf(err) == apperr.Internal {
			return "", apperr.Wrap(apperr.Transient, op, "Failed to place order. Please try again.", err)
		}
		return "", err
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", userID, "total", order.Total.String())
	m.publish(changefeed.OpInsert, order)
	return order.ID, nil
}

// UpdateOrder applies an admin edit. Without strict transitions two admins
// editing the same order concurrently resolve as last write wins.
func (m *Manager) UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate) (*models.Order, error) {
	const op = "orders.UpdateOrder"
	if upd.Empty() {
		return nil, apperr.Validationf(op, "no fields to update")
	}
	if upd.Status.Cleared() {
		return nil, apperr.Validationf(op, "status cannot be cleared")
	}
	next, hasStatus := upd.Status.Get()
	if hasStatus && !next.Valid() {
		return nil, apperr.Validationf(op, "invalid status %q", next)
	}

	current, err := m.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var expect models.OrderStatus
	if m.strict && hasStatus {
		if !current.Status.CanTransition(next, true) {
			return nil, apperr.Conflictf(op, "cannot move order from %s to %s", current.Status, next)
		}
		expect = current.Status
	}

	if err := m.repo.UpdateOrder(ctx, id, upd, expect); err != nil {
		return nil, err
	}

	updated, err := m.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("Order updated", "order_id", id, "from", current.Status, "to", updated.Status)
	m.publish(changefeed.OpUpdate, updated)
	return updated, nil
}

// NotifyRequest carries the details shown in a status email. An empty
// Status uses the order's current status.
type NotifyRequest struct {
	Status            models.OrderStatus   `json:"status"`
	TrackingNumber    string               `json:"trackingNumber,omitempty"`
	Carrier           string               `json:"carrier,omitempty"`
	EstimatedDelivery *models.DeliveryDate `json:"estimatedDelivery,omitempty"`
}

// NotifyResult reports the outcome of a notification without failing the
// caller. Retryable is set when a later attempt may succeed.
type NotifyResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func failed(err error, msg string) NotifyResult {
	return NotifyResult{Error: msg, Retryable: apperr.Is(err, apperr.Transient)}
}

// NotifyStatusChange emails the customer about the order's status. The
// recipient is the shipping address email, falling back to the account.
func (m *Manager) NotifyStatusChange(ctx context.Context, id string, req NotifyRequest) NotifyResult {
	ctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()

	order, err := m.repo.GetOrder(ctx, id)
	if err != nil {
		slog.Error("Notification order lookup failed", "order_id", id, "error", err)
		if apperr.Is(err, apperr.NotFound) {
			return NotifyResult{Error: "Order not found"}
		}
		return failed(err, "Failed to load order")
	}

	status := req.Status
	if status == "" {
		status = order.Status
	}
	if !status.Valid() {
		return NotifyResult{Error: fmt.Sprintf("invalid status %q", status)}
	}

	to, err := m.recipient(ctx, order)
	if err != nil {
		slog.Error("Notification email lookup failed", "order_id", id, "error", err)
		return failed(err, "Failed to look up email address")
	}
	if to == "" {
		slog.Error("No email found for order", "order_id", id)
		return NotifyResult{Error: "No email address found for this order"}
	}

	data := notify.StatusEmail{
		ShortID:           order.ShortID(),
		Status:            status,
		TrackingNumber:    firstNonEmpty(req.TrackingNumber, order.TrackingNumber),
		Carrier:           firstNonEmpty(req.Carrier, order.Carrier),
		EstimatedDelivery: order.EstimatedDelivery,
		StoreName:         m.storeName,
	}
	if req.EstimatedDelivery != nil {
		data.EstimatedDelivery = &req.EstimatedDelivery.Time
	}
	subject, html, err := m.templates.Render(data)
	if err != nil {
		slog.Error("Failed to render notification", "order_id", id, "error", err)
		return NotifyResult{Error: "Failed to render email"}
	}

	slog.Info("Sending order notification", "order_id", id, "status", status, "to", to)
	if err := m.mailer.Send(ctx, notify.Message{To: to, Subject: subject, HTML: html}); err != nil {
		slog.Error("Failed to send order notification", "order_id", id, "error", err)
		if ctx.Err() != nil {
			return NotifyResult{Error: "Email provider timed out", Retryable: true}
		}
		return NotifyResult{Error: err.Error(), Retryable: apperr.Is(err, apperr.Transient)}
	}
	return NotifyResult{Success: true}
}

func (m *Manager) recipient(ctx context.Context, o *models.Order) (string, error) {
	if e := strings.TrimSpace(o.ShippingAddress.Email); e != "" {
		return e, nil
	}
	if o.UserEmail != "" {
		return o.UserEmail, nil
	}
	if o.UserID == "" || m.users == nil {
		return "", nil
	}
	return m.users.UserEmail(ctx, o.UserID)
}

func (m *Manager) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return m.repo.GetOrder(ctx, id)
}

// GetOrderFor returns the order only if userID owns it or admin is set.
// Orders of other users are reported as missing.
func (m *Manager) GetOrderFor(ctx context.Context, id, userID string, admin bool) (*models.Order, error) {
	o, err := m.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, apperr.NotFoundf("orders.GetOrderFor", "order %s not found", id)
	}
	return o, nil
}

// Page is one page of an order listing.
type Page struct {
	Orders []models.Order `json:"orders"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (m *Manager) ListOrders(ctx context.Context, f models.OrderFilter) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validationf("orders.ListOrders", "invalid status %q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	orders, err := m.repo.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := m.repo.CountOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Orders: orders, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// ListUserOrders is the customer's order history, newest first.
func (m *Manager) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthorized, "orders.ListUserOrders", "You must be signed in")
	}
	return m.repo.ListOrders(ctx, models.OrderFilter{UserID: userID})
}

func (m *Manager) Stats(ctx context.Context) (*models.OrderStats, error) {
	return m.repo.OrderStats(ctx)
}

func (m *Manager) publish(op changefeed.Op, o *models.Order) {
	if m.feed == nil {
		return
	}
	m.feed.Publish(changefeed.Event{Table: Table, Op: op, RecordID: o.ID, UserID: o.UserID})
}

func trimAddress(a models.ShippingAddress) models.ShippingAddress {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
	return a
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
