package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled" // side branch off pending/confirmed
)

var orderStatusRank = map[OrderStatus]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusProcessing: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

// OrderStatuses lists the statuses in lifecycle order, cancelled last.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next. Without
// strict checking any valid status is reachable from any other; strict mode
// only allows forward progression and cancelling before processing starts.
func (s OrderStatus) CanTransition(next OrderStatus, strict bool) bool {
	if !next.Valid() {
		return false
	}
	if !strict || s == next {
		return true
	}
	if next == StatusCancelled {
		return s == StatusPending || s == StatusConfirmed
	}
	if s == StatusCancelled {
		return false
	}
	return orderStatusRank[next] > orderStatusRank[s]
}

// Qualifies reports whether an order in this status counts as a purchase for
// verified-review purposes.
func (s OrderStatus) Qualifies() bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type ShippingAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

func (a ShippingAddress) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Order is a frozen snapshot of a checkout. Money fields are captured at
// creation and never recomputed from the live catalog.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	UserEmail         string          `json:"userEmail,omitempty"`
	Status            OrderStatus     `json:"status"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Shipping          decimal.Decimal `json:"shipping"`
	Total             decimal.Decimal `json:"total"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	PaymentMethod     string          `json:"paymentMethod"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	Carrier           string          `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	ShippedAt         *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Items             []OrderItem     `json:"items"`
}

// ShortID is the upper-cased prefix used in emails and on the order page.
func (o Order) ShortID() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

type OrderItem struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderUpdate is an admin edit. Unset fields are left alone in storage.
type OrderUpdate struct {
	Status            Field[OrderStatus]  `json:"status"`
	TrackingNumber    Field[string]       `json:"trackingNumber"`
	Carrier           Field[string]       `json:"carrier"`
	EstimatedDelivery Field[DeliveryDate] `json:"estimatedDelivery"`
}

func (u OrderUpdate) Empty() bool {
	return !u.Status.Present() && !u.TrackingNumber.Present() && !u.Carrier.Present() && !u.EstimatedDelivery.Present()
}

type OrderFilter struct {
	UserID string
	Status OrderStatus
	Search string // matches order id prefix or shipping email/name
	Limit  int
	Offset int
}

type OrderStats struct {
	TotalOrders    int                 `json:"totalOrders"`
	OrdersByStatus map[OrderStatus]int `json:"ordersByStatus"`
	Revenue        decimal.Decimal     `json:"revenue"`
	TopProducts    []ProductOrderCount `json:"topProducts"`
}

type ProductOrderCount struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Units       int    `json:"units"`
}
