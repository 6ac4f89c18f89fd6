package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.08")
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingFee       = decimal.RequireFromString("5.99")
)

// Calculate derives the cart totals from items. Tax is not rounded; the
// values are exact decimal arithmetic over the snapshot prices.
func Calculate(items []models.CartLineItem) models.Cart {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.LineTotal())
	}
	tax := subtotal.Mul(TaxRate)
	shipping := FlatShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	if items == nil {
		items = []models.CartLineItem{}
	}
	return models.Cart{
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// Persister stores a visitor's line items between requests.
type Persister interface {
	Load(ctx context.Context) ([]models.CartLineItem, error)
	Save(ctx context.Context, items []models.CartLineItem) error
}

type NoticeKind string

const (
	NoticeAdded   NoticeKind = "added"
	NoticeUpdated NoticeKind = "updated"
	NoticeRemoved NoticeKind = "removed"
	NoticeCleared NoticeKind = "cleared"
)

// Notice is the confirmation shown to the visitor after a mutation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

type Option func(*Engine)

func WithNotifier(fn func(Notice)) Option {
	return func(e *Engine) { e.notify = fn }
}

// Engine owns one visitor's cart. The in-memory items are authoritative;
// persistence failures are logged and never fail a mutation.
type Engine struct {
	mu     sync.Mutex
	saveMu sync.Mutex // keeps saves in mutation order
	items  []models.CartLineItem
	store  Persister
	notify func(Notice)
}

// New rehydrates the cart from p. A load failure starts an empty cart.
func New(ctx context.Context, p Persister, opts ...Option) *Engine {
	e := &Engine{store: p, notify: func(Notice) {}}
	for _, opt := range opts {
		opt(e)
	}
	if p != nil {
		items, err := p.Load(ctx)
		if err != nil {
			slog.Warn("Failed to load cart, starting empty", "error", err)
		}
		e.items = sanitize(items)
	}
	return e
}

// sanitize drops rows that could not have been produced by the engine and
// merges duplicates left by older data.
func sanitize(items []models.CartLineItem) []models.CartLineItem {
	out := make([]models.CartLineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, li := range items {
		if li.Quantity < 1 || li.Product.ID == "" {
			continue
		}
		if i, ok := index[li.Product.ID]; ok {
			out[i].Quantity += li.Quantity
			continue
		}
		if li.ID == "" {
			li.ID = uuid.NewString()
		}
		index[li.Product.ID] = len(out)
		out = append(out, li)
	}
	return out
}

func (e *Engine) Cart() models.Cart {
	e.mu.Lock()
	items := e.snapshot()
	e.mu.Unlock()
	return Calculate(items)
}

func (e *Engine) ItemCount() int {
	return e.Cart().ItemCount()
}

// AddItem merges into the existing line for the product or appends a new
// one. A quantity below 1 adds a single unit.
func (e *Engine) AddItem(ctx context.Context, product models.Product, quantity int) models.Cart {
	if quantity < 1 {
		quantity = 1
	}
	e.mu.Lock()
	var notice Notice
	merged := false
	for i := range e.items {
		if e.items[i].Product.ID == product.ID {
			e.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if merged {
		notice = Notice{Kind: NoticeUpdated, Message: fmt.Sprintf("Updated %s quantity in cart", product.Name)}
	} else {
		e.items = append(e.items, models.CartLineItem{ID: uuid.NewString(), Product: product, Quantity: quantity})
		notice = Notice{Kind: NoticeAdded, Message: fmt.Sprintf("Added %s to cart", product.Name)}
	}
	return e.commit(ctx, notice)
}

// UpdateQuantity sets the quantity of a line item; below 1 removes it.
// Unknown ids leave the cart unchanged.
func (e *Engine) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) models.Cart {
	if quantity < 1 {
		return e.RemoveItem(ctx, lineItemID)
	}
	e.mu.Lock()
	for i := range e.items {
		if e.items[i].ID == lineItemID {
			e.items[i].Quantity = quantity
			name := e.items[i].Product.Name
			return e.commit(ctx, Notice{Kind: NoticeUpdated, Message: fmt.Sprintf("Updated %s quantity in cart", name)})
		}
	}
	items := e.snapshot()
	e.mu.Unlock()
	return Calculate(items)
}

// RemoveItem deletes a line item. Unknown ids are a no-op.
func (e *Engine) RemoveItem(ctx context.Context, lineItemID string) models.Cart {
	e.mu.Lock()
	for i := range e.items {
		if e.items[i].ID == lineItemID {
			name := e.items[i].Product.Name
			e.items = append(e.items[:i], e.items[i+1:]...)
			return e.commit(ctx, Notice{Kind: NoticeRemoved, Message: fmt.Sprintf("Removed %s from cart", name)})
		}
	}
	items := e.snapshot()
	e.mu.Unlock()
	return Calculate(items)
}

func (e *Engine) Clear(ctx context.Context) models.Cart {
	e.mu.Lock()
	e.items = nil
	return e.commit(ctx, Notice{Kind: NoticeCleared, Message: "Cart cleared"})
}

// commit persists the current items, emits the notice and returns the
// derived cart. It must be called with e.mu held and releases it.
func (e *Engine) commit(ctx context.Context, notice Notice) models.Cart {
	items := e.snapshot()
	e.saveMu.Lock()
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.Save(ctx, items); err != nil {
			slog.Error("Failed to persist cart", "error", err)
		}
	}
	e.saveMu.Unlock()
	e.notify(notice)
	return Calculate(items)
}

func (e *Engine) snapshot() []models.CartLineItem {
	out := make([]models.CartLineItem, len(e.items))
	copy(out, e.items)
	return out
}
