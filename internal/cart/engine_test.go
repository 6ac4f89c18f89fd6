package cart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, price string) models.Product {
	return models.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Stock: 10}
}

func TestCalculateEndToEndExample(t *testing.T) {
	c := Calculate([]models.CartLineItem{{ID: "l1", Product: product("p1", "30"), Quantity: 2}})
	assert.Equal(t, "60", c.Subtotal.String())
	assert.Equal(t, "4.8", c.Tax.String())
	assert.True(t, c.Shipping.IsZero())
	assert.Equal(t, "64.8", c.Total.String())
}

func TestCalculateShippingThreshold(t *testing.T) {
	below := Calculate([]models.CartLineItem{{ID: "l1", Product: product("p1", "49.99"), Quantity: 1}})
	assert.Equal(t, "5.99", below.Shipping.String())
	assert.True(t, below.Total.Equal(decimal.RequireFromString("49.99").Add(decimal.RequireFromString("3.9992")).Add(FlatShippingFee)))

	at := Calculate([]models.CartLineItem{{ID: "l1", Product: product("p1", "50.00"), Quantity: 1}})
	assert.True(t, at.Shipping.IsZero())
	assert.Equal(t, "54", at.Total.String())
}

func TestCalculateEmpty(t *testing.T) {
	c := Calculate(nil)
	assert.NotNil(t, c.Items)
	assert.True(t, c.Subtotal.IsZero())
	assert.True(t, c.Total.Equal(c.Subtotal.Add(c.Tax).Add(c.Shipping)))
}

func TestAddItemMergesSameProduct(t *testing.T) {
	ctx := context.Background()
	var notices []Notice
	e := New(ctx, &MemoryPersister{}, WithNotifier(func(n Notice) { notices = append(notices, n) }))

	e.AddItem(ctx, product("p1", "10"), 2)
	c := e.AddItem(ctx, product("p1", "10"), 3)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, "50", c.Subtotal.String())
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeAdded, notices[0].Kind)
	assert.Equal(t, NoticeUpdated, notices[1].Kind)
	assert.Equal(t, "Updated Product p1 quantity in cart", notices[1].Message)
}

func TestAddItemDefaultsQuantity(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, nil)
	c := e.AddItem(ctx, product("p1", "10"), 0)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.NotEmpty(t, c.Items[0].ID)
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	ctx := context.Background()
	for _, qty := range []int{0, -1} {
		e := New(ctx, nil)
		id := e.AddItem(ctx, product("p1", "10"), 2).Items[0].ID
		e.AddItem(ctx, product("p2", "5"), 1)

		c := e.UpdateQuantity(ctx, id, qty)
		require.Len(t, c.Items, 1, "qty %d", qty)
		assert.Equal(t, "p2", c.Items[0].Product.ID)
	}
}

func TestUpdateQuantityOverwrites(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, nil)
	id := e.AddItem(ctx, product("p1", "10"), 2).Items[0].ID

	c := e.UpdateQuantity(ctx, id, 7)
	assert.Equal(t, 7, c.Items[0].Quantity)
	assert.Equal(t, "70", c.Subtotal.String())
}

func TestUnknownLineItemIsNoop(t *testing.T) {
	ctx := context.Background()
	p := &MemoryPersister{}
	var notices int
	e := New(ctx, p, WithNotifier(func(Notice) { notices++ }))
	before := e.AddItem(ctx, product("p1", "10"), 1)

	after := e.RemoveItem(ctx, "missing")
	assert.Equal(t, before, after)
	after = e.UpdateQuantity(ctx, "missing", 4)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, notices)
	assert.Equal(t, 1, p.Saves)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, nil)
	e.AddItem(ctx, product("p1", "10"), 1)
	c := e.Clear(ctx)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, e.ItemCount())
}

func TestSubtotalInvariantOverSequence(t *testing.T) {
	ctx := context.Background()
	e := New(ctx, nil)
	a := e.AddItem(ctx, product("a", "1.10"), 3).Items[0].ID
	e.AddItem(ctx, product("b", "2.25"), 1)
	e.AddItem(ctx, product("c", "19.99"), 2)
	e.UpdateQuantity(ctx, a, 5)
	e.AddItem(ctx, product("b", "2.25"), 4)
	c := e.RemoveItem(ctx, a)

	sum := decimal.Zero
	for _, li := range c.Items {
		assert.GreaterOrEqual(t, li.Quantity, 1)
		sum = sum.Add(li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	assert.True(t, c.Subtotal.Equal(sum))
	assert.True(t, c.Total.Equal(c.Subtotal.Add(c.Tax).Add(c.Shipping)))
	assert.Equal(t, 7, c.ItemCount())
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	p := &MemoryPersister{Err: errors.New("disk full")}
	e := New(ctx, p)

	c := e.AddItem(ctx, product("p1", "10"), 1)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, e.ItemCount())
	assert.Equal(t, 1, p.Saves)
}

func TestRehydratesFromPersister(t *testing.T) {
	ctx := context.Background()
	p := &MemoryPersister{}
	New(ctx, p).AddItem(ctx, product("p1", "10"), 2)

	again := New(ctx, p)
	c := again.Cart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestSanitizeDropsInvalidRows(t *testing.T) {
	items := sanitize([]models.CartLineItem{
		{ID: "a", Product: product("p1", "1"), Quantity: 1},
		{ID: "b", Product: product("p1", "1"), Quantity: 2},
		{ID: "c", Product: product("p2", "1"), Quantity: 0},
		{ID: "d", Product: models.Product{}, Quantity: 1},
	})
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestSessionPersisterRoundTrip(t *testing.T) {
	store := NewFilesystemStore(t.TempDir(), false, []byte("0123456789abcdef0123456789abcdef"))
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", nil)
	rec := httptest.NewRecorder()
	e := New(ctx, &SessionPersister{Store: store, R: req, W: rec})
	e.AddItem(ctx, product("p1", "12.50"), 2)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	c := New(ctx, &SessionPersister{Store: store, R: next, W: httptest.NewRecorder()}).Cart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "25", c.Subtotal.String())
}
