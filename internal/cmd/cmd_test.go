package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/catalog"
	"github.com/pyae198022/ShopHub/internal/config"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/orders"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.NewStore(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background(), store.Migrations()))
	return db
}

func TestAddUser(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()

	u, err := addUser(ctx, db, " admin@example.com ", "longenough", true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	got, err := db.GetUserByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEqual(t, "longenough", got.Password)

	_, err = addUser(ctx, db, "admin@example.com", "longenough", false)
	assert.Error(t, err)
	_, err = addUser(ctx, db, "x@example.com", "short", false)
	assert.Error(t, err)
}

func TestSeedProductsOnlyOnce(t *testing.T) {
	db := testStore(t)
	svc := catalog.NewService(db, nil, nil)
	ctx := context.Background()

	n, err := seedProducts(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, len(sampleProducts), n)

	n, err = seedProducts(ctx, svc)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetOrderStatus(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	mgr, err := newManager(&config.Config{MailProvider: "log", StoreName: "ShopHub"}, db)
	require.NoError(t, err)

	p := &models.Product{Name: "Tea", Price: decimal.NewFromInt(10), Stock: 3}
	require.NoError(t, db.CreateProduct(ctx, p))
	o := &models.Order{
		UserID: "u1", Status: models.StatusConfirmed,
		Subtotal: p.Price, Tax: decimal.Zero, Shipping: decimal.Zero, Total: p.Price,
		ShippingAddress: models.ShippingAddress{FirstName: "A", LastName: "B", Email: "a@example.com", Address: "x", City: "y", ZipCode: "1", Country: "US"},
		Items:           []models.OrderItem{{ProductID: p.ID, ProductName: p.Name, Quantity: 1, Price: p.Price}},
	}
	require.NoError(t, db.CreateOrder(ctx, o))

	var out bytes.Buffer
	upd := models.OrderUpdate{Status: models.Set(models.StatusShipped), TrackingNumber: models.Set("1Z")}
	require.NoError(t, setOrderStatus(ctx, &out, mgr, o.ID, upd, true))
	assert.Contains(t, out.String(), "is now shipped")
	assert.Contains(t, out.String(), "Notification sent.")

	got, err := db.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1Z", got.TrackingNumber)
	assert.NotNil(t, got.ShippedAt)

	err = setOrderStatus(ctx, &out, mgr, "missing", upd, false)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestReportNotify(t *testing.T) {
	var out bytes.Buffer
	err := reportNotify(&out, orders.NotifyResult{Error: "Email provider timed out", Retryable: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "try again")
	assert.NoError(t, reportNotify(&out, orders.NotifyResult{Success: true}))
}
