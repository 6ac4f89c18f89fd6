package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "shophub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background(), Migrations()))
	return s
}

func seedProduct(t *testing.T, s *Store, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "Pantry",
		Stock:    10,
		Tags:     []string{"organic"},
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func testOrder(userID string, p *models.Product, qty int) *models.Order {
	subtotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	tax := subtotal.Mul(decimal.RequireFromString("0.08"))
	return &models.Order{
		UserID:   userID,
		Status:   models.StatusConfirmed,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: decimal.Zero,
		Total:    subtotal.Add(tax),
		ShippingAddress: models.ShippingAddress{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Address: "1 Main St", City: "Springfield", ZipCode: "12345", Country: "United States",
		},
		PaymentMethod: "Card ending in 4242",
		Items: []models.OrderItem{{
			ProductID: p.ID, ProductName: p.Name, ProductImage: p.Image, Quantity: qty, Price: p.Price,
		}},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background(), Migrations()))
}

func TestProductRoundTripAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	orig := decimal.RequireFromString("12.50")
	honey := &models.Product{Name: "Wildflower Honey", Price: decimal.RequireFromString("9.99"), OriginalPrice: &orig,
		Category: "Pantry", Stock: 3, Tags: []string{"local", "sweet"}}
	require.NoError(t, s.CreateProduct(ctx, honey))
	seedProduct(t, s, "Sourdough Loaf", "6.00")
	bread := seedProduct(t, s, "Rye Bread", "4.50")
	bread.Category = "Bakery"
	require.NoError(t, s.UpdateProduct(ctx, bread))

	got, err := s.GetProduct(ctx, honey.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(honey.Price))
	require.NotNil(t, got.OriginalPrice)
	assert.Equal(t, "12.5", got.OriginalPrice.String())
	assert.Equal(t, []string{"local", "sweet"}, got.Tags)

	pantry, err := s.ListProducts(ctx, ProductFilter{Category: "pantry", Sort: "price_asc"})
	require.NoError(t, err)
	require.Len(t, pantry, 2)
	assert.Equal(t, "Sourdough Loaf", pantry[0].Name)

	tagged, err := s.ListProducts(ctx, ProductFilter{Tag: "LOCAL"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, honey.ID, tagged[0].ID)

	max := decimal.RequireFromString("5")
	cheap, err := s.ListProducts(ctx, ProductFilter{MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Rye Bread", cheap[0].Name)

	n, err := s.CountProducts(ctx, ProductFilter{Search: "bread"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Pantry"}, cats)
}

func TestProductMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetProduct(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.True(t, apperr.Is(s.DeleteProduct(ctx, "nope"), apperr.NotFound))
}

func TestBulkStockAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedProduct(t, s, "A", "1")
	b := seedProduct(t, s, "B", "2")

	n, err := s.BulkUpdateStock(ctx, []string{a.ID, b.ID, "missing"}, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := s.GetProduct(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Stock)

	n, err = s.BulkDeleteProducts(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	left, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestCreateOrderFreezesValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Olive Oil", "30")

	o := testOrder("user-1", p, 2)
	require.NoError(t, s.CreateOrder(ctx, o))

	p.Price = decimal.RequireFromString("40")
	require.NoError(t, s.UpdateProduct(ctx, p))
	require.NoError(t, s.DeleteProduct(ctx, p.ID))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "60", got.Subtotal.String())
	assert.Equal(t, "4.8", got.Tax.String())
	assert.Equal(t, "64.8", got.Total.String())
	require.Len(t, got.Items, 1)
	assert.Equal(t, "30", got.Items[0].Price.String())
	assert.Equal(t, "Olive Oil", got.Items[0].ProductName)
	assert.Equal(t, "ada@example.com", got.ShippingAddress.Email)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestCreateOrderRollsBackHeaderWhenItemsFail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Olive Oil", "30")

	_, err := s.DB.Exec(`CREATE TRIGGER fail_items BEFORE INSERT ON order_items BEGIN SELECT RAISE(ABORT, 'items unavailable'); END;`)
	require.NoError(t, err)

	o := testOrder("user-1", p, 1)
	require.Error(t, s.CreateOrder(ctx, o))

	n, err := s.CountOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateOrderStampsOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Tea", "10")
	o := testOrder("user-1", p, 1)
	require.NoError(t, s.CreateOrder(ctx, o))

	require.NoError(t, s.UpdateOrder(ctx, o.ID, models.OrderUpdate{
		Status:         models.Set(models.StatusShipped),
		TrackingNumber: models.Set("1Z999"),
		Carrier:        models.Set("UPS"),
	}, ""))
	first, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ShippedAt)
	assert.Nil(t, first.DeliveredAt)
	assert.Equal(t, "1Z999", first.TrackingNumber)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.UpdateOrder(ctx, o.ID, models.OrderUpdate{Status: models.Set(models.StatusShipped)}, ""))
	again, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, first.ShippedAt.Equal(*again.ShippedAt))
	assert.Equal(t, "UPS", again.Carrier, "unset fields are left alone")

	require.NoError(t, s.UpdateOrder(ctx, o.ID, models.OrderUpdate{Carrier: models.Clear[string]()}, ""))
	cleared, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Carrier)
	assert.Equal(t, "1Z999", cleared.TrackingNumber)
}

func TestUpdateOrderMissingAndStaleStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Tea", "10")
	o := testOrder("user-1", p, 1)
	require.NoError(t, s.CreateOrder(ctx, o))

	err := s.UpdateOrder(ctx, "missing", models.OrderUpdate{Status: models.Set(models.StatusShipped)}, "")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	err = s.UpdateOrder(ctx, o.ID, models.OrderUpdate{Status: models.Set(models.StatusShipped)}, models.StatusPending)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestListOrdersFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Tea", "10")
	require.NoError(t, s.CreateOrder(ctx, testOrder("user-1", p, 1)))
	require.NoError(t, s.CreateOrder(ctx, testOrder("user-1", p, 2)))
	require.NoError(t, s.CreateOrder(ctx, testOrder("user-2", p, 3)))

	mine, err := s.ListOrders(ctx, models.OrderFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		assert.Len(t, o.Items, 1)
	}

	found, err := s.ListOrders(ctx, models.OrderFilter{Search: "lovelace"})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	page, err := s.ListOrders(ctx, models.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestReviewsAndRatingRefresh(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")

	for _, rating := range []int{5, 5, 4, 3} {
		require.NoError(t, s.CreateReview(ctx, &models.ProductReview{
			ProductID: p.ID, UserName: "Sam", Rating: rating, Content: "Tasty",
		}))
	}

	reviews, err := s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 4)
	assert.Equal(t, 3, reviews[0].Rating, "newest first")

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ReviewCount)
	assert.InDelta(t, 4.25, got.Rating, 1e-9)

	ratings, err := s.ReviewRatings(ctx, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{5, 5, 4, 3}, ratings)
}

func TestMarkReviewHelpfulConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")
	r := &models.ProductReview{ProductID: p.ID, UserName: "Sam", Rating: 4, Content: "Good"}
	require.NoError(t, s.CreateReview(ctx, r))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.MarkReviewHelpful(ctx, r.ID, p.ID, "voter")
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.True(t, apperr.Is(err, apperr.Conflict), "unexpected error: %v", err)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	reviews, err := s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reviews[0].HelpfulCount)

	ids, err := s.VotedReviewIDs(ctx, "voter", p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, ids)
}

func TestMarkReviewHelpfulDistinctUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")
	r := &models.ProductReview{ProductID: p.ID, UserName: "Sam", Rating: 4, Content: "Good"}
	require.NoError(t, s.CreateReview(ctx, r))

	var wg sync.WaitGroup
	for _, u := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := s.MarkReviewHelpful(ctx, r.ID, p.ID, u)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	reviews, err := s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reviews[0].HelpfulCount)

	_, err = s.MarkReviewHelpful(ctx, "missing", p.ID, "a")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestHasPurchased(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")

	ok, err := s.HasPurchased(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	o := testOrder("user-1", p, 1)
	o.Status = models.StatusPending
	require.NoError(t, s.CreateOrder(ctx, o))
	ok, err = s.HasPurchased(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.False(t, ok, "pending orders do not count")

	require.NoError(t, s.UpdateOrder(ctx, o.ID, models.OrderUpdate{Status: models.Set(models.StatusDelivered)}, ""))
	ok, err = s.HasPurchased(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWishlistUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")

	_, err := s.AddWishlist(ctx, "user-1", p.ID)
	require.NoError(t, err)
	_, err = s.AddWishlist(ctx, "user-1", p.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	entries, err := s.ListWishlist(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.RemoveWishlist(ctx, "user-1", p.ID))
	assert.True(t, apperr.Is(s.RemoveWishlist(ctx, "user-1", p.ID), apperr.NotFound))
}

func TestBrowsingHistoryCountsViews(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Jam", "5")
	q := seedProduct(t, s, "Bread", "3")

	require.NoError(t, s.TrackProductView(ctx, "user-1", p.ID))
	require.NoError(t, s.TrackProductView(ctx, "user-1", p.ID))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.TrackProductView(ctx, "user-1", q.ID))

	history, err := s.BrowsingHistory(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, q.ID, history[0].Product.ID)
	assert.Equal(t, 2, history[1].ViewCount)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Tea", "10")
	require.NoError(t, s.CreateOrder(ctx, testOrder("user-1", p, 1)))
	cancelled := testOrder("user-1", p, 5)
	cancelled.Status = models.StatusCancelled
	require.NoError(t, s.CreateOrder(ctx, cancelled))

	stats, err := s.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.OrdersByStatus[models.StatusCancelled])
	assert.Equal(t, "10.8", stats.Revenue.String())
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, 1, stats.TopProducts[0].Units)
}

func TestDashboardStatsFailsInsteadOfPartialTotals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProduct(t, s, "Tea", "10")
	good := testOrder("user-1", p, 1)
	require.NoError(t, s.CreateOrder(ctx, good))
	bad := testOrder("user-1", p, 2)
	require.NoError(t, s.CreateOrder(ctx, bad))
	_, err := s.DB.ExecContext(ctx, "UPDATE orders SET total = 'not-a-number' WHERE id = ?", bad.ID)
	require.NoError(t, err)

	stats, err := s.GetDashboardStats(ctx)
	require.Error(t, err)
	assert.Nil(t, stats)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.GetDashboardStats(cancelled)
	assert.True(t, apperr.Is(err, apperr.Transient))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := &models.User{Email: "Ada@Example.com", Password: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, models.RoleCustomer, u.Role)

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	email, err := s.UserEmail(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada@Example.com", email)

	err = s.CreateUser(ctx, &models.User{Email: "ada@example.com", Password: "x"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}
