package store

import (
	"context"
	"database/sql"

	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalProducts int `json:"totalProducts"`
	LowStock      int `json:"lowStock"`
	models.OrderStats
}

const lowStockThreshold = 5

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrderStats: models.OrderStats{OrdersByStatus: make(map[models.OrderStatus]int)},
	}

	// 1. Catalog size
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(CASE WHEN stock < ? THEN 1 ELSE 0 END), 0) FROM products",
		lowStockThreshold).Scan(&stats.TotalProducts, &stats.LowStock)
	if err != nil && err != sql.ErrNoRows {
		return nil, dbErr("store.GetDashboardStats", err)
	}

	// 2. Orders by status
	if err := s.countOrdersByStatus(ctx, stats); err != nil {
		return nil, dbErr("store.GetDashboardStats", err)
	}

	// 3. Revenue, summed exactly in Go since totals are stored as decimal text
	revenue, err := s.sumRevenue(ctx)
	if err != nil {
		return nil, dbErr("store.GetDashboardStats", err)
	}
	stats.Revenue = revenue

	// 4. Units sold per product
	itemRows, err := s.DB.QueryContext(ctx, `
		SELECT i.product_id, MAX(i.product_name), SUM(i.quantity) AS units
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.status != ?
		GROUP BY i.product_id
		ORDER BY units DESC
		LIMIT 10
	`, string(models.StatusCancelled))
	if err != nil {
		return nil, dbErr("store.GetDashboardStats", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var poc models.ProductOrderCount
		if err := itemRows.Scan(&poc.ProductID, &poc.ProductName, &poc.Units); err != nil {
			return nil, dbErr("store.GetDashboardStats", err)
		}
		stats.TopProducts = append(stats.TopProducts, poc)
	}
	if err := itemRows.Err(); err != nil {
		return nil, dbErr("store.GetDashboardStats", err)
	}

	return stats, nil
}

func (s *Store) countOrdersByStatus(ctx context.Context, stats *DashboardStats) error {
	rows, err := s.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		stats.OrdersByStatus[models.OrderStatus(status)] = count
		stats.TotalOrders += count
	}
	return rows.Err()
}

func (s *Store) sumRevenue(ctx context.Context) (decimal.Decimal, error) {
	totals, err := s.DB.QueryContext(ctx, "SELECT total FROM orders WHERE status != ?", string(models.StatusCancelled))
	if err != nil {
		return decimal.Zero, err
	}
	defer totals.Close()
	revenue := decimal.Zero
	for totals.Next() {
		var t decimal.Decimal
		if err := totals.Scan(&t); err != nil {
			return decimal.Zero, err
		}
		revenue = revenue.Add(t)
	}
	return revenue, totals.Err()
}

// OrderStats is the order half of the dashboard.
func (s *Store) OrderStats(ctx context.Context) (*models.OrderStats, error) {
	stats, err := s.GetDashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats.OrderStats, nil
}
