package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
)

const orderColumns = `id, user_id, status, subtotal, tax, shipping, total, shipping_address, payment_method,
	tracking_number, carrier, estimated_delivery, shipped_at, delivered_at, created_at, updated_at`

// CreateOrder writes the order header and all of its item rows in a single
// transaction; if any item fails the header is rolled back too.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ts := now()
	o.CreatedAt, o.UpdatedAt = ts, ts
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, status, subtotal, tax, shipping, total, shipping_address, payment_method, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, o.ID, o.UserID, string(o.Status), o.Subtotal, o.Tax, o.Shipping, o.Total, string(addr), o.PaymentMethod, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return dbErr("store.CreateOrder", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, product_image, quantity, price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return dbErr("store.CreateOrder", err)
		}
		defer stmt.Close()

		for i := range o.Items {
			item := &o.Items[i]
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.OrderID = o.ID
			if _, err := stmt.ExecContext(ctx, item.ID, item.OrderID, item.ProductID, item.ProductName,
				nullString(item.ProductImage), item.Quantity, item.Price); err != nil {
				return dbErr("store.CreateOrder items", err)
			}
		}
		return nil
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+orderColumns+`, COALESCE((SELECT email FROM users WHERE users.id = orders.user_id), '')
		FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, dbErr("store.GetOrder", err)
	}

	items, err := s.orderItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	return o, nil
}

// ListOrders returns orders newest first, each with its items.
func (s *Store) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	where, args := orderWhere(f)
	query := `SELECT ` + orderColumns + `, COALESCE((SELECT email FROM users WHERE users.id = orders.user_id), '')
		FROM orders` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("store.ListOrders", err)
	}
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, dbErr("store.ListOrders", err)
		}
		orders = append(orders, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, dbErr("store.ListOrders", err)
	}
	if len(orders) == 0 {
		return []models.Order{}, nil
	}

	// The pool holds one connection, so items are loaded after the order
	// rows are closed.
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return orders, nil
}

func (s *Store) CountOrders(ctx context.Context, f models.OrderFilter) (int, error) {
	where, args := orderWhere(f)
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&count); err != nil {
		return 0, dbErr("store.CountOrders", err)
	}
	return count, nil
}

// UpdateOrder applies the present fields of upd. Reaching shipped or delivered
// stamps shipped_at / delivered_at only if they are still unset. When
// expectStatus is non-empty the write only happens if the stored status still
// matches it, otherwise a Conflict is returned.
func (s *Store) UpdateOrder(ctx context.Context, id string, upd models.OrderUpdate, expectStatus models.OrderStatus) error {
	ts := now()
	sets := []string{"updated_at = ?"}
	args := []any{ts}

	if st, ok := upd.Status.Get(); ok {
		sets = append(sets, "status = ?")
		args = append(args, string(st))
		switch st {
		case models.StatusShipped:
			sets = append(sets, "shipped_at = COALESCE(shipped_at, ?)")
			args = append(args, ts)
		case models.StatusDelivered:
			sets = append(sets, "delivered_at = COALESCE(delivered_at, ?)")
			args = append(args, ts)
		}
	}
	if upd.TrackingNumber.Present() {
		v, _ := upd.TrackingNumber.Get()
		sets = append(sets, "tracking_number = ?")
		args = append(args, nullString(v))
	}
	if upd.Carrier.Present() {
		v, _ := upd.Carrier.Get()
		sets = append(sets, "carrier = ?")
		args = append(args, nullString(v))
	}
	if upd.EstimatedDelivery.Present() {
		var eta *time.Time
		if v, ok := upd.EstimatedDelivery.Get(); ok {
			eta = &v.Time
		}
		sets = append(sets, "estimated_delivery = ?")
		args = append(args, nullTime(eta))
	}

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if expectStatus != "" {
		query += ` AND status = ?`
		args = append(args, string(expectStatus))
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return dbErr("store.UpdateOrder", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.DB.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return dbErr("store.UpdateOrder", err)
	}
	return apperr.Conflictf("store.UpdateOrder", "order %s changed status concurrently", id)
}

func (s *Store) orderItems(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, COALESCE(product_image, ''), quantity, price
		FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY rowid`, stringArgs(orderIDs)...)
	if err != nil {
		return nil, dbErr("store.orderItems", err)
	}
	defer rows.Close()

	out := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductImage, &it.Quantity, &it.Price); err != nil {
			return nil, dbErr("store.orderItems", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func orderWhere(f models.OrderFilter) (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, `user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, `(LOWER(id) LIKE ? OR LOWER(json_extract(shipping_address, '$.email')) LIKE ?
			OR LOWER(json_extract(shipping_address, '$.firstName') || ' ' || json_extract(shipping_address, '$.lastName')) LIKE ?)`)
		args = append(args, strings.ToLower(s)+"%", like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanOrder(r rowScanner) (*models.Order, error) {
	var o models.Order
	var status, addr string
	var tracking, carrier sql.NullString
	var eta, shipped, delivered sql.NullTime
	if err := r.Scan(&o.ID, &o.UserID, &status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &addr, &o.PaymentMethod,
		&tracking, &carrier, &eta, &shipped, &delivered, &o.CreatedAt, &o.UpdatedAt, &o.UserEmail); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.TrackingNumber = tracking.String
	o.Carrier = carrier.String
	o.EstimatedDelivery = timePtr(eta)
	o.ShippedAt = timePtr(shipped)
	o.DeliveredAt = timePtr(delivered)
	if err := json.Unmarshal([]byte(addr), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("invalid shipping address on order %s: %w", o.ID, err)
	}
	return &o, nil
}
