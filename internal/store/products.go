package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price, original_price, image, category, stock, rating, review_count, tags, created_at, updated_at`

// ProductFilter narrows a catalog listing. Zero values mean "no constraint".
type ProductFilter struct {
	Category string
	Search   string
	Tag      string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     string // "newest" (default), "price_asc", "price_desc", "rating", "name"
	Limit    int
	Offset   int
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, description, price, original_price, image, category, stock, rating, review_count, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.DB.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, nullDecimal(p.OriginalPrice), p.Image,
		p.Category, p.Stock, p.Rating, p.ReviewCount, tags, p.CreatedAt, p.UpdatedAt)
	return dbErr("store.CreateProduct", err)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, dbErr("store.GetProduct", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	where, args := productWhere(f)
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + productOrder(f.Sort)
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("store.ListProducts", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, dbErr("store.ListProducts", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) CountProducts(ctx context.Context, f ProductFilter) (int, error) {
	where, args := productWhere(f)
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&count); err != nil {
		return 0, dbErr("store.CountProducts", err)
	}
	return count, nil
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT category FROM products WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, dbErr("store.Categories", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateProduct overwrites the editable fields. Rating and review count are
// owned by the review aggregation and are not touched here.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	p.UpdatedAt = now()
	query := `
		UPDATE products
		SET name = ?, description = ?, price = ?, original_price = ?, category = ?, stock = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.DB.ExecContext(ctx, query, p.Name, p.Description, p.Price, nullDecimal(p.OriginalPrice), p.Category,
		p.Stock, tags, p.UpdatedAt, p.ID)
	return expectRow("store.UpdateProduct", res, err)
}

func (s *Store) UpdateProductImage(ctx context.Context, id, image string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET image = ?, updated_at = ? WHERE id = ?`, image, now(), id)
	return expectRow("store.UpdateProductImage", res, err)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return expectRow("store.DeleteProduct", res, err)
}

// BulkDeleteProducts removes the given products and reports how many existed.
func (s *Store) BulkDeleteProducts(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return 0, dbErr("store.BulkDeleteProducts", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// BulkUpdateStock sets the same stock level on every given product.
func (s *Store) BulkUpdateStock(ctx context.Context, ids []string, stock int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{stock, now()}, stringArgs(ids)...)
	res, err := s.DB.ExecContext(ctx, `UPDATE products SET stock = ?, updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, dbErr("store.BulkUpdateStock", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func productWhere(f ProductFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Category != "" {
		conds = append(conds, `LOWER(category) = LOWER(?)`)
		args = append(args, f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`)
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like)
	}
	if f.Tag != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM json_each(products.tags) WHERE LOWER(json_each.value) = LOWER(?))`)
		args = append(args, f.Tag)
	}
	// Prices are stored as exact decimal text; compare numerically.
	if f.MinPrice != nil {
		conds = append(conds, `CAST(price AS REAL) >= ?`)
		args = append(args, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		conds = append(conds, `CAST(price AS REAL) <= ?`)
		args = append(args, f.MaxPrice.InexactFloat64())
	}
	if f.InStock {
		conds = append(conds, `stock > 0`)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(sort string) string {
	switch sort {
	case "price_asc":
		return `CAST(price AS REAL) ASC, name ASC`
	case "price_desc":
		return `CAST(price AS REAL) DESC, name ASC`
	case "rating":
		return `rating DESC, review_count DESC`
	case "name":
		return `name COLLATE NOCASE ASC`
	default:
		return `created_at DESC, id ASC`
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (*models.Product, error) {
	var p models.Product
	var original sql.NullString
	var tags string
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &original, &p.Image, &p.Category, &p.Stock,
		&p.Rating, &p.ReviewCount, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if original.Valid && original.String != "" {
		d, err := decimal.NewFromString(original.String)
		if err != nil {
			return nil, fmt.Errorf("invalid original_price %q: %w", original.String, err)
		}
		p.OriginalPrice = &d
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags for product %s: %w", p.ID, err)
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// expectRow converts a zero-row write into NotFound.
func expectRow(op string, res sql.Result, err error) error {
	if err != nil {
		return dbErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(op, err)
	}
	if n == 0 {
		return dbErr(op, sql.ErrNoRows)
	}
	return nil
}
