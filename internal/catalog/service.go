package catalog

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/changefeed"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/pyae198022/ShopHub/internal/validation"
	"github.com/shopspring/decimal"
)

const Table = "products"

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

type Repository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, error)
	CountProducts(ctx context.Context, f store.ProductFilter) (int, error)
	Categories(ctx context.Context) ([]string, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	UpdateProductImage(ctx context.Context, id, image string) error
	DeleteProduct(ctx context.Context, id string) error
	BulkDeleteProducts(ctx context.Context, ids []string) (int, error)
	BulkUpdateStock(ctx context.Context, ids []string, stock int) (int, error)
	TrackProductView(ctx context.Context, userID, productID string) error
	BrowsingHistory(ctx context.Context, userID string, limit int) ([]models.ProductView, error)
}

type ImageStore interface {
	Save(filename string, r io.Reader) (string, error)
	Remove(url string)
}

type Publisher interface {
	Publish(e changefeed.Event)
}

type Service struct {
	repo     Repository
	images   ImageStore
	feed     Publisher
	validate *validator.Validate
}

func NewService(repo Repository, images ImageStore, feed Publisher) *Service {
	return &Service{repo: repo, images: images, feed: feed, validate: validation.New()}
}

type Filter struct {
	Category string
	Search   string
	Tag      string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     string
	Page     int
	PageSize int
}

type Page struct {
	Products   []models.Product `json:"products"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, apperr.Validationf("catalog.List", "minPrice must not exceed maxPrice")
	}

	pf := store.ProductFilter{
		Category: f.Category,
		Search:   f.Search,
		Tag:      f.Tag,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		InStock:  f.InStock,
		Sort:     f.Sort,
		Limit:    f.PageSize,
		Offset:   (f.Page - 1) * f.PageSize,
	}
	products, err := s.repo.ListProducts(ctx, pf)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountProducts(ctx, pf)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	totalPages := (total + f.PageSize - 1) / f.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return &Page{Products: products, Total: total, Page: f.Page, PageSize: f.PageSize, TotalPages: totalPages}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	if cats == nil && err == nil {
		cats = []string{}
	}
	return cats, err
}

// ProductInput is the admin-editable part of a product.
type ProductInput struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Description   string           `json:"description" validate:"max=5000"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Image         string           `json:"image"`
	Category      string           `json:"category" validate:"required"`
	Stock         int              `json:"stock" validate:"gte=0"`
	Tags          []string         `json:"tags"`
}

func (s *Service) check(op string, in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Check(s.validate, op, in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return apperr.Validationf(op, "price must not be negative")
	}
	if in.OriginalPrice != nil && in.OriginalPrice.IsNegative() {
		return apperr.Validationf(op, "originalPrice must not be negative")
	}
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool)
	for _, t := range in.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	in.Tags = tags
	return nil
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.check("catalog.Create", &in); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Image:         in.Image,
		Category:      in.Category,
		Stock:         in.Stock,
		Tags:          in.Tags,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("Product created", "product_id", p.ID, "name", p.Name)
	s.publish(changefeed.OpInsert, p.ID)
	return p, nil
}

// Update replaces the editable fields. An empty Image keeps the current one.
// Concurrent admin edits resolve as last write wins.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := s.check("catalog.Update", &in); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.Category = in.Category
	p.Stock = in.Stock
	p.Tags = in.Tags
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	if in.Image != "" && in.Image != p.Image {
		if err := s.repo.UpdateProductImage(ctx, id, in.Image); err != nil {
			return nil, err
		}
		p.Image = in.Image
	}
	slog.Info("Product updated", "product_id", id)
	s.publish(changefeed.OpUpdate, id)
	return p, nil
}

// SetImage stores an uploaded image and points the product at it.
func (s *Service) SetImage(ctx context.Context, id, filename string, r io.Reader) (*models.Product, error) {
	if s.images == nil {
		return nil, apperr.New(apperr.Internal, "catalog.SetImage", "image uploads are not configured")
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Save(filename, r)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProductImage(ctx, id, url); err != nil {
		s.images.Remove(url)
		return nil, err
	}
	if p.Image != "" {
		s.images.Remove(p.Image)
	}
	p.Image = url
	s.publish(changefeed.OpUpdate, id)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if s.images != nil && p.Image != "" {
		s.images.Remove(p.Image)
	}
	slog.Info("Product deleted", "product_id", id)
	s.publish(changefeed.OpDelete, id)
	return nil
}

// BulkDelete removes the products that exist and reports how many did.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperr.Validationf("catalog.BulkDelete", "no products selected")
	}
	n, err := s.repo.BulkDeleteProducts(ctx, ids)
	if err != nil {
		return 0, err
	}
	slog.Info("Products deleted", "requested", len(ids), "deleted", n)
	s.publish(changefeed.OpDelete, "")
	return n, nil
}

func (s *Service) BulkUpdateStock(ctx context.Context, ids []string, stock int) (int, error) {
	const op = "catalog.BulkUpdateStock"
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperr.Validationf(op, "no products selected")
	}
	if stock < 0 {
		return 0, apperr.Validationf(op, "stock must not be negative")
	}
	n, err := s.repo.BulkUpdateStock(ctx, ids, stock)
	if err != nil {
		return 0, err
	}
	slog.Info("Stock updated", "products", n, "stock", stock)
	s.publish(changefeed.OpUpdate, "")
	return n, nil
}

// TrackView records that a signed-in user opened a product. Anonymous
// views are not tracked and failures only get logged.
func (s *Service) TrackView(ctx context.Context, userID, productID string) {
	if userID == "" || productID == "" {
		return
	}
	if err := s.repo.TrackProductView(ctx, userID, productID); err != nil {
		slog.Warn("Failed to track product view", "user_id", userID, "product_id", productID, "error", err)
	}
}

func (s *Service) BrowsingHistory(ctx context.Context, userID string, limit int) ([]models.ProductView, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthorized, "catalog.BrowsingHistory", "You must be signed in")
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = 20
	}
	return s.repo.BrowsingHistory(ctx, userID, limit)
}

func (s *Service) publish(op changefeed.Op, id string) {
	if s.feed != nil {
		s.feed.Publish(changefeed.Event{Table: Table, Op: op, RecordID: id})
	}
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
