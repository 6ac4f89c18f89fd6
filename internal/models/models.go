package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"` // display-only, for the strike-through discount
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Stock         int              `json:"stock"`
	Rating        float64          `json:"rating"`      // recomputed from product_reviews
	ReviewCount   int              `json:"reviewCount"` // recomputed from product_reviews
	Tags          []string         `json:"tags"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// DiscountPercent is the whole-number discount shown next to OriginalPrice.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice == nil || !p.OriginalPrice.IsPositive() || p.OriginalPrice.LessThanOrEqual(p.Price) {
		return 0
	}
	off := p.OriginalPrice.Sub(p.Price).Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100))
	return int(off.Round(0).IntPart())
}

func (p Product) InStock() bool { return p.Stock > 0 }

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"` // bcrypt hash
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type WishlistEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductView is one row of a user's browsing history.
type ProductView struct {
	Product   Product   `json:"product"`
	ViewCount int       `json:"viewCount"`
	ViewedAt  time.Time `json:"viewedAt"`
}
