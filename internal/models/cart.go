package models

import "github.com/shopspring/decimal"

// CartLineItem holds a snapshot of the product taken when it was added.
type CartLineItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (li CartLineItem) LineTotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is derived from its items on every read and never stored.
type Cart struct {
	Items    []CartLineItem  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ItemCount is the number of units, not line items.
func (c Cart) ItemCount() int {
	n := 0
	for _, li := range c.Items {
		n += li.Quantity
	}
	return n
}
