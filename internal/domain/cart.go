package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is an identifier the backend may send as a JSON number or string.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Cart is the server-owned cart aggregate, scoped to a user or a session.
type Cart struct {
	ID             ID         `json:"id,omitempty"`
	UserID         ID         `json:"user_id,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	Items          []CartItem `json:"items"`
	Subtotal       Money      `json:"subtotal"`
	TaxAmount      Money      `json:"tax_amount"`
	ShippingAmount Money      `json:"shipping_amount"`
	TotalAmount    Money      `json:"total_amount"`
	// ItemsCount is whatever the server reported. It may count distinct lines
	// rather than units and is never used for display.
	ItemsCount int `json:"items_count,omitempty"`

	// Wholesale carts only.
	DiscountAmount     Money  `json:"discount_amount"`
	WholesalerDiscount Money  `json:"wholesaler_discount"`
	Notes              string `json:"notes,omitempty"`
}

// CartItem is one line of a cart: a catalog product or an assembled gift.
type CartItem struct {
	ID         ID               `json:"id"`
	ProductID  ID               `json:"product_id,omitempty"`
	Quantity   int              `json:"quantity"`
	UnitPrice  Money            `json:"unit_price"`
	TotalPrice Money            `json:"total_price"`
	Product    *ProductSnapshot `json:"product,omitempty"`
	IsGift     bool             `json:"is_gift,omitempty"`
	GiftData   json.RawMessage  `json:"gift_data,omitempty"`
}

// ProductSnapshot is the product data embedded in a cart line.
type ProductSnapshot struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     Money  `json:"price"`
	SalePrice Money  `json:"sale_price"`
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ItemsSubtotal sums the line totals, falling back to unit_price × quantity
// for lines the server sent without a total.
func (c *Cart) ItemsSubtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		if item.TotalPrice.Set {
			total = total.Add(item.TotalPrice.Amount)
			continue
		}
		total = total.Add(item.UnitPrice.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ProductQuantity returns the quantity of productID in the cart, or 0.
func (c *Cart) ProductQuantity(productID string) int {
	if i := c.FindItemIndex(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// FindItemIndex returns the index of the line holding productID, or -1.
func (c *Cart) FindItemIndex(productID string) int {
	if c == nil || productID == "" {
		return -1
	}
	for i := range c.Items {
		if c.Items[i].ProductID.String() == productID {
			return i
		}
	}
	return -1
}

// DecodeCart reads the data member of a cart response. The backend either
// returns the cart itself or wraps it as {cart: {...}} alongside top-level
// totals; top-level totals fill in any the inner cart lacks.
func DecodeCart(data json.RawMessage) (*Cart, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	var wrapped struct {
		Cart *Cart `json:"cart"`
		cartTotals
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Cart == nil {
		var c Cart
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	}

	c := wrapped.Cart
	fill := func(dst *Money, src Money) {
		if !dst.Set && src.Set {
			*dst = src
		}
	}
	fill(&c.Subtotal, wrapped.Subtotal)
	fill(&c.TaxAmount, wrapped.TaxAmount)
	fill(&c.ShippingAmount, wrapped.ShippingAmount)
	fill(&c.TotalAmount, wrapped.TotalAmount)
	fill(&c.DiscountAmount, wrapped.DiscountAmount)
	fill(&c.WholesalerDiscount, wrapped.WholesalerDiscount)
	if c.Notes == "" {
		c.Notes = strings.TrimSpace(wrapped.Notes)
	}
	return c, nil
}

// cartTotals holds the totals that may accompany a wrapped cart.
type cartTotals struct {
	Subtotal           Money  `json:"subtotal"`
	TaxAmount          Money  `json:"tax_amount"`
	ShippingAmount     Money  `json:"shipping_amount"`
	TotalAmount        Money  `json:"total_amount"`
	DiscountAmount     Money  `json:"discount_amount"`
	WholesalerDiscount Money  `json:"wholesaler_discount"`
	Notes              string `json:"notes"`
}
