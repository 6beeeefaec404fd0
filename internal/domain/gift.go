package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Box is a gift container the customer fills with beers.
type Box struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	MaxBeers         int    `json:"max_beers"`
	Price            Money  `json:"price"`
	Dimensions       string `json:"dimensions,omitempty"`
	DeliveryEstimate string `json:"delivery_estimate,omitempty"`
}

// GiftProduct is a catalog product selected into a gift box.
type GiftProduct struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
	Image string `json:"image,omitempty"`
}

// Gift is a client-assembled box plus its selected beers.
type Gift struct {
	Box           *Box          `json:"box"`
	SelectedBeers []GiftProduct `json:"selected_beers"`
	Message       string        `json:"message,omitempty"`
}

// Validate rejects a gift that is not fully assembled. A gift is complete when
// a box is chosen and exactly Box.MaxBeers distinct products are selected.
func (g Gift) Validate() error {
	if g.Box == nil {
		return apperrors.Precondition("choose a gift box first")
	}
	if g.Box.MaxBeers < 1 {
		return apperrors.Precondition("the selected gift box has no capacity")
	}

	n := len(g.SelectedBeers)
	switch {
	case n == 0:
		return apperrors.Precondition("select at least one beer for the gift")
	case n > g.Box.MaxBeers:
		return apperrors.Precondition(fmt.Sprintf("this box holds at most %d beers", g.Box.MaxBeers))
	case n != g.Box.MaxBeers:
		return apperrors.Precondition(fmt.Sprintf("select %d beers to complete the gift (%d selected)", g.Box.MaxBeers, n))
	}

	seen := make(map[ID]struct{}, n)
	for _, beer := range g.SelectedBeers {
		if beer.ID == "" {
			return apperrors.Precondition("every selected beer needs a product id")
		}
		if _, dup := seen[beer.ID]; dup {
			return apperrors.Precondition(fmt.Sprintf("%s is already in this gift", beerLabel(beer)))
		}
		seen[beer.ID] = struct{}{}
	}
	return nil
}

// TotalPrice is the box price plus the price of every selected beer.
func (g Gift) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	if g.Box != nil {
		total = total.Add(g.Box.Price.Amount)
	}
	for _, beer := range g.SelectedBeers {
		total = total.Add(beer.Price.Amount)
	}
	return total
}

// GiftData is the opaque gift description stored on the cart line.
type GiftData struct {
	Box        Box           `json:"box"`
	Beers      []GiftProduct `json:"beers"`
	Message    string        `json:"message,omitempty"`
	TotalPrice Money         `json:"total_price"`
}

// GiftPayload is the body of an add-gift request.
type GiftPayload struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	GiftData  GiftData `json:"gift_data"`
	IsGift    bool     `json:"is_gift"`
}

// NewGiftPayload validates g and builds its add-gift payload. The product id
// is synthetic, derived from now in milliseconds.
func NewGiftPayload(g Gift, now time.Time) (GiftPayload, error) {
	if err := g.Validate(); err != nil {
		return GiftPayload{}, err
	}
	beers := make([]GiftProduct, len(g.SelectedBeers))
	copy(beers, g.SelectedBeers)

	return GiftPayload{
		ProductID: "gift_" + strconv.FormatInt(now.UnixMilli(), 10),
		Quantity:  1,
		GiftData: GiftData{
			Box:        *g.Box,
			Beers:      beers,
			Message:    g.Message,
			TotalPrice: Money{Amount: g.TotalPrice(), Set: true},
		},
		IsGift: true,
	}, nil
}

func beerLabel(p GiftProduct) string {
	if p.Name != "" {
		return p.Name
	}
	return "product " + p.ID.String()
}
