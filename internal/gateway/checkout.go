package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CheckoutGateway maps the checkout endpoints.
type CheckoutGateway struct {
	client *Client
}

// NewCheckoutGateway creates a checkout gateway.
func NewCheckoutGateway(client *Client) *CheckoutGateway {
	return &CheckoutGateway{client: client}
}

// ShippingRequest is the body of a shipping calculation.
type ShippingRequest struct {
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// CreateOrderRequest is the body of an order creation.
type CreateOrderRequest struct {
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	Notes           string          `json:"notes"`
}

// OrderResult is the outcome of a successful order creation. Data is the raw
// data member, whose shape varies between backend versions.
type OrderResult struct {
	Message string
	Data    json.RawMessage
}

// CalculateShipping quotes shipping for a destination. The backend answers
// with the quote at the top level of the body; older versions nest it in data.
func (g *CheckoutGateway) CalculateShipping(ctx context.Context, req ShippingRequest) (*domain.ShippingQuote, error) {
	if req.City == "" {
		return nil, apperrors.Precondition("city is required to calculate shipping")
	}
	headers, err := g.client.headers.SessionHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout.calculate_shipping headers: %w", err)
	}
	resp, err := g.client.call(ctx, "checkout.calculate_shipping", http.MethodPost, "/checkout/calculate-shipping", headers, req)
	if err != nil {
		return nil, err
	}

	var quote domain.ShippingQuote
	if err := json.Unmarshal(resp.Raw, &quote); err != nil {
		return nil, fmt.Errorf("decode shipping quote: %w", err)
	}
	if !quote.ShippingAmount.Set && resp.HasData() {
		if err := json.Unmarshal(resp.Data, &quote); err != nil {
			return nil, fmt.Errorf("decode shipping quote: %w", err)
		}
	}
	return &quote, nil
}

// CreateOrder places an order for the current cart.
func (g *CheckoutGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	headers, err := g.client.headers.SessionHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout.create_order headers: %w", err)
	}
	resp, err := g.client.call(ctx, "checkout.create_order", http.MethodPost, "/checkout/create-order", headers, req)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Message: resp.Message, Data: resp.Data}, nil
}
