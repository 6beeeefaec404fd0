package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Cart endpoint namespaces.
const (
	NamespaceRetail    = "/cart"
	NamespaceWholesale = "/wholesaler/cart"
)

// CartResult is the outcome of a successful cart call. Cart is nil when the
// backend sent no data.
type CartResult struct {
	Message string
	Cart    *domain.Cart
}

// CartGateway maps cart operations onto one endpoint namespace.
type CartGateway struct {
	client    *Client
	namespace string
}

// NewCartGateway creates a gateway for the cart endpoints under namespace.
func NewCartGateway(client *Client, namespace string) *CartGateway {
	return &CartGateway{client: client, namespace: namespace}
}

// Namespace returns the endpoint namespace of the gateway.
func (g *CartGateway) Namespace() string {
	return g.namespace
}

type addProductRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type removeRequest struct {
	ProductID string `json:"product_id,omitempty"`
	GiftID    string `json:"gift_id,omitempty"`
}

type discountRequest struct {
	DiscountAmount float64 `json:"discount_amount"`
	Reason         string  `json:"reason,omitempty"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (g *CartGateway) op(name string) string {
	if g.namespace == NamespaceWholesale {
		return "wholesale_cart." + name
	}
	return "cart." + name
}

func (g *CartGateway) send(ctx context.Context, name, method, path string, body any) (*CartResult, error) {
	headers, err := g.client.headers.CartHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s headers: %w", g.op(name), err)
	}
	return g.sendWith(ctx, name, method, path, headers, body)
}

func (g *CartGateway) sendWith(ctx context.Context, name, method, path string, headers http.Header, body any) (*CartResult, error) {
	resp, err := g.client.call(ctx, g.op(name), method, g.namespace+path, headers, body)
	if err != nil {
		return nil, err
	}
	cart, err := domain.DecodeCart(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s cart: %w", g.op(name), err)
	}
	return &CartResult{Message: resp.Message, Cart: cart}, nil
}

// GetCart fetches the current cart snapshot.
func (g *CartGateway) GetCart(ctx context.Context) (*CartResult, error) {
	return g.send(ctx, "get", http.MethodGet, "", nil)
}

// AddProduct adds quantity units of a catalog product.
func (g *CartGateway) AddProduct(ctx context.Context, productID string, quantity int) (*CartResult, error) {
	if productID == "" {
		return nil, apperrors.Precondition("product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.Precondition("quantity must be at least 1")
	}
	return g.send(ctx, "add", http.MethodPost, "/add", addProductRequest{ProductID: productID, Quantity: quantity})
}

// AddGift adds an assembled gift through the dedicated gift endpoint.
func (g *CartGateway) AddGift(ctx context.Context, payload domain.GiftPayload) (*CartResult, error) {
	if !payload.IsGift || payload.ProductID == "" {
		return nil, apperrors.Precondition("gift payload is incomplete")
	}
	return g.send(ctx, "add_gift", http.MethodPost, "/add-gift", payload)
}

// UpdateQuantity sets the quantity of a product line.
func (g *CartGateway) UpdateQuantity(ctx context.Context, productID string, quantity int) (*CartResult, error) {
	if productID == "" {
		return nil, apperrors.Precondition("product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.Precondition("quantity must be at least 1, remove the item instead")
	}
	return g.send(ctx, "update", http.MethodPut, "/update", addProductRequest{ProductID: productID, Quantity: quantity})
}

// Remove deletes a product line or a gift line. Exactly one of productID and
// giftID must be set; anything else fails locally without a request.
func (g *CartGateway) Remove(ctx context.Context, productID, giftID string) (*CartResult, error) {
	switch {
	case productID == "" && giftID == "":
		return nil, apperrors.Precondition("either a product id or a gift id is required")
	case productID != "" && giftID != "":
		return nil, apperrors.Precondition("pass a product id or a gift id, not both")
	}
	return g.send(ctx, "remove", http.MethodDelete, "/remove", removeRequest{ProductID: productID, GiftID: giftID})
}

// Clear empties the cart.
func (g *CartGateway) Clear(ctx context.Context) (*CartResult, error) {
	return g.send(ctx, "clear", http.MethodDelete, "/clear", nil)
}

// Summary fetches the totals-only view of the cart.
func (g *CartGateway) Summary(ctx context.Context) (*CartResult, error) {
	return g.send(ctx, "summary", http.MethodGet, "/summary", nil)
}

// Sync merges the session cart into the signed-in user's cart. It is the one
// request that carries both the bearer token and the session id.
func (g *CartGateway) Sync(ctx context.Context) (*CartResult, error) {
	headers, err := g.client.headers.SyncHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.op("sync"), err)
	}
	return g.sendWith(ctx, "sync", http.MethodPost, "/sync", headers, nil)
}

// ApplyDiscount requests a wholesale discount.
func (g *CartGateway) ApplyDiscount(ctx context.Context, amount float64, reason string) (*CartResult, error) {
	if g.namespace != NamespaceWholesale {
		return nil, apperrors.Precondition("discounts are only available on wholesale carts")
	}
	if amount <= 0 {
		return nil, apperrors.Precondition("discount amount must be greater than 0")
	}
	return g.send(ctx, "discount", http.MethodPost, "/discount", discountRequest{DiscountAmount: amount, Reason: reason})
}

// AddNotes attaches order notes to a wholesale cart.
func (g *CartGateway) AddNotes(ctx context.Context, notes string) (*CartResult, error) {
	if g.namespace != NamespaceWholesale {
		return nil, apperrors.Precondition("notes are only available on wholesale carts")
	}
	return g.send(ctx, "notes", http.MethodPost, "/notes", notesRequest{Notes: notes})
}
