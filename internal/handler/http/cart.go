package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartService is the cart surface exposed over HTTP. *cart.Manager implements it.
type CartService interface {
	Snapshot() cart.State
	LoadCart(ctx context.Context) cart.State
	ProductQuantity(productID string) int
	AddToCart(ctx context.Context, productID string, quantity int) cart.Result
	AddGift(ctx context.Context, gift domain.Gift) cart.Result
	UpdateQuantity(ctx context.Context, productID string, quantity int) cart.Result
	RemoveFromCart(ctx context.Context, productID, giftID string) cart.Result
	ClearCart(ctx context.Context) cart.Result
	SyncCart(ctx context.Context) cart.Result
	ApplyDiscount(ctx context.Context, amount float64, reason string) cart.Result
	AddNotes(ctx context.Context, notes string) cart.Result
}

// CartHandler handles HTTP requests for one cart variant.
type CartHandler struct {
	service CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// AddGiftRequest is the JSON request body for adding an assembled gift.
type AddGiftRequest struct {
	Gift domain.Gift `json:"gift"`
}

// UpdateQuantityRequest is the JSON request body for updating an item's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

// DiscountRequest is the JSON request body for a wholesale discount.
type DiscountRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Reason string  `json:"reason" validate:"max=500"`
}

// NotesRequest is the JSON request body for wholesale cart notes.
type NotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// QuantityResponse reports how many units of a product are in the cart.
type QuantityResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	InCart    bool   `json:"in_cart"`
}

// --- Handlers ---

// GetCart handles GET /cart and returns the current state without a request
// to the backend.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.Snapshot())
}

// LoadCart handles POST /cart/load. A failed load still answers 200 with an
// empty cart.
func (h *CartHandler) LoadCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.LoadCart(r.Context()))
}

// GetItemQuantity handles GET /cart/items/{productId}.
func (h *CartHandler) GetItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	qty := h.service.ProductQuantity(productID)
	httputil.WriteSuccess(w, http.StatusOK, "", QuantityResponse{
		ProductID: productID,
		Quantity:  qty,
		InCart:    qty > 0,
	})
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.writeResult(w, r, h.service.AddToCart(r.Context(), req.ProductID, req.Quantity))
}

// AddGift handles POST /cart/gifts.
func (h *CartHandler) AddGift(w http.ResponseWriter, r *http.Request) {
	var req AddGiftRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.writeResult(w, r, h.service.AddGift(r.Context(), req.Gift))
}

// UpdateItemQuantity handles PUT /cart/items/{productId}.
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.writeResult(w, r, h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), req.Quantity))
}

// RemoveItem handles DELETE /cart/items/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.service.RemoveFromCart(r.Context(), chi.URLParam(r, "productId"), ""))
}

// RemoveGift handles DELETE /cart/gifts/{giftId}.
func (h *CartHandler) RemoveGift(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.service.RemoveFromCart(r.Context(), "", chi.URLParam(r, "giftId")))
}

// ClearCart handles DELETE /cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.service.ClearCart(r.Context()))
}

// SyncCart handles POST /cart/sync.
func (h *CartHandler) SyncCart(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, h.service.SyncCart(r.Context()))
}

// ApplyDiscount handles POST /wholesale/cart/discount.
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.writeResult(w, r, h.service.ApplyDiscount(r.Context(), req.Amount, req.Reason))
}

// AddNotes handles POST /wholesale/cart/notes.
func (h *CartHandler) AddNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.writeResult(w, r, h.service.AddNotes(r.Context(), req.Notes))
}

// --- Helpers ---

// writeResult answers with the write outcome and the cart state after it.
func (h *CartHandler) writeResult(w http.ResponseWriter, r *http.Request, res cart.Result) {
	state := h.service.Snapshot()
	if res.Success {
		httputil.WriteSuccess(w, http.StatusOK, res.Message, state)
		return
	}

	status, code := failureStatus(res.Err)
	if status >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "cart write failed",
			slog.String("path", r.URL.Path),
			slog.String("message", res.Message),
		)
	}
	httputil.WriteFailure(w, status, code, res.Message, state)
}

// failureStatus maps the error behind a failed Result to a response status.
// Local rejections keep their own status; backend failures become 502.
func failureStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusBadGateway, "CART_WRITE_FAILED"
	case errors.Is(err, apperrors.ErrPrecondition):
		return http.StatusPreconditionFailed, "PRECONDITION_FAILED"
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	}

	var appErr *apperrors.AppError
	if status := httpclient.StatusOf(err); httpclient.IsClientError(status) && errors.As(err, &appErr) {
		return status, appErr.Code
	}
	return http.StatusBadGateway, "CART_WRITE_FAILED"
}
