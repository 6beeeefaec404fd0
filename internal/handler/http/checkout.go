package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CheckoutService is the checkout surface exposed over HTTP.
// *checkout.Orchestrator implements it.
type CheckoutService interface {
	State() domain.CheckoutState
	Next(ctx context.Context) error
	Back() error
	CalculateShipping(ctx context.Context, req gateway.ShippingRequest) (*domain.ShippingQuote, error)
	CreateOrder(ctx context.Context, in checkout.OrderInput) error
	CreatePaymentSession(ctx context.Context, in checkout.PaymentSessionInput) (*domain.PaymentSession, error)
	PrepareWidget(ctx context.Context) (*domain.WidgetConfig, error)
	HandleWidgetResult(ctx context.Context, res checkout.WidgetResult) error
	ConfirmOrder(ctx context.Context, orderID, transactionID string) error
	VerifyPayment(ctx context.Context, transactionID string) (domain.PaymentStatus, error)
	PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	SetPaymentMethod(method string) error
	SetNotes(notes string)
	DismissError()
	Reset()
}

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ShippingRequest is the JSON request body for a shipping quote.
type ShippingRequest struct {
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
}

// ConfirmRequest is the JSON request body for confirming a paid order.
type ConfirmRequest struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

// VerifyRequest is the JSON request body for verifying a transaction.
type VerifyRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

// PaymentMethodRequest is the JSON request body for choosing a payment method.
type PaymentMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

// VerifyResponse reports the outcome of a payment verification.
type VerifyResponse struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Checkout      domain.CheckoutState `json:"checkout"`
}

// --- Handlers ---

// GetState handles GET /checkout.
func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// Next handles POST /checkout/next.
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Next(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// Back handles POST /checkout/back.
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Back(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// CalculateShipping handles POST /checkout/shipping.
func (h *CheckoutHandler) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	quote, err := h.service.CalculateShipping(r.Context(), gateway.ShippingRequest{
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", quote)
}

// CreateOrder handles POST /checkout/orders. Address validation happens in
// the orchestrator so that the failure is also kept in the checkout state.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in checkout.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("decode request body: %w", err))
		return
	}

	if err := h.service.CreateOrder(r.Context(), in); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "Order created", h.service.State())
}

// CreatePaymentSession handles POST /checkout/payment-session.
func (h *CheckoutHandler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var in checkout.PaymentSessionInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	session, err := h.service.CreatePaymentSession(r.Context(), in)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", session)
}

// PrepareWidget handles POST /checkout/widget.
func (h *CheckoutHandler) PrepareWidget(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.PrepareWidget(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", cfg)
}

// HandleWidgetResult handles POST /checkout/widget/result.
func (h *CheckoutHandler) HandleWidgetResult(w http.ResponseWriter, r *http.Request) {
	var res checkout.WidgetResult
	if err := validator.DecodeAndValidate(r, &res); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.HandleWidgetResult(r.Context(), res); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Payment confirmed", h.service.State())
}

// ConfirmOrder handles POST /checkout/confirm.
func (h *CheckoutHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ConfirmOrder(r.Context(), req.OrderID, req.TransactionID); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "Payment confirmed", h.service.State())
}

// VerifyPayment handles POST /checkout/verify.
func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	status, err := h.service.VerifyPayment(r.Context(), req.TransactionID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", VerifyResponse{PaymentStatus: status, Checkout: h.service.State()})
}

// PaymentMethods handles GET /checkout/payment-methods.
func (h *CheckoutHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.PaymentMethods(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", methods)
}

// SetPaymentMethod handles PUT /checkout/payment-method.
func (h *CheckoutHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.SetPaymentMethod(req.Method); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// SetNotes handles PUT /checkout/notes.
func (h *CheckoutHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.service.SetNotes(req.Notes)
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// DismissError handles DELETE /checkout/error.
func (h *CheckoutHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.service.DismissError()
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// Reset handles POST /checkout/reset.
func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	httputil.WriteSuccess(w, http.StatusOK, "", h.service.State())
}

// --- Helpers ---

// writeFailure answers a failed checkout operation. The customer copy kept in
// the checkout state wins over the raw error message.
func (h *CheckoutHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	state := h.service.State()
	if state.Error == "" {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status, code := failureStatus(err)
	if state.ErrorCode != "" {
		code = string(state.ErrorCode)
	}
	httputil.WriteFailure(w, status, code, state.Error, state)
}
