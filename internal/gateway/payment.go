package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// PaymentGateway maps the payment endpoints.
type PaymentGateway struct {
	client *Client
}

// NewPaymentGateway creates a payment gateway.
func NewPaymentGateway(client *Client) *PaymentGateway {
	return &PaymentGateway{client: client}
}

// CustomerData optionally identifies the payer for a payment session.
type CustomerData struct {
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// SessionRequest is the body of a payment session request.
type SessionRequest struct {
	OrderID      string        `json:"order_id"`
	Amount       float64       `json:"amount"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
	CustomerData *CustomerData `json:"customer_data,omitempty"`
}

type signatureRequest struct {
	OrderID string `json:"order_id"`
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

type confirmRequest struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
}

// ConfirmResult is the outcome of a successful order confirmation.
type ConfirmResult struct {
	Message string
	Data    json.RawMessage
}

func (g *PaymentGateway) post(ctx context.Context, op, path string, body any) (*Response, error) {
	headers, err := g.client.headers.SessionHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s headers: %w", op, err)
	}
	return g.client.call(ctx, op, http.MethodPost, path, headers, body)
}

// CreateSession requests backend-issued payment parameters for an order.
func (g *PaymentGateway) CreateSession(ctx context.Context, req SessionRequest) (*domain.PaymentSession, error) {
	if req.OrderID == "" {
		return nil, apperrors.Precondition("an order is required to start a payment")
	}
	resp, err := g.post(ctx, "payments.create_session", "/payments/wompi/create-session", req)
	if err != nil {
		return nil, err
	}
	var session domain.PaymentSession
	if resp.HasData() {
		if err := json.Unmarshal(resp.Data, &session); err != nil {
			return nil, fmt.Errorf("decode payment session: %w", err)
		}
	}
	return &session, nil
}

// GenerateSignature requests a fresh widget signature for an order. Only the
// order id is sent; every returned value is used exactly as received.
func (g *PaymentGateway) GenerateSignature(ctx context.Context, orderID string) (*domain.WidgetConfig, error) {
	if orderID == "" {
		return nil, apperrors.Precondition("an order is required to sign a payment")
	}
	resp, err := g.post(ctx, "payments.generate_signature", "/payments/wompi/generate-signature", signatureRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if !resp.HasData() {
		return nil, &apperrors.AppError{
			Code:    "SIGNATURE_MISSING",
			Message: resp.Message,
			Status:  resp.Status,
			Err:     fmt.Errorf("signature response without data: %w", apperrors.ErrUpstream),
		}
	}
	var cfg domain.WidgetConfig
	if err := json.Unmarshal(resp.Data, &cfg); err != nil {
		return nil, fmt.Errorf("decode widget signature: %w", err)
	}
	return &cfg, nil
}

// Verify asks the backend for the provider status of a transaction.
func (g *PaymentGateway) Verify(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if transactionID == "" {
		return nil, apperrors.Precondition("transaction id is required")
	}
	resp, err := g.post(ctx, "payments.verify", "/payments/verify", verifyRequest{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{ID: transactionID}
	if !resp.HasData() {
		return &tx, nil
	}
	var nested struct {
		Transaction *domain.Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(resp.Data, &nested); err == nil && nested.Transaction != nil {
		tx = *nested.Transaction
	} else if err := json.Unmarshal(resp.Data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.ID == "" {
		tx.ID = transactionID
	}
	return &tx, nil
}

// ConfirmOrder finalizes an order after the provider reported success.
func (g *PaymentGateway) ConfirmOrder(ctx context.Context, orderID, transactionID string) (*ConfirmResult, error) {
	if orderID == "" || transactionID == "" {
		return nil, apperrors.Precondition("order id and transaction id are required")
	}
	resp, err := g.post(ctx, "payments.confirm_order", "/payments/confirm-order", confirmRequest{OrderID: orderID, TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Message: resp.Message, Data: resp.Data}, nil
}

// Methods lists the payment methods the backend offers.
func (g *PaymentGateway) Methods(ctx context.Context) ([]domain.PaymentMethod, error) {
	headers, err := g.client.headers.AuthHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("payments.methods headers: %w", err)
	}
	resp, err := g.client.call(ctx, "payments.methods", http.MethodGet, "/payments/methods", headers, nil)
	if err != nil {
		return nil, err
	}
	if !resp.HasData() {
		return []domain.PaymentMethod{}, nil
	}

	var methods []domain.PaymentMethod
	if err := json.Unmarshal(resp.Data, &methods); err == nil {
		return methods, nil
	}
	var wrapped struct {
		Methods []domain.PaymentMethod `json:"methods"`
	}
	if err := json.Unmarshal(resp.Data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode payment methods: %w", err)
	}
	if wrapped.Methods == nil {
		wrapped.Methods = []domain.PaymentMethod{}
	}
	return wrapped.Methods, nil
}
