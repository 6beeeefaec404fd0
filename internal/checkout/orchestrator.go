package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

var stepTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_step_transitions_total",
		Help: "Total number of checkout step transitions",
	},
	[]string{"from", "to"},
)

// ProviderApproved is the provider transaction status of a successful payment.
const ProviderApproved = "APPROVED"

// CheckoutAPI is the remote checkout API. *gateway.CheckoutGateway implements it.
type CheckoutAPI interface {
	CalculateShipping(ctx context.Context, req gateway.ShippingRequest) (*domain.ShippingQuote, error)
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.OrderResult, error)
}

// PaymentAPI is the remote payment API. *gateway.PaymentGateway implements it.
type PaymentAPI interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*domain.PaymentSession, error)
	GenerateSignature(ctx context.Context, orderID string) (*domain.WidgetConfig, error)
	Verify(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ConfirmOrder(ctx context.Context, orderID, transactionID string) (*gateway.ConfirmResult, error)
	Methods(ctx context.Context) ([]domain.PaymentMethod, error)
}

// CartView exposes the live cart. *cart.Manager implements it.
type CartView interface {
	Snapshot() cart.State
}

// OrderInput holds the customer details submitted to place an order.
type OrderInput struct {
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	Notes           string          `json:"notes"`
}

// PaymentSessionInput holds the parameters of a hosted payment session. A
// zero OrderID or Amount falls back to the current order.
type PaymentSessionInput struct {
	OrderID      string                `json:"order_id"`
	Amount       float64               `json:"amount"`
	RedirectURL  string                `json:"redirect_url"`
	CustomerData *gateway.CustomerData `json:"customer_data,omitempty"`
}

// WidgetResult is what the hosted payment widget reports when it closes.
type WidgetResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Orchestrator drives one checkout through summary, shipping, payment and
// confirmation. Failures are kept in State.Error until dismissed and are also
// returned to the caller. Operations are not guarded against running
// concurrently with each other.
type Orchestrator struct {
	checkout  CheckoutAPI
	payments  PaymentAPI
	cart      CartView
	publisher event.Publisher
	taxRate   decimal.Decimal
	logger    *slog.Logger

	mu    sync.Mutex
	state domain.CheckoutState
}

// NewOrchestrator creates an Orchestrator at step 1.
func NewOrchestrator(checkout CheckoutAPI, payments PaymentAPI, cartView CartView, publisher event.Publisher, taxRate decimal.Decimal, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		checkout:  checkout,
		payments:  payments,
		cart:      cartView,
		publisher: publisher,
		taxRate:   taxRate,
		logger:    logger,
	}
	o.state = o.initialState()
	return o
}

func (o *Orchestrator) initialState() domain.CheckoutState {
	s := domain.NewCheckoutState()
	s.UpdatedAt = time.Now().UTC()
	return s
}

// State returns a copy of the checkout state.
func (o *Orchestrator) State() domain.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) update(fn func(*domain.CheckoutState)) domain.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	from := o.state.CurrentStep
	fn(&o.state)
	o.state.UpdatedAt = time.Now().UTC()
	if to := o.state.CurrentStep; to != from {
		stepTransitions.WithLabelValues(from.String(), to.String()).Inc()
	}
	return o.state
}

// fail records msg and code as the persistent checkout error.
func (o *Orchestrator) fail(msg string, code domain.ErrorCode) {
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.Error = msg
		s.ErrorCode = code
	})
}

func (o *Orchestrator) begin() {
	o.update(func(s *domain.CheckoutState) {
		s.Loading = true
		s.Error = ""
		s.ErrorCode = ""
	})
}

// Next advances from the summary to the shipping step. The live cart must
// hold at least one item.
func (o *Orchestrator) Next(ctx context.Context) error {
	step := o.State().CurrentStep
	switch step {
	case domain.StepSummary:
		live := o.cart.Snapshot()
		if live.Cart == nil || live.ItemsCount == 0 {
			return apperrors.Precondition("your cart is empty")
		}
		o.update(func(s *domain.CheckoutState) { s.CurrentStep = domain.StepShipping })
		o.logger.DebugContext(ctx, "checkout advanced", slog.String("step", domain.StepShipping.String()))
		return nil
	case domain.StepShipping:
		return apperrors.Precondition("place the order to continue to payment")
	case domain.StepPayment:
		return apperrors.Precondition("the payment must be confirmed to continue")
	default:
		return apperrors.Precondition("the checkout is already complete")
	}
}

// Back returns to the previous step. Only shipping and payment can go back.
func (o *Orchestrator) Back() error {
	var err error
	o.update(func(s *domain.CheckoutState) {
		switch s.CurrentStep {
		case domain.StepShipping, domain.StepPayment:
			s.CurrentStep--
		default:
			err = apperrors.Precondition(fmt.Sprintf("cannot go back from the %s step", s.CurrentStep))
		}
	})
	return err
}

// CalculateShipping quotes shipping for the destination and keeps the quote.
func (o *Orchestrator) CalculateShipping(ctx context.Context, req gateway.ShippingRequest) (*domain.ShippingQuote, error) {
	o.begin()
	quote, err := o.checkout.CalculateShipping(ctx, req)
	if err != nil {
		o.logger.ErrorContext(ctx, "shipping calculation failed",
			slog.String("city", req.City),
			slog.String("error", err.Error()),
		)
		o.fail(apperrors.Message(err, domain.MsgShippingFailed), "")
		return nil, fmt.Errorf("calculate shipping: %w", err)
	}
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.Shipping = quote
	})
	return quote, nil
}

// CreateOrder places the order and moves from shipping to payment. The cart
// totals are captured before the request because the backend may clear the
// cart once the order exists; a total confirmed by the backend replaces the
// captured one. An order that already exists is never placed again.
func (o *Orchestrator) CreateOrder(ctx context.Context, in OrderInput) error {
	current := o.State()
	if current.OrderID != "" {
		o.update(func(s *domain.CheckoutState) {
			if s.CurrentStep == domain.StepShipping {
				s.CurrentStep = domain.StepPayment
			}
		})
		o.logger.InfoContext(ctx, "order already created, reusing it", slog.String("order_id", current.OrderID))
		return nil
	}
	if current.CurrentStep != domain.StepShipping {
		return apperrors.Precondition("orders can only be placed from the shipping step")
	}

	if err := validateAddresses(&in); err != nil {
		o.fail(apperrors.Message(err, domain.UserMessage(domain.CodeValidationFailed)), domain.CodeValidationFailed)
		return err
	}

	totals := domain.SnapshotTotals(o.cart.Snapshot().Cart, o.taxRate)

	o.begin()
	res, err := o.checkout.CreateOrder(ctx, gateway.CreateOrderRequest{
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Notes:           in.Notes,
	})
	if err != nil {
		code := domain.ClassifyOrderError(err)
		o.logger.ErrorContext(ctx, "order creation failed",
			slog.String("error_code", string(code)),
			slog.String("error", err.Error()),
		)
		o.fail(domain.UserMessage(code), code)
		return fmt.Errorf("create order: %w", err)
	}

	orderID, ok := domain.ExtractOrderID(res.Data)
	if !ok {
		o.logger.ErrorContext(ctx, "order created without an identifier", slog.String("message", res.Message))
		o.fail(domain.UserMessage(domain.CodeGeneric), domain.CodeGeneric)
		return &apperrors.AppError{
			Code:    "ORDER_ID_MISSING",
			Message: domain.UserMessage(domain.CodeGeneric),
			Status:  http.StatusBadGateway,
			Err:     fmt.Errorf("create order response without an order id: %w", apperrors.ErrUpstream),
		}
	}
	if total, ok := domain.ExtractOrderTotal(res.Data); ok {
		totals.TotalAmount = total.Float()
	}

	shipping := in.ShippingAddress
	o.update(func(s *domain.CheckoutState) {
		s.OrderID = orderID
		s.ShippingAddress = &shipping
		s.BillingAddress = in.BillingAddress
		s.OrderNotes = in.Notes
		s.Totals = &totals
		s.Loading = false
		s.CurrentStep = domain.StepPayment
	})

	o.logger.InfoContext(ctx, "order created",
		slog.String("order_id", orderID),
		slog.Float64("total_amount", totals.TotalAmount),
	)
	o.publish(ctx, "order.created", func() error {
		return o.publisher.PublishOrderCreated(ctx, event.OrderCreatedData{
			OrderID: orderID,
			UserID:  logger.UserIDFromContext(ctx),
			Totals:  totals,
		})
	})
	return nil
}

func validateAddresses(in *OrderInput) error {
	if err := in.ShippingAddress.Validate(); err != nil {
		return invalidAddress("shipping", err)
	}
	if in.BillingAddress != nil {
		if err := in.BillingAddress.Validate(); err != nil {
			return invalidAddress("billing", err)
		}
	}
	return nil
}

func invalidAddress(kind string, err error) error {
	return &apperrors.AppError{
		Code:    string(domain.CodeValidationFailed),
		Message: fmt.Sprintf("invalid %s address: %s", kind, err.Error()),
		Status:  http.StatusBadRequest,
		Err:     fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err),
	}
}

// CreatePaymentSession requests hosted payment parameters for the order.
func (o *Orchestrator) CreatePaymentSession(ctx context.Context, in PaymentSessionInput) (*domain.PaymentSession, error) {
	current := o.State()
	if in.OrderID == "" {
		in.OrderID = current.OrderID
	}
	if in.Amount == 0 && current.Totals != nil {
		in.Amount = current.Totals.TotalAmount
	}
	if in.OrderID == "" {
		return nil, apperrors.Precondition("place the order before paying")
	}

	o.begin()
	session, err := o.payments.CreateSession(ctx, gateway.SessionRequest{
		OrderID:      in.OrderID,
		Amount:       in.Amount,
		RedirectURL:  in.RedirectURL,
		CustomerData: in.CustomerData,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "payment session failed",
			slog.String("order_id", in.OrderID),
			slog.String("error", err.Error()),
		)
		o.fail(apperrors.Message(err, domain.MsgPaymentSession), "")
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.PaymentSession = session
	})
	return session, nil
}

// PrepareWidget fetches a fresh signature for a payment attempt. The returned
// configuration is used exactly as the backend sent it.
func (o *Orchestrator) PrepareWidget(ctx context.Context) (*domain.WidgetConfig, error) {
	current := o.State()
	if current.OrderID == "" || current.CurrentStep != domain.StepPayment {
		return nil, apperrors.Precondition("place the order before paying")
	}

	o.begin()
	cfg, err := o.payments.GenerateSignature(ctx, current.OrderID)
	if err != nil {
		o.logger.ErrorContext(ctx, "payment signature failed",
			slog.String("order_id", current.OrderID),
			slog.String("error", err.Error()),
		)
		o.fail(domain.MsgPaymentSession, "")
		return nil, fmt.Errorf("prepare payment widget: %w", err)
	}
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.Widget = cfg
		s.PaymentStatus = domain.PaymentPending
	})
	return cfg, nil
}

// HandleWidgetResult processes the widget outcome. An approved transaction
// confirms the order; anything else marks the payment as failed.
func (o *Orchestrator) HandleWidgetResult(ctx context.Context, res WidgetResult) error {
	if res.TransactionID == "" {
		return apperrors.InvalidInput("transaction id is required")
	}
	orderID, err := o.awaitingPayment()
	if err != nil {
		return err
	}
	if strings.EqualFold(res.Status, ProviderApproved) {
		return o.ConfirmOrder(ctx, orderID, res.TransactionID)
	}

	o.paymentFailed(ctx, orderID, res.TransactionID, res.Status)
	return apperrors.PaymentFailed(domain.MsgPaymentFailed)
}

// awaitingPayment returns the current order while the checkout sits at the
// payment step. Payment outcomes are rejected at any other step.
func (o *Orchestrator) awaitingPayment() (string, error) {
	current := o.State()
	if current.CurrentStep != domain.StepPayment || current.OrderID == "" {
		return "", apperrors.Precondition("there is no order awaiting payment")
	}
	return current.OrderID, nil
}

// ConfirmOrder finalizes the order after the provider reported success. An
// empty orderID means the current order; any other order is rejected.
func (o *Orchestrator) ConfirmOrder(ctx context.Context, orderID, transactionID string) error {
	current, err := o.awaitingPayment()
	if err != nil {
		return err
	}
	switch orderID {
	case "":
		orderID = current
	case current:
	default:
		return apperrors.Precondition(fmt.Sprintf("order %s is not the order awaiting payment", orderID))
	}

	o.update(func(s *domain.CheckoutState) {
		s.Loading = true
		s.Error = ""
		s.ErrorCode = ""
		s.PaymentStatus = domain.PaymentProcessing
		s.TransactionID = transactionID
	})

	if _, err := o.payments.ConfirmOrder(ctx, orderID, transactionID); err != nil {
		o.logger.ErrorContext(ctx, "order confirmation failed",
			slog.String("order_id", orderID),
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
		o.paymentFailed(ctx, orderID, transactionID, apperrors.Message(err, err.Error()))
		return fmt.Errorf("confirm order: %w", err)
	}

	o.paymentCompleted(ctx, orderID, transactionID)
	return nil
}

// VerifyPayment checks a transaction with the provider, for flows where the
// provider redirects back instead of calling the widget callback.
func (o *Orchestrator) VerifyPayment(ctx context.Context, transactionID string) (domain.PaymentStatus, error) {
	orderID, err := o.awaitingPayment()
	if err != nil {
		return "", err
	}

	o.begin()
	tx, err := o.payments.Verify(ctx, transactionID)
	if err != nil {
		o.logger.ErrorContext(ctx, "payment verification failed",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
		o.fail(apperrors.Message(err, domain.MsgPaymentFailed), "")
		return "", fmt.Errorf("verify payment: %w", err)
	}

	if strings.EqualFold(tx.Status, ProviderApproved) {
		o.paymentCompleted(ctx, orderID, tx.ID)
		return domain.PaymentCompleted, nil
	}
	o.paymentFailed(ctx, orderID, tx.ID, tx.Status)
	return domain.PaymentFailed, nil
}

func (o *Orchestrator) paymentCompleted(ctx context.Context, orderID, transactionID string) {
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.PaymentStatus = domain.PaymentCompleted
		s.TransactionID = transactionID
		if s.CurrentStep == domain.StepPayment {
			s.CurrentStep = domain.StepConfirmation
		}
	})
	o.logger.InfoContext(ctx, "payment completed",
		slog.String("order_id", orderID),
		slog.String("transaction_id", transactionID),
	)
	o.publish(ctx, "payment.completed", func() error {
		return o.publisher.PublishPaymentCompleted(ctx, event.PaymentCompletedData{
			OrderID:       orderID,
			TransactionID: transactionID,
			UserID:        logger.UserIDFromContext(ctx),
		})
	})
}

func (o *Orchestrator) paymentFailed(ctx context.Context, orderID, transactionID, reason string) {
	o.update(func(s *domain.CheckoutState) {
		s.Loading = false
		s.PaymentStatus = domain.PaymentFailed
		s.Error = domain.MsgPaymentFailed
		s.ErrorCode = ""
		if transactionID != "" {
			s.TransactionID = transactionID
		}
	})
	o.logger.WarnContext(ctx, "payment failed",
		slog.String("order_id", orderID),
		slog.String("transaction_id", transactionID),
		slog.String("reason", reason),
	)
	o.publish(ctx, "payment.failed", func() error {
		return o.publisher.PublishPaymentFailed(ctx, event.PaymentFailedData{
			OrderID:       orderID,
			TransactionID: transactionID,
			Reason:        reason,
		})
	})
}

// publish sends an event and logs, rather than returns, a failure.
func (o *Orchestrator) publish(ctx context.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		o.logger.WarnContext(ctx, "failed to publish checkout event",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
	}
}

// PaymentMethods lists the payment methods the backend offers.
func (o *Orchestrator) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	methods, err := o.payments.Methods(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "failed to list payment methods", slog.String("error", err.Error()))
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// SetPaymentMethod records the payment method the customer picked.
func (o *Orchestrator) SetPaymentMethod(method string) error {
	if strings.TrimSpace(method) == "" {
		return apperrors.InvalidInput("payment method is required")
	}
	o.update(func(s *domain.CheckoutState) { s.SelectedPaymentMethod = method })
	return nil
}

// SetNotes records the order notes.
func (o *Orchestrator) SetNotes(notes string) {
	o.update(func(s *domain.CheckoutState) { s.OrderNotes = notes })
}

// DismissError clears the persistent error so the step can be retried.
func (o *Orchestrator) DismissError() {
	o.update(func(s *domain.CheckoutState) {
		s.Error = ""
		s.ErrorCode = ""
	})
}

// Reset returns the checkout to its initial state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = o.initialState()
}
