package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/pkg/validator"
)

// Step is a checkout step index.
type Step int

// Checkout steps, in order.
const (
	StepSummary      Step = 1
	StepShipping     Step = 2
	StepPayment      Step = 3
	StepConfirmation Step = 4
)

func (s Step) String() string {
	switch s {
	case StepSummary:
		return "summary"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// PaymentStatus is the payment state of the current checkout.
type PaymentStatus string

// Payment status constants.
const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// DefaultCountry is applied to addresses submitted without a country.
const DefaultCountry = "CO"

// Address is a shipping or billing address.
type Address struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	AddressLine1 string `json:"address_line_1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line_2,omitempty" validate:"max=255"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postal_code,omitempty" validate:"max=20"`
	Country      string `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
}

// Validate checks the address fields, defaulting the country first.
func (a *Address) Validate() error {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return validator.Validate(a)
}

// Totals is the cart totals snapshot captured when an order is placed.
type Totals struct {
	ItemsCount     int     `json:"items_count"`
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"tax_amount"`
	ShippingAmount float64 `json:"shipping_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalAmount    float64 `json:"total_amount"`
}

// SnapshotTotals captures the totals of c. The subtotal is recomputed from
// the items and tax falls back to round(subtotal × taxRate) when the cart
// carries none. A total sent by the server wins over the computed one.
func SnapshotTotals(c *Cart, taxRate decimal.Decimal) Totals {
	if c == nil {
		return Totals{}
	}

	subtotal := c.ItemsSubtotal()
	tax := c.TaxAmount.Amount
	if c.TaxAmount.IsZero() {
		tax = TaxFallback(subtotal, taxRate)
	}
	shipping := c.ShippingAmount.Amount
	discount := c.DiscountAmount.Amount

	total := c.TotalAmount.Amount
	if !c.TotalAmount.Set {
		total = subtotal.Add(tax).Add(shipping).Sub(discount)
	}

	return Totals{
		ItemsCount:     c.ItemCount(),
		Subtotal:       subtotal.InexactFloat64(),
		TaxAmount:      tax.InexactFloat64(),
		ShippingAmount: shipping.InexactFloat64(),
		DiscountAmount: discount.InexactFloat64(),
		TotalAmount:    total.InexactFloat64(),
	}
}

// ShippingQuote is the result of a shipping calculation.
type ShippingQuote struct {
	ShippingAmount Money  `json:"shipping_amount"`
	EstimatedDays  int    `json:"estimated_days"`
	Carrier        string `json:"carrier"`
}

// PaymentSession holds the backend-issued parameters for a hosted payment.
type PaymentSession struct {
	Reference   string `json:"reference"`
	Amount      Money  `json:"amount"`
	Currency    string `json:"currency"`
	Signature   string `json:"signature,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// WidgetConfig configures the hosted payment widget for one attempt. Every
// value is taken verbatim from the backend signature response; Amount keeps
// the raw JSON the backend signed, in the unit it signed.
type WidgetConfig struct {
	Reference string          `json:"reference"`
	Amount    json.RawMessage `json:"amount"`
	Currency  string          `json:"currency"`
	Signature string          `json:"signature"`
	PublicKey string          `json:"public_key"`
}

// Transaction is a payment provider transaction as reported by the backend.
type Transaction struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	Amount    Money  `json:"amount"`
}

// PaymentMethod is a payment method offered by the backend.
type PaymentMethod struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// CheckoutState is the client-owned state of one checkout attempt.
type CheckoutState struct {
	CurrentStep           Step            `json:"current_step"`
	ShippingAddress       *Address        `json:"shipping_address"`
	BillingAddress        *Address        `json:"billing_address"`
	SelectedPaymentMethod string          `json:"selected_payment_method"`
	OrderNotes            string          `json:"order_notes"`
	Loading               bool            `json:"loading"`
	Error                 string          `json:"error"`
	ErrorCode             ErrorCode       `json:"error_code,omitempty"`
	OrderID               string          `json:"order_id"`
	PaymentStatus         PaymentStatus   `json:"payment_status"`
	Totals                *Totals         `json:"totals"`
	Shipping              *ShippingQuote  `json:"shipping"`
	PaymentSession        *PaymentSession `json:"payment_session"`
	Widget                *WidgetConfig   `json:"widget"`
	TransactionID         string          `json:"transaction_id"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// NewCheckoutState returns the initial state of a checkout.
func NewCheckoutState() CheckoutState {
	return CheckoutState{
		CurrentStep:   StepSummary,
		PaymentStatus: PaymentPending,
	}
}
