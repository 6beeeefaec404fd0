package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Total number of cart operations by variant, operation and result",
	},
	[]string{"variant", "operation", "result"},
)

// Gateway is the remote cart API a Manager drives. *gateway.CartGateway
// implements it.
type Gateway interface {
	GetCart(ctx context.Context) (*gateway.CartResult, error)
	AddProduct(ctx context.Context, productID string, quantity int) (*gateway.CartResult, error)
	AddGift(ctx context.Context, payload domain.GiftPayload) (*gateway.CartResult, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (*gateway.CartResult, error)
	Remove(ctx context.Context, productID, giftID string) (*gateway.CartResult, error)
	Clear(ctx context.Context) (*gateway.CartResult, error)
	Sync(ctx context.Context) (*gateway.CartResult, error)
	ApplyDiscount(ctx context.Context, amount float64, reason string) (*gateway.CartResult, error)
	AddNotes(ctx context.Context, notes string) (*gateway.CartResult, error)
}

// Sessions clears the anonymous session id once its cart has been merged.
type Sessions interface {
	ClearSessionID(ctx context.Context) error
}

// State is the client view of the cart.
type State struct {
	Cart           *domain.Cart `json:"cart"`
	ItemsCount     int          `json:"items_count"`
	Subtotal       float64      `json:"subtotal"`
	TaxAmount      float64      `json:"tax_amount"`
	ShippingAmount float64      `json:"shipping_amount"`
	TotalAmount    float64      `json:"total_amount"`

	DiscountAmount     float64 `json:"discount_amount,omitempty"`
	WholesalerDiscount float64 `json:"wholesaler_discount,omitempty"`
	Notes              string  `json:"notes,omitempty"`

	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Result is the outcome of a cart write. Failures are reported here and never
// returned as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Err is the underlying failure, for logging by the caller.
	Err error `json:"-"`
}

// Listener is notified with a copy of the state after every change.
type Listener func(State)

// Manager holds the client cart state and keeps it in line with the backend.
// Concurrent writes are not serialized; the last response to arrive wins.
type Manager struct {
	variant  Variant
	gateway  Gateway
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time

	loads singleflight.Group

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// New creates a Manager for variant.
func New(variant Variant, gw Gateway, sessions Sessions, logger *slog.Logger) *Manager {
	m := &Manager{
		variant:   variant,
		gateway:   gw,
		sessions:  sessions,
		logger:    logger.With(slog.String("cart", variant.Name)),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	m.state = m.emptyState()
	return m
}

// NewRetail creates the storefront cart manager.
func NewRetail(gw Gateway, sessions Sessions, taxRate decimal.Decimal, logger *slog.Logger) *Manager {
	return New(Retail(taxRate), gw, sessions, logger)
}

// NewWholesale creates the wholesaler cart manager.
func NewWholesale(gw Gateway, sessions Sessions, taxRate, defaultDiscount decimal.Decimal, logger *slog.Logger) *Manager {
	return New(Wholesale(taxRate, defaultDiscount), gw, sessions, logger)
}

// Variant returns the variant the manager was built with.
func (m *Manager) Variant() Variant {
	return m.variant
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// ProductQuantity returns the quantity of productID in the cart, or 0.
func (m *Manager) ProductQuantity(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Cart.ProductQuantity(productID)
}

// IsInCart reports whether productID has a line in the cart.
func (m *Manager) IsInCart(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Cart.FindItemIndex(productID) >= 0
}

// LoadCart fetches the cart and reconciles state from it. It never reports a
// failure: a visitor without a cart is normal, so any error resets the state
// to an empty cart. Concurrent calls share one request, which is not tied to
// any single caller's cancellation. A caller whose ctx ends first gets the
// current state.
func (m *Manager) LoadCart(ctx context.Context) State {
	ch := m.loads.DoChan("load", func() (any, error) {
		return m.fetch(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		return m.Snapshot()
	}
}

// fetch issues its own cart request and replaces the state with the result.
func (m *Manager) fetch(ctx context.Context) State {
	m.update(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	res, err := m.gateway.GetCart(ctx)
	if err != nil {
		if domain.IsUnauthenticated(err) {
			m.logger.DebugContext(ctx, "no cart for this visitor yet", slog.String("error", err.Error()))
		} else {
			m.logger.WarnContext(ctx, "failed to load cart", slog.String("error", err.Error()))
		}
		operationsTotal.WithLabelValues(m.variant.Name, "load", "degraded").Inc()
		return m.replace(m.emptyState())
	}

	operationsTotal.WithLabelValues(m.variant.Name, "load", "success").Inc()
	return m.replace(m.reconcile(res.Cart))
}

// AddToCart adds quantity units of productID.
func (m *Manager) AddToCart(ctx context.Context, productID string, quantity int) Result {
	return m.write(ctx, OpAdd, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.AddProduct(ctx, productID, quantity)
	})
}

// AddGift adds an assembled gift. An incomplete gift is rejected before any
// request and leaves the state untouched.
func (m *Manager) AddGift(ctx context.Context, gift domain.Gift) Result {
	payload, err := domain.NewGiftPayload(gift, m.now())
	if err != nil {
		operationsTotal.WithLabelValues(m.variant.Name, string(OpAddGift), "rejected").Inc()
		return Result{Message: apperrors.Message(err, domain.MsgCartRetry), Err: err}
	}
	return m.write(ctx, OpAddGift, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.AddGift(ctx, payload)
	})
}

// UpdateQuantity sets the quantity of productID.
func (m *Manager) UpdateQuantity(ctx context.Context, productID string, quantity int) Result {
	return m.write(ctx, OpUpdate, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.UpdateQuantity(ctx, productID, quantity)
	})
}

// RemoveFromCart removes a product line or a gift line. Exactly one of
// productID and giftID must be set.
func (m *Manager) RemoveFromCart(ctx context.Context, productID, giftID string) Result {
	return m.write(ctx, OpRemove, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.Remove(ctx, productID, giftID)
	})
}

// ClearCart empties the cart.
func (m *Manager) ClearCart(ctx context.Context) Result {
	return m.write(ctx, OpClear, m.gateway.Clear)
}

// SyncCart merges the session cart into the signed-in user's cart. On success
// the session id is cleared for good.
func (m *Manager) SyncCart(ctx context.Context) Result {
	return m.write(ctx, OpSync, func(ctx context.Context) (*gateway.CartResult, error) {
		res, err := m.gateway.Sync(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.sessions.ClearSessionID(ctx); err != nil {
			m.logger.WarnContext(ctx, "failed to clear session id after sync", slog.String("error", err.Error()))
		}
		return res, nil
	})
}

// ApplyDiscount requests a wholesale discount.
func (m *Manager) ApplyDiscount(ctx context.Context, amount float64, reason string) Result {
	return m.write(ctx, OpDiscount, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.ApplyDiscount(ctx, amount, reason)
	})
}

// AddNotes attaches notes to a wholesale cart.
func (m *Manager) AddNotes(ctx context.Context, notes string) Result {
	return m.write(ctx, OpNotes, func(ctx context.Context) (*gateway.CartResult, error) {
		return m.gateway.AddNotes(ctx, notes)
	})
}

func (m *Manager) write(ctx context.Context, op Op, call func(context.Context) (*gateway.CartResult, error)) Result {
	p := m.variant.policy(op)

	m.update(func(s *State) {
		s.Loading = true
		if p.PersistError {
			s.Error = ""
		}
	})

	res, err := call(ctx)
	if err != nil {
		msg := apperrors.Message(err, domain.MsgCartRetry)
		m.logger.WarnContext(ctx, "cart operation failed",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		m.update(func(s *State) {
			s.Loading = false
			if p.PersistError {
				s.Error = msg
			}
		})
		operationsTotal.WithLabelValues(m.variant.Name, string(op), "failure").Inc()
		return Result{Message: msg, Err: err}
	}

	switch {
	case p.Refresh != Reload && res.Cart != nil:
		m.replace(m.reconcile(res.Cart))
	case p.Refresh == ReconcileOrKeep:
		m.update(func(s *State) { s.Loading = false })
	default:
		// A load already in flight may predate this write.
		m.fetch(ctx)
	}

	operationsTotal.WithLabelValues(m.variant.Name, string(op), "success").Inc()
	msg := res.Message
	if msg == "" {
		msg = p.SuccessMessage
	}
	return Result{Success: true, Message: msg}
}

// reconcile derives the display state from a backend cart. The item count is
// always the sum of quantities. Tax falls back to round(subtotal × rate) when
// the backend sends none, and the subtotal and total are only computed when
// absent.
func (m *Manager) reconcile(c *domain.Cart) State {
	if c == nil {
		return m.emptyState()
	}

	subtotal := c.Subtotal.Amount
	if !c.Subtotal.Set {
		subtotal = c.ItemsSubtotal()
	}
	tax := c.TaxAmount.Amount
	if c.TaxAmount.IsZero() {
		tax = domain.TaxFallback(subtotal, m.variant.TaxRate)
	}
	shipping := c.ShippingAmount.Amount

	s := State{
		Cart:           c,
		ItemsCount:     c.ItemCount(),
		Subtotal:       subtotal.InexactFloat64(),
		TaxAmount:      tax.InexactFloat64(),
		ShippingAmount: shipping.InexactFloat64(),
		LastUpdated:    m.now(),
	}

	discount := decimal.Zero
	if m.variant.Discounts {
		discount = c.DiscountAmount.Amount
		pct := m.variant.DefaultDiscount
		if c.WholesalerDiscount.Set {
			pct = c.WholesalerDiscount.Amount
		}
		s.DiscountAmount = discount.InexactFloat64()
		s.WholesalerDiscount = pct.InexactFloat64()
		s.Notes = c.Notes
	}

	total := c.TotalAmount.Amount
	if !c.TotalAmount.Set {
		total = subtotal.Add(tax).Add(shipping).Sub(discount)
	}
	s.TotalAmount = total.InexactFloat64()
	return s
}

func (m *Manager) emptyState() State {
	s := State{LastUpdated: m.now()}
	if m.variant.Discounts {
		s.WholesalerDiscount = m.variant.DefaultDiscount.InexactFloat64()
	}
	return s
}

// replace swaps in s and notifies listeners.
func (m *Manager) replace(s State) State {
	return m.update(func(cur *State) { *cur = s })
}

func (m *Manager) update(fn func(*State)) State {
	m.mu.Lock()
	fn(&m.state)
	s := m.state
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
	return s
}
