package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// --- Mock Gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) result(args mock.Arguments) (*gateway.CartResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CartResult), args.Error(1)
}

func (m *mockGateway) GetCart(ctx context.Context) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx))
}

func (m *mockGateway) AddProduct(ctx context.Context, productID string, quantity int) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, productID, quantity))
}

func (m *mockGateway) AddGift(ctx context.Context, payload domain.GiftPayload) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, payload))
}

func (m *mockGateway) UpdateQuantity(ctx context.Context, productID string, quantity int) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, productID, quantity))
}

func (m *mockGateway) Remove(ctx context.Context, productID, giftID string) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, productID, giftID))
}

func (m *mockGateway) Clear(ctx context.Context) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx))
}

func (m *mockGateway) Sync(ctx context.Context) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx))
}

func (m *mockGateway) ApplyDiscount(ctx context.Context, amount float64, reason string) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, amount, reason))
}

func (m *mockGateway) AddNotes(ctx context.Context, notes string) (*gateway.CartResult, error) {
	return m.result(m.Called(ctx, notes))
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) ClearSessionID(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Test Helpers ---

var (
	taxRate         = decimal.RequireFromString("0.19")
	defaultDiscount = decimal.NewFromInt(15)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRetail(gw *mockGateway, sessions *mockSessions) *Manager {
	return NewRetail(gw, sessions, taxRate, testLogger())
}

func newWholesale(gw *mockGateway, sessions *mockSessions) *Manager {
	return NewWholesale(gw, sessions, taxRate, defaultDiscount, testLogger())
}

func decodeCart(t *testing.T, raw string) *domain.Cart {
	t.Helper()
	c, err := domain.DecodeCart(json.RawMessage(raw))
	require.NoError(t, err)
	return c
}

func cartResult(t *testing.T, raw string) *gateway.CartResult {
	return &gateway.CartResult{Cart: decodeCart(t, raw)}
}

// Two lines: 22000 × 2 and 17000 × 1, no tax, server count of distinct lines.
const twoLineCart = `{
	"id": 12,
	"items": [
		{"id": 1, "product_id": 101, "quantity": 2, "unit_price": "22000.00", "total_price": "44000.00"},
		{"id": 2, "product_id": "102", "quantity": 1, "unit_price": 17000, "total_price": 17000}
	],
	"items_count": 2
}`

const oneLineCart = `{"id": 12, "items": [{"id": 1, "product_id": 101, "quantity": 1, "unit_price": 22000}], "subtotal": "22000", "tax_amount": "4180", "total_amount": "26180"}`

func unauthenticated() error {
	return &apperrors.AppError{Code: "UNAUTHORIZED", Message: "Unauthenticated.", Status: http.StatusUnauthorized, Err: apperrors.ErrUnauthorized}
}

// ============================================================================
// LoadCart
// ============================================================================

func TestLoadCart_ReconcilesTwoLineCart(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newRetail(gw, new(mockSessions))

	s := m.LoadCart(context.Background())

	assert.Equal(t, 3, s.ItemsCount)
	assert.Equal(t, float64(61000), s.Subtotal)
	assert.Equal(t, float64(11590), s.TaxAmount)
	assert.Equal(t, float64(72590), s.TotalAmount)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, s, m.Snapshot())
}

func TestLoadCart_ItemsCountIgnoresServerCount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"server counts lines", `{"items":[{"quantity":5},{"quantity":4}],"items_count":2}`, 9},
		{"server count missing", `{"items":[{"quantity":1}]}`, 1},
		{"server count too high", `{"items":[{"quantity":2}],"items_count":40}`, 2},
		{"no items", `{"items":[],"items_count":3}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			gw.On("GetCart", mock.Anything).Return(cartResult(t, tt.raw), nil)
			m := newRetail(gw, new(mockSessions))

			assert.Equal(t, tt.want, m.LoadCart(context.Background()).ItemsCount)
		})
	}
}

func TestLoadCart_TaxFallback(t *testing.T) {
	tests := []struct {
		name string
		tax  string
		want float64
	}{
		{"absent", ``, 11590},
		{"zero string", `,"tax_amount":"0"`, 11590},
		{"zero number", `,"tax_amount":0`, 11590},
		{"null", `,"tax_amount":null`, 11590},
		{"explicit string", `,"tax_amount":"4500"`, 4500},
		{"explicit number", `,"tax_amount":4500`, 4500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"items":[{"quantity":1,"unit_price":61000}],"subtotal":"61000"` + tt.tax + `}`
			gw := new(mockGateway)
			gw.On("GetCart", mock.Anything).Return(cartResult(t, raw), nil)
			m := newRetail(gw, new(mockSessions))

			assert.Equal(t, tt.want, m.LoadCart(context.Background()).TaxAmount)
		})
	}
}

func TestLoadCart_ServerTotalsWin(t *testing.T) {
	raw := `{"items":[{"quantity":1,"unit_price":100}],"subtotal":"90","tax_amount":"10","shipping_amount":"5","total_amount":"99"}`
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, raw), nil)
	m := newRetail(gw, new(mockSessions))

	s := m.LoadCart(context.Background())
	assert.Equal(t, float64(90), s.Subtotal)
	assert.Equal(t, float64(10), s.TaxAmount)
	assert.Equal(t, float64(5), s.ShippingAmount)
	assert.Equal(t, float64(99), s.TotalAmount)
}

func TestLoadCart_GarbageMoneyCoercesToZero(t *testing.T) {
	raw := `{"items":[],"subtotal":"abc","shipping_amount":"n/a","tax_amount":"x","total_amount":"?"}`
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, raw), nil)
	m := newRetail(gw, new(mockSessions))

	s := m.LoadCart(context.Background())
	assert.Zero(t, s.Subtotal)
	assert.Zero(t, s.ShippingAmount)
	assert.Zero(t, s.TaxAmount)
	assert.Zero(t, s.TotalAmount)
}

func TestLoadCart_FailureIsSilent(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unauthenticated", unauthenticated()},
		{"server error", apperrors.ServiceUnavailable("down")},
		{"transport", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil).Once()
			gw.On("GetCart", mock.Anything).Return(nil, tt.err).Once()
			m := newRetail(gw, new(mockSessions))

			m.LoadCart(context.Background())
			s := m.LoadCart(context.Background())

			assert.Nil(t, s.Cart)
			assert.Empty(t, s.Error)
			assert.False(t, s.Loading)
			assert.Zero(t, s.ItemsCount)
			assert.Zero(t, s.Subtotal)
			assert.Zero(t, s.TaxAmount)
			assert.Zero(t, s.TotalAmount)
		})
	}
}

func TestLoadCart_NoDataIsEmptyCart(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(&gateway.CartResult{}, nil)
	m := newRetail(gw, new(mockSessions))

	s := m.LoadCart(context.Background())
	assert.Nil(t, s.Cart)
	assert.Zero(t, s.ItemsCount)
}

func TestLoadCart_ConcurrentCallsShareRequest(t *testing.T) {
	gw := new(mockGateway)
	release := make(chan struct{})
	var calls atomic.Int32
	gw.On("GetCart", mock.Anything).
		Run(func(mock.Arguments) {
			calls.Add(1)
			<-release
		}).
		Return(cartResult(t, twoLineCart), nil)
	m := newRetail(gw, new(mockSessions))

	var wg sync.WaitGroup
	results := make([]State, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.LoadCart(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	for _, s := range results {
		assert.Equal(t, 3, s.ItemsCount)
	}
}

func TestLoadCart_CancelledCallerDoesNotDegradeOthers(t *testing.T) {
	gw := new(mockGateway)
	started := make(chan struct{})
	release := make(chan struct{})
	ctxErrs := make(chan error, 1)
	gw.On("GetCart", mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
			ctxErrs <- args.Get(0).(context.Context).Err()
		}).
		Return(cartResult(t, twoLineCart), nil).Once()
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newRetail(gw, new(mockSessions))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan State, 1)
	go func() { first <- m.LoadCart(ctx) }()
	<-started

	second := make(chan State, 1)
	go func() { second <- m.LoadCart(context.Background()) }()

	cancel()
	<-first
	close(release)

	got := <-second
	assert.Equal(t, 3, got.ItemsCount)
	assert.NoError(t, <-ctxErrs)
}

// ============================================================================
// Queries
// ============================================================================

func TestQueries(t *testing.T) {
	gw := new(mockGateway)
	m := newRetail(gw, new(mockSessions))

	assert.Zero(t, m.ProductQuantity("101"))
	assert.False(t, m.IsInCart("101"))

	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m.LoadCart(context.Background())

	assert.Equal(t, 2, m.ProductQuantity("101"))
	assert.Equal(t, 1, m.ProductQuantity("102"))
	assert.Zero(t, m.ProductQuantity("999"))
	assert.True(t, m.IsInCart("102"))
	assert.False(t, m.IsInCart("999"))
	assert.False(t, m.IsInCart(""))
}

func TestSubscribe(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newRetail(gw, new(mockSessions))

	var seen []State
	unsubscribe := m.Subscribe(func(s State) { seen = append(seen, s) })
	m.LoadCart(context.Background())

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.Equal(t, 3, seen[1].ItemsCount)

	unsubscribe()
	m.LoadCart(context.Background())
	assert.Len(t, seen, 2)
}

// ============================================================================
// Retail writes
// ============================================================================

func TestAddToCart_ReconcilesFromResponse(t *testing.T) {
	gw := new(mockGateway)
	res := cartResult(t, twoLineCart)
	res.Message = "Added"
	gw.On("AddProduct", mock.Anything, "101", 2).Return(res, nil)
	m := newRetail(gw, new(mockSessions))

	r := m.AddToCart(context.Background(), "101", 2)

	assert.True(t, r.Success)
	assert.Equal(t, "Added", r.Message)
	assert.Equal(t, 3, m.Snapshot().ItemsCount)
	gw.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestAddToCart_NoDataKeepsState(t *testing.T) {
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, oneLineCart), nil).Once()
	gw.On("AddProduct", mock.Anything, "101", 1).Return(&gateway.CartResult{}, nil)
	m := newRetail(gw, new(mockSessions))
	m.LoadCart(context.Background())

	r := m.AddToCart(context.Background(), "101", 1)

	assert.True(t, r.Success)
	assert.Equal(t, "Product added to cart", r.Message)
	s := m.Snapshot()
	assert.Equal(t, 1, s.ItemsCount)
	assert.False(t, s.Loading)
	gw.AssertNumberOfCalls(t, "GetCart", 1)
}

func TestAddToCart_FailureDoesNotSetError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"backend message", &apperrors.AppError{Code: "REQUEST_REJECTED", Message: "Out of stock", Err: apperrors.ErrUpstream}, "Out of stock"},
		{"transport", errors.New("dial tcp: refused"), domain.MsgCartRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			gw.On("AddProduct", mock.Anything, "101", 1).Return(nil, tt.err)
			m := newRetail(gw, new(mockSessions))

			r := m.AddToCart(context.Background(), "101", 1)

			assert.False(t, r.Success)
			assert.Equal(t, tt.message, r.Message)
			assert.ErrorIs(t, r.Err, tt.err)
			s := m.Snapshot()
			assert.Empty(t, s.Error)
			assert.False(t, s.Loading)
		})
	}
}

func completeGift() domain.Gift {
	return domain.Gift{
		Box: &domain.Box{ID: "b2", Name: "Trio", MaxBeers: 2, Price: domain.NewMoney(5000)},
		SelectedBeers: []domain.GiftProduct{
			{ID: "101", Name: "IPA", Price: domain.NewMoney(8000)},
			{ID: "102", Name: "Stout", Price: domain.NewMoney(9000)},
		},
	}
}

func TestAddGift_IncompleteGiftNeverCallsBackend(t *testing.T) {
	tests := []struct {
		name string
		gift func() domain.Gift
	}{
		{"no box", func() domain.Gift { g := completeGift(); g.Box = nil; return g }},
		{"too few", func() domain.Gift { g := completeGift(); g.SelectedBeers = g.SelectedBeers[:1]; return g }},
		{"too many", func() domain.Gift {
			g := completeGift()
			g.SelectedBeers = append(g.SelectedBeers, domain.GiftProduct{ID: "103"})
			return g
		}},
		{"duplicate", func() domain.Gift { g := completeGift(); g.SelectedBeers[1].ID = "101"; return g }},
		{"empty", func() domain.Gift { g := completeGift(); g.SelectedBeers = nil; return g }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			m := newRetail(gw, new(mockSessions))

			var notified bool
			m.Subscribe(func(State) { notified = true })
			before := m.Snapshot()

			r := m.AddGift(context.Background(), tt.gift())

			assert.False(t, r.Success)
			assert.NotEmpty(t, r.Message)
			assert.ErrorIs(t, r.Err, apperrors.ErrPrecondition)
			assert.Equal(t, before, m.Snapshot())
			assert.False(t, notified)
			gw.AssertNotCalled(t, "AddGift", mock.Anything, mock.Anything)
		})
	}
}

func TestAddGift_NoDataReloads(t *testing.T) {
	gw := new(mockGateway)
	gw.On("AddGift", mock.Anything, mock.MatchedBy(func(p domain.GiftPayload) bool {
		return p.IsGift && p.Quantity == 1 && len(p.GiftData.Beers) == 2
	})).Return(&gateway.CartResult{Message: "Gift added"}, nil)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newRetail(gw, new(mockSessions))

	r := m.AddGift(context.Background(), completeGift())

	assert.True(t, r.Success)
	assert.Equal(t, "Gift added", r.Message)
	assert.Equal(t, 3, m.Snapshot().ItemsCount)
	gw.AssertNumberOfCalls(t, "GetCart", 1)
}

func TestAddGift_FailureDoesNotSetError(t *testing.T) {
	gw := new(mockGateway)
	gw.On("AddGift", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	m := newRetail(gw, new(mockSessions))

	r := m.AddGift(context.Background(), completeGift())
	assert.False(t, r.Success)
	assert.Empty(t, m.Snapshot().Error)
}

func TestRetailWrites_ReloadAfterSuccess(t *testing.T) {
	tests := []struct {
		name  string
		setup func(gw *mockGateway)
		call  func(m *Manager) Result
	}{
		{
			name: "update",
			setup: func(gw *mockGateway) {
				gw.On("UpdateQuantity", mock.Anything, "101", 3).Return(cartResult(t, oneLineCart), nil)
			},
			call: func(m *Manager) Result { return m.UpdateQuantity(context.Background(), "101", 3) },
		},
		{
			name:  "remove",
			setup: func(gw *mockGateway) { gw.On("Remove", mock.Anything, "101", "").Return(&gateway.CartResult{}, nil) },
			call:  func(m *Manager) Result { return m.RemoveFromCart(context.Background(), "101", "") },
		},
		{
			name:  "clear",
			setup: func(gw *mockGateway) { gw.On("Clear", mock.Anything).Return(cartResult(t, oneLineCart), nil) },
			call:  func(m *Manager) Result { return m.ClearCart(context.Background()) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			tt.setup(gw)
			gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
			m := newRetail(gw, new(mockSessions))

			r := tt.call(m)

			assert.True(t, r.Success)
			assert.Equal(t, 3, m.Snapshot().ItemsCount, "state comes from the reload, not the write response")
			gw.AssertNumberOfCalls(t, "GetCart", 1)
		})
	}
}

func TestWrites_ReloadDoesNotJoinEarlierLoad(t *testing.T) {
	gw := new(mockGateway)
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("GetCart", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(cartResult(t, twoLineCart), nil).Once()
	gw.On("GetCart", mock.Anything).Return(cartResult(t, oneLineCart), nil)
	gw.On("UpdateQuantity", mock.Anything, "101", 1).Return(&gateway.CartResult{}, nil)
	m := newRetail(gw, new(mockSessions))

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		m.LoadCart(context.Background())
	}()
	<-started

	r := m.UpdateQuantity(context.Background(), "101", 1)

	assert.True(t, r.Success)
	assert.Equal(t, 1, m.Snapshot().ItemsCount)
	gw.AssertNumberOfCalls(t, "GetCart", 2)

	close(release)
	<-loaded
}

func TestRetailWrites_FailureSetsError(t *testing.T) {
	backendErr := &apperrors.AppError{Code: "REQUEST_REJECTED", Message: "Item not in cart", Err: apperrors.ErrUpstream}
	tests := []struct {
		name  string
		setup func(gw *mockGateway)
		call  func(m *Manager) Result
	}{
		{
			name:  "update",
			setup: func(gw *mockGateway) { gw.On("UpdateQuantity", mock.Anything, "101", 3).Return(nil, backendErr) },
			call:  func(m *Manager) Result { return m.UpdateQuantity(context.Background(), "101", 3) },
		},
		{
			name:  "remove",
			setup: func(gw *mockGateway) { gw.On("Remove", mock.Anything, "101", "").Return(nil, backendErr) },
			call:  func(m *Manager) Result { return m.RemoveFromCart(context.Background(), "101", "") },
		},
		{
			name:  "clear",
			setup: func(gw *mockGateway) { gw.On("Clear", mock.Anything).Return(nil, backendErr) },
			call:  func(m *Manager) Result { return m.ClearCart(context.Background()) },
		},
		{
			name:  "sync",
			setup: func(gw *mockGateway) { gw.On("Sync", mock.Anything).Return(nil, backendErr) },
			call:  func(m *Manager) Result { return m.SyncCart(context.Background()) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			tt.setup(gw)
			m := newRetail(gw, new(mockSessions))

			r := tt.call(m)

			assert.False(t, r.Success)
			assert.Equal(t, "Item not in cart", r.Message)
			s := m.Snapshot()
			assert.Equal(t, "Item not in cart", s.Error)
			assert.False(t, s.Loading)
			gw.AssertNotCalled(t, "GetCart", mock.Anything)
		})
	}
}

func TestRemoveFromCart_PreconditionReportedLocally(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Remove", mock.Anything, "", "").Return(nil, apperrors.Precondition("either a product id or a gift id is required"))
	m := newRetail(gw, new(mockSessions))

	r := m.RemoveFromCart(context.Background(), "", "")

	assert.False(t, r.Success)
	assert.ErrorIs(t, r.Err, apperrors.ErrPrecondition)
	assert.Equal(t, "either a product id or a gift id is required", r.Message)
}

func TestSyncCart_ClearsSessionAndReloads(t *testing.T) {
	gw := new(mockGateway)
	sessions := new(mockSessions)
	gw.On("Sync", mock.Anything).Return(&gateway.CartResult{Message: "Merged"}, nil)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	sessions.On("ClearSessionID", mock.Anything).Return(nil)
	m := newRetail(gw, sessions)

	r := m.SyncCart(context.Background())

	assert.True(t, r.Success)
	assert.Equal(t, "Merged", r.Message)
	sessions.AssertNumberOfCalls(t, "ClearSessionID", 1)
	assert.Equal(t, 3, m.Snapshot().ItemsCount)
}

func TestSyncCart_FailureKeepsSession(t *testing.T) {
	gw := new(mockGateway)
	sessions := new(mockSessions)
	gw.On("Sync", mock.Anything).Return(nil, errors.New("boom"))
	m := newRetail(gw, sessions)

	r := m.SyncCart(context.Background())

	assert.False(t, r.Success)
	assert.Equal(t, domain.MsgCartRetry, r.Message)
	sessions.AssertNotCalled(t, "ClearSessionID", mock.Anything)
}

// ============================================================================
// Wholesale
// ============================================================================

func TestWholesale_ReconcileDiscountFields(t *testing.T) {
	raw := `{"items":[{"quantity":10,"unit_price":1000}],"subtotal":"10000","tax_amount":"1900","discount_amount":"1500","wholesaler_discount":"20","notes":"dock 3"}`
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, raw), nil)
	m := newWholesale(gw, new(mockSessions))

	s := m.LoadCart(context.Background())

	assert.Equal(t, 10, s.ItemsCount)
	assert.Equal(t, float64(1500), s.DiscountAmount)
	assert.Equal(t, float64(20), s.WholesalerDiscount)
	assert.Equal(t, "dock 3", s.Notes)
	assert.Equal(t, float64(10400), s.TotalAmount)
}

func TestWholesale_DefaultDiscount(t *testing.T) {
	gw := new(mockGateway)
	m := newWholesale(gw, new(mockSessions))
	assert.Equal(t, float64(15), m.Snapshot().WholesalerDiscount)

	gw.On("GetCart", mock.Anything).Return(nil, unauthenticated())
	s := m.LoadCart(context.Background())
	assert.Equal(t, float64(15), s.WholesalerDiscount)
	assert.Zero(t, s.DiscountAmount)
}

func TestRetail_IgnoresDiscountFields(t *testing.T) {
	raw := `{"items":[{"quantity":1,"unit_price":1000}],"discount_amount":"500","wholesaler_discount":"20"}`
	gw := new(mockGateway)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, raw), nil)
	m := newRetail(gw, new(mockSessions))

	s := m.LoadCart(context.Background())
	assert.Zero(t, s.DiscountAmount)
	assert.Zero(t, s.WholesalerDiscount)
	assert.Equal(t, float64(1190), s.TotalAmount)
}

func TestWholesale_WritesReloadWhenNoData(t *testing.T) {
	gw := new(mockGateway)
	gw.On("AddProduct", mock.Anything, "101", 1).Return(&gateway.CartResult{}, nil)
	gw.On("UpdateQuantity", mock.Anything, "101", 2).Return(cartResult(t, oneLineCart), nil)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newWholesale(gw, new(mockSessions))

	r := m.AddToCart(context.Background(), "101", 1)
	assert.True(t, r.Success)
	assert.Equal(t, 3, m.Snapshot().ItemsCount)
	gw.AssertNumberOfCalls(t, "GetCart", 1)

	r = m.UpdateQuantity(context.Background(), "101", 2)
	assert.True(t, r.Success)
	assert.Equal(t, 1, m.Snapshot().ItemsCount, "response data is reconciled directly")
	gw.AssertNumberOfCalls(t, "GetCart", 1)
}

func TestWholesale_DiscountAndNotesReload(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ApplyDiscount", mock.Anything, 1500.0, "volume").Return(cartResult(t, oneLineCart), nil)
	gw.On("AddNotes", mock.Anything, "dock 3").Return(&gateway.CartResult{}, nil)
	gw.On("GetCart", mock.Anything).Return(cartResult(t, twoLineCart), nil)
	m := newWholesale(gw, new(mockSessions))

	r := m.ApplyDiscount(context.Background(), 1500, "volume")
	assert.True(t, r.Success)
	assert.Equal(t, "Discount applied", r.Message)
	assert.Equal(t, 3, m.Snapshot().ItemsCount)

	r = m.AddNotes(context.Background(), "dock 3")
	assert.True(t, r.Success)
	gw.AssertNumberOfCalls(t, "GetCart", 2)
}

func TestWholesale_DiscountFailureSetsError(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ApplyDiscount", mock.Anything, 0.0, "").Return(nil, apperrors.Precondition("discount amount must be greater than 0"))
	m := newWholesale(gw, new(mockSessions))

	r := m.ApplyDiscount(context.Background(), 0, "")
	assert.False(t, r.Success)
	assert.Equal(t, "discount amount must be greater than 0", m.Snapshot().Error)
}
