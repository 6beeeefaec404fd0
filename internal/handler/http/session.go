package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// TokenStore persists the auth token set by the external login flow.
// *identity.Provider implements it.
type TokenStore interface {
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// CartSyncer runs the post-login cart merge. *syncbridge.Bridge implements it.
type CartSyncer interface {
	SyncCartAfterLogin(ctx context.Context) cart.Result
}

// CartLoader reloads a cart. *cart.Manager implements it.
type CartLoader interface {
	LoadCart(ctx context.Context) cart.State
}

// Resetter drops per-customer state on logout.
type Resetter interface {
	Reset()
}

// SessionHandler handles login and logout notifications from the UI.
type SessionHandler struct {
	tokens TokenStore
	syncer CartSyncer
	carts  []CartLoader
	resets []Resetter
	logger *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler. carts are reloaded
// after every login and logout; resets run on logout.
func NewSessionHandler(tokens TokenStore, syncer CartSyncer, carts []CartLoader, resets []Resetter, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		tokens: tokens,
		syncer: syncer,
		carts:  carts,
		resets: resets,
		logger: logger,
	}
}

// LoginRequest is the JSON request body sent after a successful login or
// registration.
type LoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginResponse reports the cart merge that followed a login.
type LoginResponse struct {
	Sync cart.Result `json:"sync"`
	Cart cart.State  `json:"cart"`
}

// Login handles POST /session/login. The token is stored, the session cart is
// merged once, and the cart is reloaded. A failed merge does not fail the
// login; the session id is kept so the merge can be retried.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.tokens.SetToken(ctx, req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res := h.syncer.SyncCartAfterLogin(ctx)
	if !res.Success {
		h.logger.WarnContext(ctx, "cart merge after login failed", slog.String("message", res.Message))
	}

	httputil.WriteSuccess(w, http.StatusOK, "Signed in", LoginResponse{Sync: res, Cart: h.reload(ctx)})
}

// Logout handles POST /session/logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.tokens.ClearToken(ctx); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	for _, rs := range h.resets {
		rs.Reset()
	}
	h.reload(ctx)
	httputil.WriteSuccess(w, http.StatusOK, "Signed out", nil)
}

// reload refreshes every cart and returns the first one's state.
func (h *SessionHandler) reload(ctx context.Context) cart.State {
	var first cart.State
	for i, c := range h.carts {
		s := c.LoadCart(ctx)
		if i == 0 {
			first = s
		}
	}
	return first
}
