package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// Header names sent to the storefront backend.
const (
	HeaderSessionID     = "X-Session-ID"
	HeaderAuthorization = "Authorization"
)

// SessionPrefix starts every generated session id.
const SessionPrefix = "sess_"

// Provider issues the anonymous session id and exposes the auth token. Both
// live in the store and are read on every call, so a login or logout that
// writes the store takes effect on the very next request.
type Provider struct {
	store  repository.KeyValueStore
	logger *slog.Logger
	newID  func() (string, error)
}

// NewProvider creates a Provider backed by store.
func NewProvider(store repository.KeyValueStore, logger *slog.Logger) *Provider {
	return &Provider{
		store:  store,
		logger: logger,
		newID:  newSessionID,
	}
}

// newSessionID returns "sess_" followed by a UUIDv7, which combines a
// millisecond timestamp with random bits.
func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return SessionPrefix + id.String(), nil
}

// GetOrCreateSessionID returns the persisted session id, creating and
// persisting a new one first when none exists.
func (p *Provider) GetOrCreateSessionID(ctx context.Context) (string, error) {
	id, err := p.SessionID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id, err = p.newID()
	if err != nil {
		return "", err
	}
	if err := p.store.Set(ctx, repository.KeySessionID, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	p.logger.DebugContext(ctx, "session id created", slog.String("session_id", id))
	return id, nil
}

// SessionID returns the persisted session id, or "" when there is none.
func (p *Provider) SessionID(ctx context.Context) (string, error) {
	id, ok, err := p.store.Get(ctx, repository.KeySessionID)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if !ok {
		return "", nil
	}
	return id, nil
}

// ClearSessionID removes the persisted session id. It is idempotent.
func (p *Provider) ClearSessionID(ctx context.Context) error {
	if err := p.store.Delete(ctx, repository.KeySessionID); err != nil {
		return fmt.Errorf("clear session id: %w", err)
	}
	return nil
}

// Token returns the auth token, preferring "token" over "auth_token".
func (p *Provider) Token(ctx context.Context) (string, error) {
	for _, key := range []string{repository.KeyToken, repository.KeyAuthToken} {
		v, ok, err := p.store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", key, err)
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}

// SetToken stores the auth token issued by the login flow.
func (p *Provider) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.InvalidInput("token is required")
	}
	if err := p.store.Set(ctx, repository.KeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// ClearToken removes both token keys.
func (p *Provider) ClearToken(ctx context.Context) error {
	for _, key := range []string{repository.KeyToken, repository.KeyAuthToken} {
		if err := p.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// AuthHeaders returns the JSON headers plus a bearer Authorization header
// when a token is stored.
func (p *Provider) AuthHeaders(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		h.Set(HeaderAuthorization, "Bearer "+token)
	}
	return h, nil
}

// SessionHeaders returns AuthHeaders plus X-Session-ID when a session id is
// stored.
func (p *Provider) SessionHeaders(ctx context.Context) (http.Header, error) {
	h, err := p.AuthHeaders(ctx)
	if err != nil {
		return nil, err
	}
	id, err := p.SessionID(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		h.Set(HeaderSessionID, id)
	}
	return h, nil
}

// CartHeaders returns the headers for a cart request. An anonymous client
// gets a session id created on its first cart interaction.
func (p *Provider) CartHeaders(ctx context.Context) (http.Header, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		if _, err := p.GetOrCreateSessionID(ctx); err != nil {
			return nil, err
		}
	}
	return p.SessionHeaders(ctx)
}

// SyncHeaders returns the headers for the cart merge, which carries both
// identities at once. Missing either one is a local precondition failure.
func (p *Provider) SyncHeaders(ctx context.Context) (http.Header, error) {
	h, err := p.SessionHeaders(ctx)
	if err != nil {
		return nil, err
	}
	if h.Get(HeaderAuthorization) == "" {
		return nil, apperrors.Precondition("cart sync requires a signed-in user")
	}
	if h.Get(HeaderSessionID) == "" {
		return nil, apperrors.Precondition("cart sync requires a session id")
	}
	return h, nil
}

// UserID returns the user id claimed by the stored token, or "". The token
// is not verified; the value is only used to attribute logs and events.
func (p *Provider) UserID(ctx context.Context) string {
	token, err := p.Token(ctx)
	if err != nil || token == "" {
		return ""
	}
	return userIDFromToken(token)
}

func userIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Enrich copies the current user and session ids into ctx for logging.
// It never creates a session id.
func (p *Provider) Enrich(ctx context.Context) context.Context {
	if id := p.UserID(ctx); id != "" {
		ctx = logger.WithUserID(ctx, id)
	}
	if id, err := p.SessionID(ctx); err == nil && id != "" {
		ctx = logger.WithSessionID(ctx, id)
	}
	return ctx
}
