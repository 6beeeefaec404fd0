// Package syncbridge merges an anonymous session cart into the signed-in
// user's cart once, right after login.
package syncbridge

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

var syncTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_sync_total",
		Help: "Total number of post-login cart sync attempts",
	},
	[]string{"result"},
)

// Syncer performs the remote merge. *gateway.CartGateway implements it.
type Syncer interface {
	Sync(ctx context.Context) (*gateway.CartResult, error)
}

// Sessions reads and retires the persisted session id.
// *identity.Provider implements it.
type Sessions interface {
	SessionID(ctx context.Context) (string, error)
	ClearSessionID(ctx context.Context) error
}

// Bridge runs the post-login cart merge.
type Bridge struct {
	syncer    Syncer
	sessions  Sessions
	publisher event.Publisher
	logger    *slog.Logger
}

// New creates a Bridge.
func New(syncer Syncer, sessions Sessions, publisher event.Publisher, logger *slog.Logger) *Bridge {
	return &Bridge{
		syncer:    syncer,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// SyncCartAfterLogin merges the session cart into the user's cart. With no
// persisted session id there is nothing to merge and no request is made. The
// session id is retired only after a successful merge, so a failed one can be
// retried. Call it once per successful login.
func (b *Bridge) SyncCartAfterLogin(ctx context.Context) cart.Result {
	sessionID, err := b.sessions.SessionID(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to read session id for cart sync", slog.String("error", err.Error()))
		syncTotal.WithLabelValues("error").Inc()
		return cart.Result{Success: false, Message: domain.MsgSyncFailed, Err: err}
	}
	if sessionID == "" {
		syncTotal.WithLabelValues("noop").Inc()
		return cart.Result{Success: true}
	}

	res, err := b.syncer.Sync(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "cart sync failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		syncTotal.WithLabelValues("error").Inc()
		return cart.Result{Success: false, Message: apperrors.Message(err, domain.MsgSyncFailed), Err: err}
	}

	if err := b.sessions.ClearSessionID(ctx); err != nil {
		b.logger.WarnContext(ctx, "failed to clear session id after sync", slog.String("error", err.Error()))
	}
	syncTotal.WithLabelValues("success").Inc()

	b.logger.InfoContext(ctx, "session cart merged", slog.String("session_id", sessionID))
	if err := b.publisher.PublishCartSynced(ctx, event.CartSyncedData{
		SessionID: sessionID,
		UserID:    logger.UserIDFromContext(ctx),
		Message:   res.Message,
	}); err != nil {
		b.logger.WarnContext(ctx, "failed to publish cart synced event", slog.String("error", err.Error()))
	}

	return cart.Result{Success: true, Message: res.Message}
}
