package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no error", nil, http.StatusBadGateway, "CART_WRITE_FAILED"},
		{"precondition", apperrors.Precondition("gift is incomplete"), http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{"circuit open", fmt.Errorf("cart.update: %w", apperrors.ServiceUnavailable("backend unavailable")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{
			"backend conflict",
			fmt.Errorf("cart.update: %w", &apperrors.AppError{Code: "CONFLICT", Message: "Out of stock", Status: http.StatusConflict, Err: apperrors.ErrConflict}),
			http.StatusConflict,
			"CONFLICT",
		},
		{
			"backend server error",
			&apperrors.AppError{Code: "SERVER_ERROR", Message: "db down", Status: http.StatusInternalServerError, Err: apperrors.ErrUpstream},
			http.StatusBadGateway,
			"CART_WRITE_FAILED",
		},
		{"transport", errors.New("dial tcp: connection refused"), http.StatusBadGateway, "CART_WRITE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := failureStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
