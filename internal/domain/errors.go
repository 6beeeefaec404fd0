package domain

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ErrorCode classifies a failed order creation for user-facing copy.
type ErrorCode string

// Error codes understood by the backend and by UserMessage.
const (
	CodeTransientServer  ErrorCode = "transient_server_error"
	CodeSessionInvalid   ErrorCode = "session_invalid"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeGeneric          ErrorCode = "generic"
)

// User-facing copy.
const (
	MsgCartRetry       = "We couldn't update your cart. Please try again."
	MsgCartUnavailable = "We couldn't load your cart right now."
	MsgSyncFailed      = "We couldn't merge your cart. Please try again."
	MsgPaymentFailed   = "Your payment could not be confirmed. Please try again or use another payment method."
	MsgShippingFailed  = "We couldn't calculate shipping for this address."
	MsgPaymentSession  = "We couldn't start the payment. Please try again."
)

var userMessages = map[ErrorCode]string{
	CodeTransientServer:  "We had a temporary problem creating your order. Please try again in a moment.",
	CodeSessionInvalid:   "Your session has expired. Please sign in again to complete your purchase.",
	CodeValidationFailed: "Some of your order details are invalid. Please review them and try again.",
	CodeGeneric:          "We couldn't create your order. Please try again.",
}

// UserMessage maps an error code to the copy shown to the customer.
// Unknown codes get the generic message.
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeGeneric]
}

// Phrases older backends put in the message instead of a code.
var (
	transientPhrases = []string{"error generating order number", "deadlock"}
	sessionPhrases   = []string{"user_id", "unauthenticated", "not authenticated", "session expired"}
)

// ClassifyOrderError picks the error code for a failed order creation. An
// explicit backend code wins, then known phrases in the message, then the
// HTTP status.
func ClassifyOrderError(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch code := ErrorCode(strings.ToLower(appErr.Code)); code {
		case CodeTransientServer, CodeSessionInvalid, CodeValidationFailed, CodeGeneric:
			return code
		}
	}

	text := strings.ToLower(err.Error())
	if appErr != nil {
		text = strings.ToLower(appErr.Message) + " " + text
	}
	for _, p := range transientPhrases {
		if strings.Contains(text, p) {
			return CodeTransientServer
		}
	}
	for _, p := range sessionPhrases {
		if strings.Contains(text, p) {
			return CodeSessionInvalid
		}
	}

	if appErr != nil {
		switch status := appErr.Status; {
		case status == http.StatusUnauthorized:
			return CodeSessionInvalid
		case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
			return CodeValidationFailed
		case status >= 500:
			return CodeTransientServer
		}
	}
	if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrPrecondition) {
		return CodeValidationFailed
	}
	return CodeGeneric
}

// IsUnauthenticated reports whether err is the backend telling an anonymous
// client that it has no cart yet.
func IsUnauthenticated(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return true
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status == http.StatusUnauthorized || strings.Contains(strings.ToLower(appErr.Message), "unauthenticated") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unauthenticated")
}
