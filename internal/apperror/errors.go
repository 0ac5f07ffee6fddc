package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Kind classifies a business-rule failure. Anything outside this taxonomy
// is treated as an internal storage error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidState
	KindForbidden
	KindOverReceipt
	KindNotFound
)

// Error is a business-rule failure carrying its classification.
// The transaction wrapper rolls back on any returned Error before the
// handler maps it to an HTTP response.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// OverReceipt reports an attempt to receive beyond the ordered quantity.
// The message must name all three quantities for diagnosability.
func OverReceipt(product string, ordered, received, attempted decimal.Decimal) *Error {
	return &Error{
		Kind: KindOverReceipt,
		Message: fmt.Sprintf(
			"cannot receive more than ordered for item %s. Ordered: %s, Already received: %s, Attempting to receive: %s",
			product, ordered.String(), received.String(), attempted.String()),
	}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with.
// InvalidState and OverReceipt stay 400: clients treat every rejected
// transition as a bad request naming the violated rule.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState, KindOverReceipt:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
