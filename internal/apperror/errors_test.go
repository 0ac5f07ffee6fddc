package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindInvalidState, KindOf(InvalidState("wrong status")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("no")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindInternal, KindOf(errors.New("db exploded")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("receive failed: %w", InvalidState("PO status is Completed"))
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	ordered := decimal.NewFromInt(10)
	received := decimal.NewFromInt(8)
	attempted := decimal.NewFromInt(3)

	tests := []struct {
		err  error
		want int
	}{
		{Validation("empty line list"), http.StatusBadRequest},
		{InvalidState("not pending"), http.StatusBadRequest},
		{OverReceipt("Widget", ordered, received, attempted), http.StatusBadRequest},
		{Forbidden("managers only"), http.StatusForbidden},
		{NotFound("no such PO"), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestOverReceiptMessageNamesAllQuantities(t *testing.T) {
	err := OverReceipt("Widget",
		decimal.RequireFromString("10"),
		decimal.RequireFromString("7.5"),
		decimal.RequireFromString("4"))

	assert.Contains(t, err.Error(), "Widget")
	assert.Contains(t, err.Error(), "Ordered: 10")
	assert.Contains(t, err.Error(), "Already received: 7.5")
	assert.Contains(t, err.Error(), "Attempting to receive: 4")
}
