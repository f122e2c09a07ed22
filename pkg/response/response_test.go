package response

import (
	"errors"
	"testing"

	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   APIResponseCode
		reason string
	}{
		{"validation", apperr.Validation("quantity must be positive"), APIResponseCodeBadRequest, "quantity must be positive"},
		{"not found", apperr.ErrProductNotFound, APIResponseCodeNotFound, "product not found"},
		{"domain", apperr.ErrOverpayment.WithDetail("remaining 500"), APIResponseCodeConflict, "overpayment"},
		{"forbidden", apperr.ErrNotAdministrator, APIResponseCodeForbidden, "not an administrator"},
		{"unauthorized", apperr.ErrInvalidCredentials, APIResponseCodeUnauthorized, "invalid credentials"},
		{"store", apperr.Store("commit", errors.New("conn reset")), APIResponseCodeError, "store unavailable"},
		{"unclassified", errors.New("boom"), APIResponseCodeError, "store unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := FromError(tc.err)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.reason, resp.Data.Reason)
			assert.NotContains(t, resp.Data.Detail, "conn reset")
		})
	}
}

func TestOKT(t *testing.T) {
	resp := OKT([]int{1})
	assert.Equal(t, APIResponseCodeOK, resp.Code)
	assert.Equal(t, "ok", resp.Message)
}
