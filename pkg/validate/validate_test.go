package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/gymdesk/pkg/apperr"
)

type saleInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gt=0"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(saleInput{ProductID: "p1", Quantity: 1}))

	err := Struct(saleInput{Quantity: 0, Email: "nope"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	msg := err.Error()
	require.Contains(t, msg, "product_id is required")
	require.Contains(t, msg, "quantity must be greater than 0")
	require.Contains(t, msg, "email must be a valid email")
}
