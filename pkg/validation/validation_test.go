package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/supplyledger-backend/pkg/errors"
)

type sampleInput struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Counted  int    `json:"counted" validate:"gte=0"`
	Kind     string `json:"kind" validate:"oneof=shop warehouse"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(sampleInput{Counted: -1, Kind: "moon"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["name"])
	require.Equal(t, "must be greater than 0", details["quantity"])
	require.Equal(t, "must be at least 0", details["counted"])
	require.Equal(t, "must be one of shop warehouse", details["kind"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sampleInput{Name: "x", Quantity: 1, Kind: "shop"}))
}
