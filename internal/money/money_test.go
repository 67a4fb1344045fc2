package money_test

import (
	"testing"

	"github.com/medisupply/field-app/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1.234.567", money.Format(decimal.NewFromInt(1234567)))
	assert.Equal(t, "$250.000", money.Format(decimal.RequireFromString("250000.00")))
	assert.Equal(t, "$0", money.Format(decimal.Zero))
	assert.Equal(t, "-$45.000", money.Format(decimal.NewFromInt(-45000)))
}

func TestFormatter_English(t *testing.T) {
	f := money.NewFormatter("en")
	assert.Equal(t, "$1,234,567", f.Amount(decimal.NewFromInt(1234567)))
	assert.Equal(t, "12,500", f.Count(12500))
}

func TestFormatter_UnknownLocaleFallsBack(t *testing.T) {
	f := money.NewFormatter("pt")
	assert.Equal(t, "$98.765.432", f.Amount(decimal.NewFromInt(98765432)))
}
