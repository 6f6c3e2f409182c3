package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paypadi/wallet-backend/pkg/enums"
)

func TestToMinorUnits(t *testing.T) {
	amount := decimal.RequireFromString("150.00")
	minor, err := ToMinorUnits(amount, enums.CurrencyNGN)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), minor)

	minor, err = ToMinorUnits(decimal.RequireFromString("0.01"), enums.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, int64(1), minor)
}

func TestToMinorUnitsRejectsSubMinorPrecision(t *testing.T) {
	_, err := ToMinorUnits(decimal.RequireFromString("10.005"), enums.CurrencyNGN)
	require.Error(t, err)
}

func TestToMinorUnitsRejectsUnknownCurrency(t *testing.T) {
	_, err := ToMinorUnits(decimal.RequireFromString("10"), enums.Currency("XYZ"))
	require.Error(t, err)
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, "60.00", FromMinorUnits(6000, enums.CurrencyNGN).StringFixed(2))
	assert.Equal(t, "0.01", FromMinorUnits(1, enums.CurrencyUSD).StringFixed(2))
	assert.Equal(t, "-4.50", FromMinorUnits(-450, enums.CurrencyGHS).StringFixed(2))
}

func TestParseAmount(t *testing.T) {
	minor, err := ParseAmount("60.00", enums.CurrencyNGN)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), minor)

	_, err = ParseAmount("0", enums.CurrencyNGN)
	require.Error(t, err)

	_, err = ParseAmount("-5", enums.CurrencyNGN)
	require.Error(t, err)

	_, err = ParseAmount("abc", enums.CurrencyNGN)
	require.Error(t, err)
}
