package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	cur, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, USD, cur)

	_, err = ParseCurrency("XYZ")
	require.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = ParseCurrency("")
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestParseRespectsCurrencyPrecision(t *testing.T) {
	m, err := Parse("1000.00", USD)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), m.Amount)

	btc, err := Parse("0.00000001", BTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1), btc.Amount)

	_, err = Parse("1.005", USD)
	require.ErrorIs(t, err, ErrInvalidAmount)

	trailing, err := Parse("2.500", BRL)
	require.NoError(t, err)
	assert.Equal(t, int64(250), trailing.Amount)
}

func TestAddRejectsMixedCurrencies(t *testing.T) {
	_, err := New(100, USD).Add(New(100, BRL))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := New(100, USD).Add(New(250, USD))
	require.NoError(t, err)
	assert.Equal(t, New(350, USD), sum)

	diff, err := New(100, USD).Sub(New(250, USD))
	require.NoError(t, err)
	assert.Equal(t, int64(-150), diff.Amount)
}

func TestParseRejectsOutOfRangeAmounts(t *testing.T) {
	for _, text := range []string{"184467440737095516.17", "92233720368547758.08", "-92233720368547758.09"} {
		_, err := Parse(text, USD)
		require.ErrorIs(t, err, ErrInvalidAmount, text)
	}

	m, err := Parse("92233720368547758.07", USD)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), m.Amount)

	_, err = FromDecimal(decimal.RequireFromString("1e30"), USD)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAddAndSubDetectOverflow(t *testing.T) {
	_, err := New(math.MaxInt64, USD).Add(New(1, USD))
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = New(math.MinInt64, USD).Add(New(-1, USD))
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = New(math.MinInt64, USD).Sub(New(1, USD))
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = New(0, USD).Sub(New(math.MinInt64, USD))
	require.ErrorIs(t, err, ErrAmountOverflow)

	diff, err := New(math.MaxInt64, USD).Sub(New(math.MaxInt64, USD))
	require.NoError(t, err)
	assert.True(t, diff.IsZero())
}

func TestMulPercentBankersRounding(t *testing.T) {
	cases := []struct {
		name  string
		minor int64
		rate  string
		want  int64
	}{
		{name: "example 1000 at 2%", minor: 100000, rate: "2", want: 2000},
		{name: "half rounds to even down", minor: 625, rate: "2", want: 12},
		{name: "half rounds to even up", minor: 675, rate: "2", want: 14},
		{name: "fractional rate", minor: 33333, rate: "1.5", want: 500},
		{name: "zero rate", minor: 100000, rate: "0", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := New(tc.minor, USD).MulPercent(decimal.RequireFromString(tc.rate))
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, USD, got.Currency)
		})
	}
}

func TestFromDecimalUsesBankersRounding(t *testing.T) {
	m, err := FromDecimal(decimal.RequireFromString("0.125"), USD)
	require.NoError(t, err)
	assert.Equal(t, int64(12), m.Amount)

	m, err = FromDecimal(decimal.RequireFromString("0.135"), USD)
	require.NoError(t, err)
	assert.Equal(t, int64(14), m.Amount)

	_, err = FromDecimal(decimal.NewFromInt(1), Currency("XXX"))
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestMoneyJSON(t *testing.T) {
	body, err := json.Marshal(New(2000, USD))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"20.00","currency":"USD","minor":2000}`, string(body))

	var parsed Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":50,"currency":"brl"}`), &parsed))
	assert.Equal(t, New(5000, BRL), parsed)

	require.Error(t, json.Unmarshal([]byte(`{"amount":"1","currency":"ZZZ"}`), &parsed))
}

func TestBreakdownKeepsCurrenciesSeparate(t *testing.T) {
	b := NewBreakdown()
	b.Add(New(100, USD))
	b.Add(New(500, BRL))
	b.Add(New(-40, USD))

	assert.Equal(t, int64(60), b.Get(USD).Amount)
	assert.Equal(t, int64(500), b.Get(BRL).Amount)
	assert.Equal(t, []Currency{BRL, USD}, b.Currencies())

	body, err := json.Marshal(b)
	require.NoError(t, err)
	var restored Breakdown
	require.NoError(t, json.Unmarshal(body, &restored))
	assert.Equal(t, b, restored)
}

func TestCurrencySetEmptyMeansAnyKnown(t *testing.T) {
	empty, err := NewCurrencySet(nil)
	require.NoError(t, err)
	assert.True(t, empty.Contains(EUR))
	assert.False(t, empty.Contains(Currency("XYZ")))

	limited, err := NewCurrencySet([]string{"brl", "USD", " "})
	require.NoError(t, err)
	assert.True(t, limited.Contains(BRL))
	assert.False(t, limited.Contains(EUR))

	_, err = NewCurrencySet([]string{"nope"})
	require.ErrorIs(t, err, ErrInvalidCurrency)
}
