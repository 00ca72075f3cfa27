/*
Package currency converts amounts between the supported currencies and the
ledger's base currency.

Rates are expressed as units of base currency per one unit of a currency, so
with INR as base a USD rate of 83 means 1 USD = 83 INR. Conversions between
two non-base currencies go through the base:

	amount * rate(from) / rate(to)

The rate table is refreshed from a RateSource; when the source fails the
converter keeps working on a static fallback table.
*/
package currency

import (
	"sort"

	"github.com/shopspring/decimal"
)

const DefaultBase = "INR"

// Info describes a supported currency.
type Info struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// DefaultCurrencies is the supported currency table.
var DefaultCurrencies = map[string]Info{
	"INR": {Code: "INR", Symbol: "₹", Name: "Indian Rupee", Decimals: 2},
	"USD": {Code: "USD", Symbol: "$", Name: "US Dollar", Decimals: 2},
	"EUR": {Code: "EUR", Symbol: "€", Name: "Euro", Decimals: 2},
	"GBP": {Code: "GBP", Symbol: "£", Name: "British Pound", Decimals: 2},
	"JPY": {Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Decimals: 0},
}

// DefaultFallbackRates are used until the first successful refresh and
// whenever a refresh fails. Units of INR per one unit of the currency.
func DefaultFallbackRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(83),
		"EUR": decimal.NewFromInt(90),
		"GBP": decimal.NewFromInt(105),
		"JPY": decimal.RequireFromString("0.56"),
	}
}

func copyRates(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedCodes(m map[string]Info) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
