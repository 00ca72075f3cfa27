// Package validation checks the shape of incoming requests before they
// reach the ledger. Business rules such as balance and recipient checks
// stay in the services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var currencyCodeRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Validator collects one message per failing field.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message reported for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks that value is not its zero value.
func (v *Validator) Required(field string, value interface{}) {
	switch val := value.(type) {
	case nil:
		v.AddError(field, "is required")
	case string:
		v.Check(strings.TrimSpace(val) != "", field, "must not be empty")
	case uint:
		v.Check(val != 0, field, "is required")
	case decimal.Decimal:
		v.Check(!val.IsZero(), field, "is required")
	}
}

// MaxLength counts characters, not bytes.
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(utf8.RuneCountInString(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// MaxScale rejects amounts with more than places decimal places.
func (v *Validator) MaxScale(field string, value decimal.Decimal, places int32) {
	v.Check(value.Equal(value.Truncate(places)), field, fmt.Sprintf("must have at most %d decimal places", places))
}

// CurrencyCode accepts an empty code (the base currency) or three letters.
func (v *Validator) CurrencyCode(field, code string) {
	if code == "" {
		return
	}
	v.Check(currencyCodeRegex.MatchString(strings.TrimSpace(code)), field, "must be a three-letter currency code")
}
