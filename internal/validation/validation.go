// Package validation collects field violations of request payloads.
package validation

import (
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v[field] = "required"
	}
}

func Positive(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v[field] = "must_be_positive"
	}
}

func NonNegative(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

func Range(field string, val, minVal, maxVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) || val.GreaterThan(maxVal) {
		v[field] = "out_of_range"
	}
}

// MaxScale rejects values with more decimal places than places.
func MaxScale(field string, val decimal.Decimal, places int32, v Violations) {
	if !val.Equal(val.Round(places)) {
		v[field] = "too_many_decimals"
	}
}

func NotBefore(field string, val, ref time.Time, v Violations) {
	if !val.IsZero() && !ref.IsZero() && val.Before(ref) {
		v[field] = "before_" + refName(field)
	}
}

func GSTIN(field, value string, v Violations) {
	if value != "" && !tax.ValidGSTIN(value) {
		v[field] = "invalid_gstin"
	}
}

func StateCode(field, value string, v Violations) {
	if _, err := tax.NormalizeStateCode(value); err != nil {
		v[field] = "invalid_state_code"
	}
}

var percentMax = decimal.NewFromInt(100)

// Lines validates invoice lines under items[i].field keys.
func Lines(field string, lines []tax.LineInput, v Violations) {
	if len(lines) == 0 {
		v[field] = "required"
		return
	}
	for i, l := range lines {
		prefix := field + "[" + strconv.Itoa(i) + "]."
		Required(prefix+"description", l.Description, v)
		Positive(prefix+"quantity", l.Quantity, v)
		NonNegative(prefix+"rate", l.Rate, v)
		NonNegative(prefix+"discount", l.Discount, v)
		Range(prefix+"tax_rate", l.TaxRate, decimal.Zero, percentMax, v)
	}
}

// Percent checks a 0-100 rate.
func Percent(field string, val decimal.Decimal, v Violations) {
	Range(field, val, decimal.Zero, percentMax, v)
}

func refName(field string) string {
	if strings.HasPrefix(field, "due") {
		return "invoice_date"
	}
	return "reference"
}
