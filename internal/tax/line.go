package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineInput is the caller-editable part of an invoice line.
type LineInput struct {
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// Line is a computed invoice line. Its amounts are outputs, never inputs.
type Line struct {
	LineInput
	BaseAmount    decimal.Decimal `json:"base_amount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// ComputeLine prices one line under classification c. Discount is an absolute
// amount and may not exceed quantity * rate.
func (c Classification) ComputeLine(in LineInput) (Line, error) {
	if in.Quantity.IsNegative() || in.Quantity.IsZero() {
		return Line{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidTaxInput)
	}
	if in.Rate.IsNegative() {
		return Line{}, fmt.Errorf("%w: negative unit rate %s", ErrInvalidTaxInput, in.Rate)
	}
	if in.Discount.IsNegative() {
		return Line{}, fmt.Errorf("%w: negative discount %s", ErrInvalidTaxInput, in.Discount)
	}
	base := in.Quantity.Mul(in.Rate).Round(2)
	discount := in.Discount.Round(2)
	if discount.GreaterThan(base) {
		return Line{}, fmt.Errorf("%w: discount %s exceeds line amount %s", ErrInvalidTaxInput, discount, base)
	}
	in.Discount = discount
	s, err := c.Apply(base.Sub(discount), in.TaxRate)
	if err != nil {
		return Line{}, err
	}
	return Line{
		LineInput:     in,
		BaseAmount:    base,
		TaxableAmount: s.TaxableAmount,
		CGST:          s.CGST,
		SGST:          s.SGST,
		IGST:          s.IGST,
		TaxAmount:     s.TotalTax(),
		TotalAmount:   s.TaxableAmount.Add(s.TotalTax()),
	}, nil
}
