package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// Destination describes the recipient side of a supply. When GSTIN is set its
// first two characters are the destination state; otherwise BillingStateCode
// is used.
type Destination struct {
	GSTIN            string
	Treatment        Treatment
	BillingStateCode string
}

// Classification is the document-level outcome of the rule precedence,
// independent of amounts.
type Classification struct {
	TransactionType      TransactionType `json:"transaction_type"`
	OriginStateCode      string          `json:"origin_state_code"`
	DestinationStateCode string          `json:"destination_state_code"`
	IsInterstate         bool            `json:"is_interstate"`
	ZeroRated            bool            `json:"zero_rated"`
	ReverseCharge        bool            `json:"reverse_charge"`
}

// Split holds the tax amounts for one taxable amount.
type Split struct {
	Classification
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
}

// TotalTax is CGST + SGST + IGST.
func (s Split) TotalTax() decimal.Decimal {
	return s.CGST.Add(s.SGST).Add(s.IGST)
}

// Classify applies the rule precedence (first match wins):
//
//  1. EXPORT or SEZ: zero-rated inter-state supply.
//  2. IMPORT: IGST at the full rate, inter-state.
//  3. reverse charge: marker only, split continues with 4-5.
//  4. same origin and destination state: CGST + SGST.
//  5. otherwise: IGST.
//
// A destination with neither GSTIN nor billing state is a supply at the
// supplier's location and is treated as intra-state.
func Classify(originStateCode string, dest Destination, reverseCharge bool) (Classification, error) {
	origin, err := NormalizeStateCode(originStateCode)
	if err != nil {
		return Classification{}, fmt.Errorf("origin: %w", err)
	}
	if !dest.Treatment.Valid() {
		return Classification{}, fmt.Errorf("%w: unknown gst treatment %q", ErrInvalidTaxInput, dest.Treatment)
	}

	c := Classification{OriginStateCode: origin}

	switch dest.Treatment {
	case TreatmentExport, TreatmentSEZ:
		c.TransactionType = Interstate
		c.IsInterstate = true
		c.ZeroRated = true
		c.DestinationStateCode, _ = destinationState(dest)
		return c, nil
	case TreatmentImport:
		c.TransactionType = Interstate
		c.IsInterstate = true
		c.DestinationStateCode, _ = destinationState(dest)
		return c, nil
	}

	c.ReverseCharge = reverseCharge || dest.Treatment == TreatmentReverseCharge

	destState, err := destinationState(dest)
	if err != nil {
		return Classification{}, err
	}
	if destState == "" {
		destState = origin
	}
	c.DestinationStateCode = destState
	c.IsInterstate = destState != origin

	switch {
	case dest.Treatment.isB2C():
		c.TransactionType = B2C
	case dest.Treatment.isB2B() && c.IsInterstate:
		c.TransactionType = B2BInterstate
	case dest.Treatment.isB2B():
		c.TransactionType = B2BIntrastate
	case c.IsInterstate:
		c.TransactionType = Interstate
	default:
		c.TransactionType = Intrastate
	}
	return c, nil
}

func destinationState(dest Destination) (string, error) {
	if g := strings.TrimSpace(dest.GSTIN); g != "" {
		return StateCodeFromGSTIN(g)
	}
	if s := strings.TrimSpace(dest.BillingStateCode); s != "" {
		return NormalizeStateCode(s)
	}
	return "", nil
}

// Apply computes the tax amounts for taxable under classification c.
// Intra-state halves are rounded to two decimals and any remainder goes to
// CGST so that CGST + SGST equals the full-rate tax exactly.
func (c Classification) Apply(taxable, rate decimal.Decimal) (Split, error) {
	if rate.IsNegative() {
		return Split{}, fmt.Errorf("%w: negative tax rate %s", ErrInvalidTaxInput, rate)
	}
	if taxable.IsNegative() {
		return Split{}, fmt.Errorf("%w: negative taxable amount %s", ErrInvalidTaxInput, taxable)
	}
	s := Split{
		Classification: c,
		TaxableAmount:  taxable.Round(2),
		TaxRate:        rate,
		CGST:           decimal.Zero,
		SGST:           decimal.Zero,
		IGST:           decimal.Zero,
	}
	if c.ZeroRated {
		return s, nil
	}
	full := s.TaxableAmount.Mul(rate).Div(hundred).Round(2)
	if c.IsInterstate {
		s.IGST = full
		return s, nil
	}
	half := s.TaxableAmount.Mul(rate).Div(twoHundred).Round(2)
	s.SGST = half
	s.CGST = full.Sub(half)
	return s, nil
}

// Halves splits an intra-state tax total into CGST and SGST. SGST is the
// rounded half and CGST takes the remainder, so the halves add up to full
// and differ by at most one paisa. Invoice totals are split with Halves
// rather than by summing per-line halves, whose remainders accumulate.
func Halves(full decimal.Decimal) (cgst, sgst decimal.Decimal) {
	full = full.Round(2)
	sgst = full.Div(decimal.NewFromInt(2)).Round(2)
	return full.Sub(sgst), sgst
}

// ComputeSplit classifies the supply and computes the amounts in one step.
func ComputeSplit(originStateCode string, dest Destination, taxable, rate decimal.Decimal, reverseCharge bool) (Split, error) {
	if rate.IsNegative() {
		return Split{}, fmt.Errorf("%w: negative tax rate %s", ErrInvalidTaxInput, rate)
	}
	c, err := Classify(originStateCode, dest, reverseCharge)
	if err != nil {
		return Split{}, err
	}
	return c.Apply(taxable, rate)
}
