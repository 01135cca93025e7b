package tax

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeSplit_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		dest     Destination
		taxable  string
		rate     string
		reverse  bool
		wantType TransactionType
		cgst     string
		sgst     string
		igst     string
		inter    bool
		zero     bool
	}{
		{"same state", "27", Destination{BillingStateCode: "27"}, "10000.00", "18", false, Intrastate, "900", "900", "0", false, false},
		{"other state", "27", Destination{BillingStateCode: "29"}, "10000.00", "18", false, Interstate, "0", "0", "1800", true, false},
		{"gstin wins over billing state", "27", Destination{GSTIN: "29AAAAA0000A1Z5", BillingStateCode: "27"}, "10000", "18", false, Interstate, "0", "0", "1800", true, false},
		{"registered intra", "27", Destination{GSTIN: "27BBBBB1111B1Z5", Treatment: TreatmentRegular}, "500", "12", false, B2BIntrastate, "30", "30", "0", false, false},
		{"registered inter", "27", Destination{GSTIN: "07BBBBB1111B1Z5", Treatment: TreatmentComposition}, "500", "12", false, B2BInterstate, "0", "0", "60", true, false},
		{"b2c intra", "27", Destination{Treatment: TreatmentUnregistered, BillingStateCode: "27"}, "100", "5", false, B2C, "2.5", "2.5", "0", false, false},
		{"b2c large inter", "27", Destination{Treatment: TreatmentB2CL, BillingStateCode: "33"}, "300000", "28", false, B2C, "0", "0", "84000", true, false},
		{"export is zero rated", "27", Destination{Treatment: TreatmentExport}, "10000", "18", false, Interstate, "0", "0", "0", true, true},
		{"sez ignores same state", "27", Destination{Treatment: TreatmentSEZ, GSTIN: "27CCCCC2222C1Z5"}, "10000", "18", false, Interstate, "0", "0", "0", true, true},
		{"import is igst even same state", "27", Destination{Treatment: TreatmentImport, BillingStateCode: "27"}, "1000", "18", false, Interstate, "0", "0", "180", true, false},
		{"no destination falls back to origin", "7", Destination{}, "200", "18", false, Intrastate, "18", "18", "0", false, false},
		{"zero rate", "27", Destination{BillingStateCode: "27"}, "200", "0", false, Intrastate, "0", "0", "0", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ComputeSplit(tt.origin, tt.dest, d(tt.taxable), d(tt.rate), tt.reverse)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, s.TransactionType)
			assert.True(t, s.CGST.Equal(d(tt.cgst)), "cgst = %s, want %s", s.CGST, tt.cgst)
			assert.True(t, s.SGST.Equal(d(tt.sgst)), "sgst = %s, want %s", s.SGST, tt.sgst)
			assert.True(t, s.IGST.Equal(d(tt.igst)), "igst = %s, want %s", s.IGST, tt.igst)
			assert.Equal(t, tt.inter, s.IsInterstate)
			assert.Equal(t, tt.zero, s.ZeroRated)
		})
	}
}

func TestComputeSplit_ReverseChargeKeepsAmounts(t *testing.T) {
	s, err := ComputeSplit("27", Destination{BillingStateCode: "27"}, d("1000"), d("18"), true)
	require.NoError(t, err)
	assert.True(t, s.ReverseCharge)
	assert.True(t, s.CGST.Equal(d("90")))
	assert.True(t, s.SGST.Equal(d("90")))

	s, err = ComputeSplit("27", Destination{GSTIN: "29AAAAA0000A1Z5", Treatment: TreatmentReverseCharge}, d("1000"), d("18"), false)
	require.NoError(t, err)
	assert.True(t, s.ReverseCharge)
	assert.Equal(t, B2BInterstate, s.TransactionType)
	assert.True(t, s.IGST.Equal(d("180")))
}

func TestComputeSplit_RoundingRemainderGoesToCGST(t *testing.T) {
	// 1.10 * 3% = 0.033 -> full 0.03, half 0.0165 -> 0.02, cgst takes 0.01
	s, err := ComputeSplit("27", Destination{BillingStateCode: "27"}, d("1.10"), d("3"), false)
	require.NoError(t, err)
	assert.Equal(t, "0.01", s.CGST.StringFixed(2))
	assert.Equal(t, "0.02", s.SGST.StringFixed(2))
	assert.True(t, s.CGST.Add(s.SGST).Equal(d("0.03")))
}

func TestComputeSplit_IntraHalvesSumToFullRate(t *testing.T) {
	rates := []string{"0.1", "0.25", "3", "5", "12", "18", "28"}
	minor := d("0.01")
	for cents := int64(1); cents < 5000; cents += 37 {
		taxable := decimal.New(cents, -2)
		for _, r := range rates {
			s, err := ComputeSplit("29", Destination{BillingStateCode: "29"}, taxable, d(r), false)
			require.NoError(t, err)
			full := taxable.Mul(d(r)).Div(d("100")).Round(2)
			require.True(t, s.CGST.Add(s.SGST).Equal(full), "taxable %s rate %s", taxable, r)
			require.True(t, s.CGST.Sub(s.SGST).Abs().LessThanOrEqual(minor), "taxable %s rate %s", taxable, r)
			require.True(t, s.IGST.IsZero())
		}
	}
}

func TestComputeSplit_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		dest   Destination
		rate   string
	}{
		{"negative rate", "27", Destination{BillingStateCode: "27"}, "-1"},
		{"unknown treatment", "27", Destination{Treatment: Treatment("BARTER")}, "18"},
		{"bad origin", "AA", Destination{}, "18"},
		{"unknown state", "27", Destination{BillingStateCode: "28"}, "18"},
		{"malformed gstin", "27", Destination{GSTIN: "27-NOT-A-GSTIN"}, "18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSplit(tt.origin, tt.dest, d("100"), d(tt.rate), false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTaxInput))
		})
	}
}

func TestComputeSplit_Deterministic(t *testing.T) {
	dest := Destination{GSTIN: "29AAAAA0000A1Z5", Treatment: TreatmentRegular}
	first, err := ComputeSplit("27", dest, d("12345.67"), d("18"), false)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeSplit("27", dest, d("12345.67"), d("18"), false)
		require.NoError(t, err)
		assert.True(t, first.IGST.Equal(again.IGST))
		assert.Equal(t, first.Classification, again.Classification)
	}
}

func TestParseTreatment(t *testing.T) {
	tr, err := ParseTreatment(" sez ")
	require.NoError(t, err)
	assert.Equal(t, TreatmentSEZ, tr)

	_, err = ParseTreatment("wholesale")
	assert.ErrorIs(t, err, ErrInvalidTaxInput)
}

func TestComputeLine(t *testing.T) {
	c, err := Classify("27", Destination{BillingStateCode: "27"}, false)
	require.NoError(t, err)

	l, err := c.ComputeLine(LineInput{Description: "Consulting", HSNCode: "998311", Quantity: d("2"), Rate: d("5250"), Discount: d("500"), TaxRate: d("18")})
	require.NoError(t, err)
	assert.Equal(t, "10500.00", l.BaseAmount.StringFixed(2))
	assert.Equal(t, "10000.00", l.TaxableAmount.StringFixed(2))
	assert.Equal(t, "900.00", l.CGST.StringFixed(2))
	assert.Equal(t, "900.00", l.SGST.StringFixed(2))
	assert.Equal(t, "11800.00", l.TotalAmount.StringFixed(2))

	_, err = c.ComputeLine(LineInput{Quantity: d("1"), Rate: d("10"), Discount: d("11"), TaxRate: d("18")})
	assert.ErrorIs(t, err, ErrInvalidTaxInput)

	_, err = c.ComputeLine(LineInput{Quantity: d("0"), Rate: d("10"), TaxRate: d("18")})
	assert.ErrorIs(t, err, ErrInvalidTaxInput)
}

func TestHalves(t *testing.T) {
	tests := []struct {
		full, cgst, sgst string
	}{
		{"0.15", "0.07", "0.08"},
		{"1800", "900", "900"},
		{"0.01", "0", "0.01"},
		{"0", "0", "0"},
		{"10.05", "5.02", "5.03"},
	}
	for _, tt := range tests {
		cgst, sgst := Halves(d(tt.full))
		assert.Truef(t, cgst.Equal(d(tt.cgst)), "Halves(%s) cgst = %s", tt.full, cgst)
		assert.Truef(t, sgst.Equal(d(tt.sgst)), "Halves(%s) sgst = %s", tt.full, sgst)
	}
}
