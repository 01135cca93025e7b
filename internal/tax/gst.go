// Package tax computes GST splits for Indian tax invoices.
//
// Everything in this package is a pure function of its inputs: no clock, no
// storage, no configuration. Historical invoices recompute to the same
// amounts as long as the same snapshot inputs are supplied.
package tax

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTaxInput is returned for negative rates, unknown treatments and
// malformed state codes or GSTINs. Nothing is computed when it is returned.
var ErrInvalidTaxInput = errors.New("invalid tax input")

// Treatment is the GST treatment of the recipient of a supply.
type Treatment string

const (
	TreatmentNone          Treatment = ""
	TreatmentRegular       Treatment = "REGULAR"
	TreatmentComposition   Treatment = "COMPOSITION"
	TreatmentUnregistered  Treatment = "UNREGISTERED"
	TreatmentB2CS          Treatment = "B2CS"
	TreatmentB2CL          Treatment = "B2CL"
	TreatmentSEZ           Treatment = "SEZ"
	TreatmentExport        Treatment = "EXPORT"
	TreatmentImport        Treatment = "IMPORT"
	TreatmentReverseCharge Treatment = "REVERSE_CHARGE"
)

// ParseTreatment normalizes s and rejects unknown values.
func ParseTreatment(s string) (Treatment, error) {
	t := Treatment(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown gst treatment %q", ErrInvalidTaxInput, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known treatments (empty included).
func (t Treatment) Valid() bool {
	switch t {
	case TreatmentNone, TreatmentRegular, TreatmentComposition, TreatmentUnregistered,
		TreatmentB2CS, TreatmentB2CL, TreatmentSEZ, TreatmentExport, TreatmentImport,
		TreatmentReverseCharge:
		return true
	}
	return false
}

func (t Treatment) isB2C() bool {
	return t == TreatmentUnregistered || t == TreatmentB2CS || t == TreatmentB2CL
}

func (t Treatment) isB2B() bool {
	return t == TreatmentRegular || t == TreatmentComposition || t == TreatmentReverseCharge
}

// TransactionType classifies a supply for reporting.
type TransactionType string

const (
	Intrastate    TransactionType = "INTRASTATE"
	Interstate    TransactionType = "INTERSTATE"
	B2BIntrastate TransactionType = "B2B_INTRASTATE"
	B2BInterstate TransactionType = "B2B_INTERSTATE"
	B2C           TransactionType = "B2C"
)

// Interstate reports whether t always implies an inter-state supply. B2C
// supplies can go either way.
func (t TransactionType) Interstate() bool {
	return t == Interstate || t == B2BInterstate
}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// NormalizeGSTIN upper-cases and trims g.
func NormalizeGSTIN(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

// ValidGSTIN reports whether g has the shape of a GSTIN with a known state code.
func ValidGSTIN(g string) bool {
	g = NormalizeGSTIN(g)
	if !gstinPattern.MatchString(g) {
		return false
	}
	_, ok := stateNames[g[:2]]
	return ok
}

// StateCodeFromGSTIN returns the two-digit state code carried by a GSTIN.
func StateCodeFromGSTIN(g string) (string, error) {
	g = NormalizeGSTIN(g)
	if !ValidGSTIN(g) {
		return "", fmt.Errorf("%w: malformed gstin %q", ErrInvalidTaxInput, g)
	}
	return g[:2], nil
}

// NormalizeStateCode accepts "7" or "07" style codes and returns the two-digit form.
func NormalizeStateCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) == 1 {
		code = "0" + code
	}
	if _, ok := stateNames[code]; !ok {
		return "", fmt.Errorf("%w: unknown state code %q", ErrInvalidTaxInput, code)
	}
	return code, nil
}

// StateName returns the registered name of a state code, or "" when unknown.
func StateName(code string) string {
	return stateNames[code]
}

var stateNames = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
	"99": "Centre Jurisdiction",
}
