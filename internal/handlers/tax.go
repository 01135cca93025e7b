package handlers

import (
	"net/http"

	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/diewo77/gst-ledger/internal/services"
	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/diewo77/gst-ledger/internal/validation"
	"github.com/shopspring/decimal"
)

// TaxHandler previews the GST split of an amount without touching any invoice.
type TaxHandler struct {
	dir *services.Directory
}

func NewTaxHandler(dir *services.Directory) *TaxHandler {
	return &TaxHandler{dir: dir}
}

type splitRequest struct {
	GstinProfileID   *uint           `json:"gstin_profile_id"`
	GSTIN            string          `json:"gstin"`
	Treatment        string          `json:"gst_treatment"`
	BillingStateCode string          `json:"billing_state_code"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	ReverseCharge    bool            `json:"reverse_charge"`
}

type splitResponse struct {
	tax.Split
	TotalTax decimal.Decimal `json:"total_tax"`
}

// Split computes the split from the organization's registration (or the
// given GSTIN profile) to the described recipient.
func (h *TaxHandler) Split(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	v := make(validation.Violations)
	validation.NonNegative("taxable_amount", req.TaxableAmount, v)
	validation.Percent("tax_rate", req.TaxRate, v)
	validation.GSTIN("gstin", req.GSTIN, v)
	if req.BillingStateCode != "" {
		validation.StateCode("billing_state_code", req.BillingStateCode, v)
	}
	treatment, err := tax.ParseTreatment(req.Treatment)
	if err != nil {
		v["gst_treatment"] = "unknown_treatment"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	org, err := h.dir.Organization(r.Context(), organization(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	origin := org.StateCode
	profile, err := h.dir.Profile(r.Context(), org.ID, req.GstinProfileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profile != nil {
		origin = profile.StateCode
	}

	dest := tax.Destination{GSTIN: req.GSTIN, Treatment: treatment, BillingStateCode: req.BillingStateCode}
	split, err := tax.ComputeSplit(origin, dest, req.TaxableAmount, req.TaxRate, req.ReverseCharge)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, splitResponse{Split: split, TotalTax: split.TotalTax()})
}
