package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/services"
)

type errorKind struct {
	target error
	status int
	code   string
}

// Order matters: the first matching kind wins.
var errorKinds = []errorKind{
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{gate.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{gate.ErrForbidden, http.StatusForbidden, "forbidden"},
	{services.ErrSignatureMismatch, http.StatusUnprocessableEntity, "signature_mismatch"},
	{services.ErrOverpayment, http.StatusConflict, "overpayment"},
	{services.ErrInvoiceNotPayable, http.StatusConflict, "invoice_not_payable"},
	{services.ErrImmutableEntry, http.StatusConflict, "immutable_entry"},
	{services.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{services.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{services.ErrDuplicateInvoiceNumber, http.StatusConflict, "duplicate_invoice_number"},
	{services.ErrSequenceExhausted, http.StatusConflict, "sequence_exhausted"},
	{services.ErrInvalidTaxInput, http.StatusUnprocessableEntity, "invalid_tax_input"},
	{services.ErrInvalidPayment, http.StatusUnprocessableEntity, "invalid_payment"},
	{services.ErrInvalidInvoice, http.StatusUnprocessableEntity, "invalid_invoice"},
}

// writeError maps a ledger error to its status code. Rejections carry the
// invoice snapshot so the caller can reconcile.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			var details any
			if k.status == http.StatusUnprocessableEntity {
				details = err.Error()
			}
			if snap := services.SnapshotOf(err); snap != nil {
				httpx.Rejection(w, k.status, k.code, details, snap)
				return
			}
			httpx.JSONError(w, k.status, k.code, details)
			return
		}
	}
	log := logger.WithComponent("http")
	log.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
}
