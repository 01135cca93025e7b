package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/services"
	"github.com/diewo77/gst-ledger/internal/validation"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *services.PaymentRecorder
	loc      *time.Location
}

func NewPaymentHandler(payments *services.PaymentRecorder, loc *time.Location) *PaymentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentHandler{payments: payments, loc: loc}
}

type paymentRequest struct {
	Amount      decimal.Decimal    `json:"amount"`
	PaymentDate string             `json:"payment_date"`
	Mode        models.PaymentMode `json:"mode"`
	Reference   string             `json:"reference"`
	Notes       string             `json:"notes"`
}

type gatewayPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Signature   string          `json:"signature"`
	Notes       string          `json:"notes"`
}

type paymentEditRequest struct {
	Amount      *decimal.Decimal    `json:"amount"`
	PaymentDate *string             `json:"payment_date"`
	Mode        *models.PaymentMode `json:"mode"`
	Reference   *string             `json:"reference"`
	Notes       *string             `json:"notes"`
}

func checkAmount(field string, amount decimal.Decimal, v validation.Violations) {
	validation.Positive(field, amount, v)
	validation.MaxScale(field, amount, 2, v)
}

// List returns the live entries of an invoice, or every entry with
// ?include_reversed=true.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("include_reversed"))
	entries, err := h.payments.Entries(r.Context(), organization(r), id, all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	v := make(validation.Violations)
	checkAmount("amount", req.Amount, v)
	validation.Required("mode", string(req.Mode), v)
	date, err := parseDate(req.PaymentDate, h.loc)
	if err != nil {
		v["payment_date"] = "invalid_date"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	res, err := h.payments.Record(r.Context(), organization(r), id, services.PaymentInput{
		Amount:      req.Amount,
		PaymentDate: date,
		Mode:        req.Mode,
		Reference:   req.Reference,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

// RecordGateway applies a gateway-settled payment. Replays of an already
// recorded gateway payment answer 200 with the original entry.
func (h *PaymentHandler) RecordGateway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req gatewayPaymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	v := make(validation.Violations)
	checkAmount("amount", req.Amount, v)
	validation.Required("order_id", req.OrderID, v)
	validation.Required("payment_id", req.PaymentID, v)
	validation.Required("signature", req.Signature, v)
	date, err := parseDate(req.PaymentDate, h.loc)
	if err != nil {
		v["payment_date"] = "invalid_date"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	res, err := h.payments.RecordGatewayPayment(r.Context(), organization(r), id, services.GatewayPaymentInput{
		Amount:      req.Amount,
		PaymentDate: date,
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		Signature:   req.Signature,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httpx.JSON(w, status, res)
}

func (h *PaymentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req paymentEditRequest
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	edit := services.PaymentEdit{Mode: req.Mode, Reference: req.Reference, Notes: req.Notes}
	v := make(validation.Violations)
	if req.Amount != nil {
		checkAmount("amount", *req.Amount, v)
		edit.Amount = req.Amount
	}
	if req.PaymentDate != nil {
		date, err := parseDate(*req.PaymentDate, h.loc)
		if err != nil || date.IsZero() {
			v["payment_date"] = "invalid_date"
		}
		edit.PaymentDate = &date
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	res, err := h.payments.Edit(r.Context(), organization(r), id, edit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Reverse soft-deletes an entry. The entry stays readable for audit.
func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	res, err := h.payments.Reverse(r.Context(), organization(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
