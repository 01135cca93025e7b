package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/policy"
	"github.com/diewo77/gst-ledger/internal/services"
	"github.com/diewo77/gst-ledger/internal/validation"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	outbox   *services.Outbox
	gate     *policy.AuthGate
	loc      *time.Location
}

func NewInvoiceHandler(invoices *services.InvoiceService, outbox *services.Outbox, ag *policy.AuthGate, loc *time.Location) *InvoiceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceHandler{invoices: invoices, outbox: outbox, gate: ag, loc: loc}
}

type draftRequest struct {
	ClientID       uint               `json:"client_id"`
	GstinProfileID *uint              `json:"gstin_profile_id"`
	InvoiceType    models.InvoiceType `json:"invoice_type"`
	InvoiceDate    string             `json:"invoice_date"`
	DueDate        string             `json:"due_date"`
	Notes          string             `json:"notes"`
	services.Pricing
}

type finalizeRequest struct {
	InvoiceNumber string `json:"invoice_number"`
}

// invoiceResponse is the ledger snapshot plus the priced lines.
type invoiceResponse struct {
	*services.Snapshot
	Items []models.InvoiceItem `json:"items"`
}

var listableStatuses = map[models.InvoiceStatus]bool{
	models.InvoiceStatusDraft:         true,
	models.InvoiceStatusPending:       true,
	models.InvoiceStatusPartiallyPaid: true,
	models.InvoiceStatusPaid:          true,
	models.InvoiceStatusOverdue:       true,
	models.InvoiceStatusCancelled:     true,
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	v := make(validation.Violations)
	validation.RequiredID("client_id", req.ClientID, v)
	validation.Lines("items", req.Items, v)
	validation.Percent("tds_rate", req.TDSRate, v)
	validation.Percent("tcs_rate", req.TCSRate, v)
	invoiceDate, err := parseDate(req.InvoiceDate, h.loc)
	if err != nil {
		v["invoice_date"] = "invalid_date"
	}
	dueDate, err := parseDate(req.DueDate, h.loc)
	if err != nil {
		v["due_date"] = "invalid_date"
	}
	validation.NotBefore("due_date", dueDate, invoiceDate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	inv, err := h.invoices.CreateDraft(r.Context(), organization(r), services.DraftInput{
		ClientID:       req.ClientID,
		GstinProfileID: req.GstinProfileID,
		InvoiceType:    req.InvoiceType,
		InvoiceDate:    invoiceDate,
		DueDate:        dueDate,
		Notes:          req.Notes,
		Pricing:        req.Pricing,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, inv.ID)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	f := services.ListFilter{
		Status: models.InvoiceStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if f.Status != "" && !listableStatuses[f.Status] {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", validation.Violations{"status": "unknown_status"})
		return
	}
	if c := queryInt(r, "client_id"); c > 0 {
		f.ClientID = uint(c)
	}
	snaps, err := h.invoices.List(r.Context(), organization(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snaps)
}

func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	inv, err := h.invoices.Get(r.Context(), organization(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gate.Authorize(r.Context(), gate.ActionView, policy.ResourceInvoice, inv); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceResponse(inv))
}

func (h *InvoiceHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req services.Pricing
	if err := httpx.Decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v := make(validation.Violations)
	validation.Lines("items", req.Items, v)
	validation.Percent("tds_rate", req.TDSRate, v)
	validation.Percent("tcs_rate", req.TCSRate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	if _, err := h.invoices.UpdateItems(r.Context(), organization(r), id, req); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, id)
}

func (h *InvoiceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	// the body is optional; it only carries a number under manual numbering
	var req finalizeRequest
	if err := httpx.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, err)
		return
	}
	if _, err := h.invoices.Finalize(r.Context(), organization(r), id, req.InvoiceNumber); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, id)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if _, err := h.invoices.Cancel(r.Context(), organization(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, id)
}

// Events lists the outbox entries of one invoice, oldest first.
func (h *InvoiceHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	inv, err := h.invoices.Get(r.Context(), organization(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gate.Authorize(r.Context(), gate.ActionView, policy.ResourceInvoice, inv); err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.outbox.ForInvoice(r.Context(), inv.OrganizationID, inv.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

// respond reloads the invoice after a mutation and writes it with its items.
func (h *InvoiceHandler) respond(w http.ResponseWriter, r *http.Request, status int, id uint) {
	inv, err := h.invoices.Get(r.Context(), organization(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, status, h.invoiceResponse(inv))
}

func (h *InvoiceHandler) invoiceResponse(inv *models.Invoice) invoiceResponse {
	return invoiceResponse{Snapshot: h.invoices.View(inv), Items: inv.Items}
}
