package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/httpx"
	"github.com/diewo77/gst-ledger/internal/services"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("invoice 4: %w", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{services.ErrOverpayment, http.StatusConflict, "overpayment"},
		{services.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{services.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{services.ErrDuplicateInvoiceNumber, http.StatusConflict, "duplicate_invoice_number"},
		{services.ErrImmutableEntry, http.StatusConflict, "immutable_entry"},
		{services.ErrSignatureMismatch, http.StatusUnprocessableEntity, "signature_mismatch"},
		{fmt.Errorf("%w: quantity must be positive", services.ErrInvalidTaxInput), http.StatusUnprocessableEntity, "invalid_tax_input"},
		{gate.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var body httpx.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.code {
				t.Errorf("error = %q, want %q", body.Error, tt.code)
			}
		})
	}
}

func TestWriteErrorIncludesSnapshot(t *testing.T) {
	err := &services.LedgerError{
		Op:       "RecordPayment",
		Err:      services.ErrOverpayment,
		Snapshot: &services.Snapshot{InvoiceID: 12, Version: 3},
	}
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodPost, "/", nil), err)

	var body struct {
		Error    string            `json:"error"`
		Snapshot services.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusConflict || body.Snapshot.InvoiceID != 12 || body.Snapshot.Version != 3 {
		t.Errorf("got %d %+v", rr.Code, body)
	}
}

func TestParseDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	got, err := parseDate("2024-06-25", ist)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2024, 6, 25, 0, 0, 0, 0, ist)) {
		t.Errorf("got %v", got)
	}
	if got, err := parseDate("", ist); err != nil || !got.IsZero() {
		t.Errorf("empty date: %v %v", got, err)
	}
	if _, err := parseDate("25/06/2024", ist); err == nil {
		t.Error("expected an error for a non-ISO date")
	}
}

func TestPathID(t *testing.T) {
	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "x": false} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.SetPathValue("id", raw)
		if _, ok := pathID(r, "id"); ok != want {
			t.Errorf("pathID(%q) ok = %v, want %v", raw, ok, want)
		}
	}
}
