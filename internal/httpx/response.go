// Package httpx writes JSON responses.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
)

// ErrorResponse is the body of every error reply. Ledger rejections also
// carry the invoice snapshot the caller should reconcile against.
type ErrorResponse struct {
	Error    string `json:"error"`
	Details  any    `json:"details,omitempty"`
	Snapshot any    `json:"snapshot,omitempty"`
}

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Rejection writes an error together with the current ledger snapshot.
func Rejection(w http.ResponseWriter, status int, msg string, details, snapshot any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details, Snapshot: snapshot})
}

// Decode reads a JSON body into dst, rejecting unknown fields and
// trailing data.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
