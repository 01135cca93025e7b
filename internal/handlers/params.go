package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/gst-ledger/internal/auth"
)

const dateLayout = "2006-01-02"

// pathID parses a positive numeric path parameter.
func pathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// organization returns the caller's organization. RequireAuth runs before
// every handler, so a missing principal means a wiring error.
func organization(r *http.Request) uint {
	return auth.SubjectFromContext(r.Context()).OrganizationID
}

// parseDate reads a calendar day in loc. Empty input yields the zero time.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
