// Package sequence hands out gap-free invoice and draft numbers.
//
// Allocation is an atomic increment at the counter store; rendering the
// number from a template is a separate pure step.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
)

var (
	// ErrSequenceExhausted is returned when a counter would pass its maximum.
	// Counters never wrap.
	ErrSequenceExhausted = errors.New("invoice number sequence exhausted")

	// ErrDuplicateInvoiceNumber is returned when a manual number is already used
	// by the organization.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")

	// ErrInvalidNumber is returned for blank manual numbers.
	ErrInvalidNumber = errors.New("invalid invoice number")
)

// DefaultKey is the GSTIN key used when neither a profile nor a legacy GSTIN exists.
const DefaultKey = "DEFAULT"

// draftYear scopes the draft counter, which does not roll over with the FY.
const draftYear = "ALL"

// Key identifies one counter.
type Key struct {
	OrganizationID uint
	Kind           models.SequenceKind
	GSTINKey       string
	FinancialYear  string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s/%s", k.OrganizationID, k.Kind, k.GSTINKey, k.FinancialYear)
}

// CounterStore performs the atomic read-and-increment. Next returns the
// number consumed by this call; the first call for a key returns start.
type CounterStore interface {
	Next(ctx context.Context, key Key, start int64) (int64, error)
}

// NumberIndex answers whether a final number is already in use.
type NumberIndex interface {
	NumberTaken(ctx context.Context, organizationID uint, number string) (bool, error)
}

// Scheme is the numbering configuration for one organization and GSTIN.
type Scheme struct {
	OrganizationID   uint
	GSTINKey         string
	Prefix           string
	Template         string
	Start            int64
	Width            int
	FiscalStartMonth time.Month
}

// Number is an allocated final number.
type Number struct {
	Key      Key    `json:"-"`
	Sequence int64  `json:"sequence"`
	Text     string `json:"text"`
}

// Allocator allocates draft and final numbers.
type Allocator struct {
	counters CounterStore
	numbers  NumberIndex
}

// New creates an Allocator. numbers may be nil when manual numbering is not used.
func New(counters CounterStore, numbers NumberIndex) *Allocator {
	return &Allocator{counters: counters, numbers: numbers}
}

// Allocate is the raw counter step: the next integer for the organization,
// GSTIN key and financial year.
func (a *Allocator) Allocate(ctx context.Context, organizationID uint, gstinKey, financialYear string, start int64) (int64, error) {
	if start < 1 {
		start = 1
	}
	key := Key{
		OrganizationID: organizationID,
		Kind:           models.SequenceFinal,
		GSTINKey:       normalizeKey(gstinKey),
		FinancialYear:  financialYear,
	}
	return a.counters.Next(ctx, key, start)
}

// AllocateFinal allocates the next final number for the invoice date and renders it.
func (a *Allocator) AllocateFinal(ctx context.Context, s Scheme, invoiceDate time.Time) (Number, error) {
	fy := FinancialYear(invoiceDate, s.FiscalStartMonth)
	seq, err := a.Allocate(ctx, s.OrganizationID, s.GSTINKey, fy, s.Start)
	if err != nil {
		return Number{}, err
	}
	return Number{
		Key: Key{
			OrganizationID: s.OrganizationID,
			Kind:           models.SequenceFinal,
			GSTINKey:       normalizeKey(s.GSTINKey),
			FinancialYear:  fy,
		},
		Sequence: seq,
		Text:     Render(s.Template, s.Prefix, fy, seq, s.Width),
	}, nil
}

// AllocateDraft allocates a draft reference. Drafts always use automatic
// numbering regardless of the organization's numbering mode.
func (a *Allocator) AllocateDraft(ctx context.Context, organizationID uint) (string, error) {
	key := Key{
		OrganizationID: organizationID,
		Kind:           models.SequenceDraft,
		GSTINKey:       DefaultKey,
		FinancialYear:  draftYear,
	}
	seq, err := a.counters.Next(ctx, key, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DRAFT-%d-%05d", organizationID, seq), nil
}

// CheckManual validates a caller-supplied number for manual numbering mode.
func (a *Allocator) CheckManual(ctx context.Context, organizationID uint, number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" || len(number) > 64 {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	if a.numbers == nil {
		return "", errors.New("sequence: no number index configured")
	}
	taken, err := a.numbers.NumberTaken(ctx, organizationID, number)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: %s", ErrDuplicateInvoiceNumber, number)
	}
	return number, nil
}

// GSTINKey picks the counter key for an invoice: the selected profile's
// GSTIN, else the organization's legacy GSTIN, else DefaultKey.
func GSTINKey(profileGSTIN, legacyGSTIN string) string {
	if k := strings.TrimSpace(profileGSTIN); k != "" {
		return strings.ToUpper(k)
	}
	if k := strings.TrimSpace(legacyGSTIN); k != "" {
		return strings.ToUpper(k)
	}
	return DefaultKey
}

func normalizeKey(k string) string {
	if k = strings.ToUpper(strings.TrimSpace(k)); k == "" {
		return DefaultKey
	}
	return k
}
