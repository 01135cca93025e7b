package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifier(t *testing.T) {
	_, err := NewHMACVerifier("")
	require.Error(t, err)

	v, err := NewHMACVerifier("secret")
	require.NoError(t, err)
	sig := v.Sign("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, v.Verify("order_1", "pay_1", sig))
	assert.True(t, v.Verify("order_1", "pay_1", " "+sig+" "))
	assert.False(t, v.Verify("order_1", "pay_2", sig))
	assert.False(t, v.Verify("order_2", "pay_1", sig))
	assert.False(t, v.Verify("order_1", "pay_1", ""))

	other, _ := NewHMACVerifier("other")
	assert.False(t, other.Verify("order_1", "pay_1", sig))
}

func TestDirectoryCachesOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org, err := f.dir.Organization(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV", org.Prefix())

	require.NoError(t, f.db.Model(&models.Organization{}).Where("id = ?", f.org.ID).Update("invoice_prefix", "ACME").Error)
	org, err = f.dir.Organization(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV", org.Prefix(), "served from cache")

	org, err = f.dir.with(f.db).Organization(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", org.Prefix(), "transaction reads skip the cache")
	org, err = f.dir.Organization(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", org.Prefix(), "and refresh it")

	require.NoError(t, f.db.Model(&models.Organization{}).Where("id = ?", f.org.ID).Update("invoice_prefix", "ACME2").Error)

	f.dir.Invalidate(f.org.ID)
	org, err = f.dir.Organization(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME2", org.Prefix())

	short := NewDirectory(f.db, time.Nanosecond)
	_, err = short.Organization(ctx, f.org.ID)
	require.NoError(t, err)
	_, ok := short.orgs.get(f.org.ID)
	assert.False(t, ok, "entry expired")
}

func TestDirectoryScopesByOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.Organization{Name: "Other", StateCode: "07"}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.dir.Client(ctx, other.ID, f.local.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.dir.Profile(ctx, other.ID, &f.profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := f.dir.Profile(ctx, other.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, p, "no default profile")

	p, err = f.dir.Profile(ctx, f.org.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, f.profile.ID, p.ID)
}

func TestOutbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.finalized(t)
	f.pay(t, inv, "100", 11)

	outbox := NewOutbox(f.db)
	pending, err := outbox.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 4) // finalized, status, payment, status

	for _, e := range pending {
		assert.Equal(t, f.org.ID, e.OrganizationID)
		assert.Equal(t, inv.ID, e.InvoiceID)
		assert.NotEmpty(t, e.Payload)
	}
	require.NoError(t, outbox.MarkPublished(ctx, pending[0].ID, pending[1].ID))

	pending, err = outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestLedgerErrorKeepsFirstSnapshot(t *testing.T) {
	first := &Snapshot{InvoiceID: 1}
	err := wrapLedgerError("Inner", ErrOverpayment, first)
	err = wrapLedgerError("Outer", err, &Snapshot{InvoiceID: 2})

	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Same(t, first, SnapshotOf(err))
	assert.Equal(t, "ledger: Inner failed: payment exceeds invoice balance", err.Error())
	assert.Nil(t, wrapLedgerError("Op", nil, first))
}
