package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"gorm.io/gorm"
)

// DefaultDirectoryTTL is how long organization settings are cached.
const DefaultDirectoryTTL = 5 * time.Minute

// Directory reads the master data the ledger depends on: organization
// settings, GSTIN profiles and clients. Every lookup is scoped to an
// organization. Organization settings are cached; profiles and clients
// are always read through.
type Directory struct {
	db   *gorm.DB
	orgs *orgCache
	// fresh skips cached organization settings and refreshes the cache
	// from db instead.
	fresh bool
}

// NewDirectory creates a Directory. A ttl of zero uses DefaultDirectoryTTL.
func NewDirectory(db *gorm.DB, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &Directory{
		db:   db,
		orgs: &orgCache{entries: make(map[uint]*orgEntry), ttl: ttl},
	}
}

// with returns a Directory reading through tx. Organization settings are
// always loaded from tx, so numbering and tax settings used inside a
// mutation are never stale; the shared cache is refreshed as a side effect.
func (d *Directory) with(tx *gorm.DB) *Directory {
	return &Directory{db: tx, orgs: d.orgs, fresh: true}
}

// Organization returns the organization's settings.
func (d *Directory) Organization(ctx context.Context, organizationID uint) (*models.Organization, error) {
	if !d.fresh {
		if org, ok := d.orgs.get(organizationID); ok {
			return org, nil
		}
	}
	var org models.Organization
	if err := d.db.WithContext(ctx).Take(&org, organizationID).Error; err != nil {
		return nil, notFound("organization", organizationID, err)
	}
	d.orgs.put(&org)
	return &org, nil
}

// Profile returns the organization's GSTIN profile with the given id. A nil
// id selects the default profile; nil is returned when there is none.
func (d *Directory) Profile(ctx context.Context, organizationID uint, profileID *uint) (*models.GstinProfile, error) {
	var p models.GstinProfile
	q := d.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if profileID == nil {
		err := q.Where("is_default = ?", true).Order("id ASC").Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err := q.Take(&p, *profileID).Error; err != nil {
		return nil, notFound("gstin profile", *profileID, err)
	}
	return &p, nil
}

// Client returns one of the organization's clients.
func (d *Directory) Client(ctx context.Context, organizationID, clientID uint) (*models.Client, error) {
	var c models.Client
	err := d.db.WithContext(ctx).Where("organization_id = ?", organizationID).Take(&c, clientID).Error
	if err != nil {
		return nil, notFound("client", clientID, err)
	}
	return &c, nil
}

// Invalidate drops the cached settings of one organization. Ledger
// mutations never read the cache; only lookups such as the tax split
// endpoint do.
func (d *Directory) Invalidate(organizationID uint) {
	d.orgs.delete(organizationID)
}

func notFound(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

type orgEntry struct {
	org       models.Organization
	expiresAt time.Time
}

type orgCache struct {
	mu      sync.RWMutex
	entries map[uint]*orgEntry
	ttl     time.Duration
}

func (c *orgCache) get(id uint) (*models.Organization, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || !time.Now().Before(e.expiresAt) {
		return nil, false
	}
	org := e.org
	return &org, true
}

func (c *orgCache) put(org *models.Organization) {
	c.mu.Lock()
	c.entries[org.ID] = &orgEntry{org: *org, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *orgCache) delete(id uint) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
