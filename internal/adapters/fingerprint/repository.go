// Package fingerprint resolves the vendor behind a BSSID from its OUI.
package fingerprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Vendor labels returned when no registry entry applies.
const (
	VendorUnknown    = "Unknown"
	VendorRandomized = "Randomized"
)

// VendorRepository defines the interface for looking up device vendors by MAC address
type VendorRepository interface {
	// LookupVendor returns the vendor name for a given MAC address
	LookupVendor(ctx context.Context, mac domain.MAC) (string, error)

	// Close releases any resources held by the repository
	Close() error
}

// VendorWriter stores registry entries.
type VendorWriter interface {
	// BulkInsertOUIs upserts entries in one transaction.
	BulkInsertOUIs(ctx context.Context, entries []OUIEntry) error
}

// RepositoryStats contains statistics about a vendor repository
type RepositoryStats struct {
	TotalEntries int
	CacheHits    int64
	CacheMisses  int64
	LastUpdated  string
}

// FormatOUI renders the registry key of mac: "XX:XX:XX", upper case.
func FormatOUI(mac domain.MAC) string {
	oui := mac.OUI()
	return fmt.Sprintf("%02X:%02X:%02X", oui[0], oui[1], oui[2])
}

// Lookup resolves the display vendor of mac. Locally administered addresses
// are reported as Randomized without consulting repo; failures yield Unknown.
func Lookup(ctx context.Context, repo VendorRepository, mac domain.MAC) string {
	if mac.IsLocallyAdministered() {
		return VendorRandomized
	}
	if repo == nil {
		return VendorUnknown
	}
	vendor, err := repo.LookupVendor(ctx, mac)
	if err != nil || vendor == "" {
		return VendorUnknown
	}
	return vendor
}

// CompositeVendorRepository implements a chain-of-responsibility pattern
// for vendor lookups, trying multiple repositories in order
type CompositeVendorRepository struct {
	repositories []VendorRepository
}

// NewCompositeVendorRepository creates a new composite repository
// that tries each repository in order until one succeeds
func NewCompositeVendorRepository(repos ...VendorRepository) *CompositeVendorRepository {
	return &CompositeVendorRepository{
		repositories: repos,
	}
}

// LookupVendor tries each repository in order until one returns a result
func (c *CompositeVendorRepository) LookupVendor(ctx context.Context, mac domain.MAC) (string, error) {
	if mac.IsZero() {
		return VendorUnknown, ErrInvalidMAC
	}

	var lastErr error
	for _, repo := range c.repositories {
		vendor, err := repo.LookupVendor(ctx, mac)
		if err == nil && vendor != "" && vendor != VendorUnknown {
			return vendor, nil
		}
		if err != nil && !errors.Is(err, ErrVendorNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return VendorUnknown, lastErr
	}
	return VendorUnknown, ErrVendorNotFound
}

// Close closes all repositories
func (c *CompositeVendorRepository) Close() error {
	var errs []error
	for _, repo := range c.repositories {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StaticVendorRepository provides vendor lookups from an in-memory map
type StaticVendorRepository struct {
	vendors map[string]string
}

// NewStaticVendorRepository creates a new static repository. Keys are
// "XX:XX:XX" prefixes.
func NewStaticVendorRepository(vendors map[string]string) *StaticVendorRepository {
	return &StaticVendorRepository{
		vendors: vendors,
	}
}

// LookupVendor looks up a vendor in the static map
func (s *StaticVendorRepository) LookupVendor(ctx context.Context, mac domain.MAC) (string, error) {
	if vendor, ok := s.vendors[FormatOUI(mac)]; ok {
		return vendor, nil
	}
	return "", ErrVendorNotFound
}

// Close is a no-op for static repository
func (s *StaticVendorRepository) Close() error {
	return nil
}
