package fingerprint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

const ouiSchema = `
CREATE TABLE IF NOT EXISTS oui_registry (
	prefix       TEXT PRIMARY KEY,
	vendor       TEXT NOT NULL,
	vendor_short TEXT,
	last_updated INTEGER
);
CREATE INDEX IF NOT EXISTS idx_oui_vendor ON oui_registry(vendor);
`

const upsertOUI = `INSERT OR REPLACE INTO oui_registry (prefix, vendor, vendor_short, last_updated) VALUES (?, ?, ?, ?)`

// OUIDatabase resolves vendors from an SQLite OUI registry, usually built
// with ImportCSV, fronted by an LRU cache.
type OUIDatabase struct {
	db     *sql.DB
	lookup *sql.Stmt
	cache  *OUICache

	mu     sync.RWMutex
	closed bool
}

// OUIEntry is one registry row.
type OUIEntry struct {
	Prefix      string // "XX:XX:XX"; "-" separators and lower case accepted
	Vendor      string
	VendorShort string
	LastUpdated time.Time
}

// NewOUIDatabase opens (creating if needed) the registry at dbPath.
func NewOUIDatabase(dbPath string, cacheSize int) (*OUIDatabase, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "ping", Err: err}
	}
	if _, err := db.Exec(ouiSchema); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "schema", Err: err}
	}
	stmt, err := db.Prepare("SELECT COALESCE(NULLIF(vendor_short, ''), vendor) FROM oui_registry WHERE prefix = ?")
	if err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "prepare", Err: err}
	}

	return &OUIDatabase{db: db, lookup: stmt, cache: NewOUICache(cacheSize)}, nil
}

// LookupVendor returns the short vendor name registered for mac's OUI.
func (o *OUIDatabase) LookupVendor(ctx context.Context, mac domain.MAC) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return "", ErrRepositoryClosed
	}
	if mac.IsZero() {
		return "", ErrInvalidMAC
	}

	oui := mac.OUI()
	if vendor, ok := o.cache.Get(oui); ok {
		return vendor, nil
	}

	var vendor string
	err := o.lookup.QueryRowContext(ctx, FormatOUI(mac)).Scan(&vendor)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return VendorUnknown, ErrVendorNotFound
	case err != nil:
		return "", &DatabaseError{Op: "lookup", Err: err}
	}
	o.cache.Set(oui, vendor)
	return vendor, nil
}

// BulkInsertOUIs upserts entries in one transaction. An invalid prefix
// aborts the whole batch.
func (o *OUIDatabase) BulkInsertOUIs(ctx context.Context, entries []OUIEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrRepositoryClosed
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertOUI)
	if err != nil {
		return &DatabaseError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for _, e := range entries {
		prefix, err := ParsePrefix(e.Prefix)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%02X:%02X:%02X", prefix[0], prefix[1], prefix[2])
		if _, err := stmt.ExecContext(ctx, key, e.Vendor, e.VendorShort, e.LastUpdated.Unix()); err != nil {
			return &DatabaseError{Op: "insert " + key, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit", Err: err}
	}
	// cached misses may now resolve
	o.cache.Clear()
	return nil
}

// GetStats counts registry rows and reports cache effectiveness.
func (o *OUIDatabase) GetStats(ctx context.Context) (RepositoryStats, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return RepositoryStats{}, ErrRepositoryClosed
	}

	var count int
	var lastUpdated int64
	err := o.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(last_updated), 0) FROM oui_registry",
	).Scan(&count, &lastUpdated)
	if err != nil {
		return RepositoryStats{}, &DatabaseError{Op: "stats", Err: err}
	}

	cs := o.cache.Stats()
	return RepositoryStats{
		TotalEntries: count,
		CacheHits:    cs.Hits,
		CacheMisses:  cs.Misses,
		LastUpdated:  time.Unix(lastUpdated, 0).UTC().Format("2006-01-02"),
	}, nil
}

// Close is idempotent.
func (o *OUIDatabase) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.lookup.Close()
	o.cache.Clear()
	return o.db.Close()
}

// ParsePrefix accepts "00:14:6C", "00-14-6c", "00.14.6c" or "00146C".
func ParsePrefix(s string) ([3]byte, error) {
	var oui [3]byte
	clean := strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(s))
	if len(clean) != 6 {
		return oui, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
	if _, err := hex.Decode(oui[:], []byte(clean)); err != nil {
		return oui, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
	return oui, nil
}
