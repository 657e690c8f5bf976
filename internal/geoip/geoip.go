// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves client IP addresses to ISO country codes using a
// MaxMind GeoLite2-Country database. Audit events carry the result.
package geoip

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Local is returned for loopback and private addresses.
const Local = "LOCAL"

// Lookup handles IP to country lookup. The zero value and a Lookup without
// a database path only classify local addresses.
type Lookup struct {
	mu        sync.RWMutex
	db        *maxminddb.Reader
	dbPath    string
	dbModTime time.Time
}

// geoRecord matches the GeoLite2-Country database structure.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open creates a Lookup reading dbPath. An empty path disables database
// lookups; a missing or unreadable file is an error.
func Open(dbPath string) (*Lookup, error) {
	l := &Lookup{dbPath: dbPath}
	if dbPath == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// load opens the database unless the file is unchanged. Caller must hold
// the write lock or own l exclusively.
func (l *Lookup) load() error {
	info, err := os.Stat(l.dbPath)
	if err != nil {
		return fmt.Errorf("GeoIP database %s: %w", l.dbPath, err)
	}
	if l.db != nil && info.ModTime().Equal(l.dbModTime) {
		return nil
	}

	db, err := maxminddb.Open(l.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.dbModTime = info.ModTime()
	return nil
}

// Reload reopens the database when the file has been replaced. Safe to
// call from the scheduler; a failed reload keeps the previous database.
func (l *Lookup) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dbPath == "" {
		return nil
	}
	return l.load()
}

// LookupCountry returns the 2-letter ISO country code for ip, Local for
// loopback and private addresses, and "" when it cannot be determined.
func (l *Lookup) LookupCountry(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() {
		return Local
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.db == nil {
		return ""
	}

	var record geoRecord
	if err := l.db.Lookup(net.IP(addr.AsSlice()), &record); err != nil {
		return ""
	}
	return record.Country.ISOCode
}

// IsEnabled reports whether a database is loaded.
func (l *Lookup) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// Close closes the GeoIP database.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
