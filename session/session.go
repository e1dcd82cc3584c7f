// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package session implements TLS session resumption (RFC 5246 §7.3): the
// cached state a full handshake produces and an abbreviated handshake
// restores, plus the Cache this engine's resumption hooks read and write.
// This generalizes the teacher's single-entry SessionStore lookup (keyed
// by remote address + server name for a DTLS client, or SessionID for a
// DTLS server) into an explicit, swappable Cache interface, since a TLS
// engine has no notion of "the" peer address — the embedding application
// owns the transport.
package session

import (
	"crypto"
	"sync"
	"time"
)

// Session is the resumable state produced by one completed full handshake.
type Session struct {
	ID                string
	MasterSecret      []byte
	CipherSuiteID     uint16
	NegotiatedVersion uint16
	PRFHash           crypto.Hash
	NegotiatedALPN    string
	CreatedAt         time.Time
}

// Cache stores Sessions for later resumption. Implementations must be
// concurrency-safe; the handshake state machine reads and writes from
// whichever goroutine owns Engine.Unwrap/Wrap for a given connection, but
// the cache is typically shared across many connections.
type Cache interface {
	Get(key string) (*Session, bool)
	Put(key string, s *Session)
	Delete(key string)
}

// memoryCache is the default in-process Cache implementation: every entry
// is kept until its TTL expires or it is evicted to respect MaxEntries.
// Eviction follows first-insertion order and an entry's TTL runs from its
// last Put; Get refreshes neither its expiry nor its place in that order.
// Applications embedding this engine across process restarts or multiple
// instances should supply their own Cache (e.g. backed by a shared store)
// instead of relying on this one.
type memoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	order      []string // insertion order, oldest first, for eviction
}

type cacheEntry struct {
	session *Session
	expires time.Time
}

// NewMemoryCache constructs an in-process session Cache. ttl <= 0 disables
// expiry; maxEntries <= 0 disables the entry-count cap.
func NewMemoryCache(ttl time.Duration, maxEntries int) Cache {
	return &memoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *memoryCache) Get(key string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.session, true
}

func (c *memoryCache) Put(key string, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{session: s, expires: time.Now().Add(c.ttl)}

	if c.maxEntries > 0 {
		for len(c.order) > c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
