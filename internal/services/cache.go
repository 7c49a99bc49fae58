package services

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"sheetlens/pkg/contracts/domain"
)

// reportCache keeps recent reports keyed by a digest of their inputs.
// Entries expire after ttl; ttl <= 0 keeps them until evicted.
type reportCache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	report  *domain.Report
	expires time.Time
}

// newReportCache returns nil when size is not positive; a nil cache never
// hits.
func newReportCache(size int, ttl time.Duration) *reportCache {
	if size <= 0 {
		return nil
	}
	return &reportCache{lru: lru.New(size), ttl: ttl, now: time.Now}
}

func (c *reportCache) get(key string) (*domain.Report, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if !entry.expires.IsZero() && c.now().After(entry.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return entry.report, true
}

func (c *reportCache) add(key string, report *domain.Report) {
	if c == nil {
		return
	}
	entry := cacheEntry{report: report}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.lru.Add(key, entry)
	c.mu.Unlock()
}

func (c *reportCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// requestKey digests every input that influences a report. Fields are
// length-prefixed so adjacent values cannot run together.
func requestKey(req AnalysisRequest) string {
	h := sha256.New()
	writeField(h, req.Workbook)
	writeField(h, []byte(req.Sheet))
	writeField(h, []byte(req.DateColumn))
	writeField(h, []byte(formatOptionalDate(req.Start)))
	writeField(h, []byte(formatOptionalDate(req.End)))
	writeField(h, []byte(req.Series))
	var rows [8]byte
	binary.BigEndian.PutUint64(rows[:], uint64(req.PreviewRows))
	h.Write(rows[:])
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
