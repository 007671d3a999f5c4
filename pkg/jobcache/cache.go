package jobcache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkgshield/pkgshield/db"
)

// Store is the slice of the catalogue the cache needs: refilling ready
// jobs and flushing buffered verdicts.
type Store interface {
	ListQueuedExcluding(limit int, exclude []db.ScanKey) ([]*db.Scan, error)
	PersistVerdicts(verdicts []db.ScanVerdict, now time.Time) error
}

// Cache batches job dispatch and verdict persistence to amortize
// database round-trips. While a scan sits in the cache its lease lives
// in memory only, the database row stays QUEUED until the next flush.
type Cache struct {
	size    int
	enabled bool
	timeout time.Duration
	store   Store

	ready   chan *db.Scan
	results chan db.ScanVerdict

	mu      sync.Mutex
	pending []*db.Scan

	refillMu  sync.Mutex
	persistMu sync.Mutex
}

// New creates a cache of the given capacity. A size of one or less
// disables the cache, callers are expected to go straight to the store.
func New(size int, timeout time.Duration, store Store) *Cache {
	cache := &Cache{
		size:    size,
		enabled: size > 1,
		timeout: timeout,
		store:   store,
	}
	if cache.enabled {
		cache.ready = make(chan *db.Scan, size)
		cache.results = make(chan db.ScanVerdict, size)
	}
	return cache
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Acquire returns the next ready job leased to the given holder,
// refilling from the store when the ready queue is empty. Returns nil
// when no job is available.
func (c *Cache) Acquire(leaseholder string, now time.Time) (*db.Scan, error) {
	select {
	case scan := <-c.ready:
		c.lease(scan, leaseholder, now)
		return scan, nil
	default:
	}

	if err := c.Refill(now); err != nil {
		return nil, err
	}

	// Still empty after a refill means there are no more jobs in the DB
	select {
	case scan := <-c.ready:
		c.lease(scan, leaseholder, now)
		return scan, nil
	default:
		return nil, nil
	}
}

func (c *Cache) lease(scan *db.Scan, leaseholder string, now time.Time) {
	pendingAt := now
	holder := leaseholder
	scan.Status = db.ScanStatusPending
	scan.PendingAt = &pendingAt
	scan.PendingBy = &holder

	c.mu.Lock()
	c.pending = append(c.pending, scan)
	c.mu.Unlock()
}

// Refill moves timed out pending jobs back into the ready queue, then
// tops the queue up from the store, excluding everything that is still
// pending or was just requeued.
func (c *Cache) Refill(now time.Time) error {
	c.refillMu.Lock()
	defer c.refillMu.Unlock()

	requeued := c.requeueTimeouts(now)
	if len(requeued) > 0 {
		log.Info().Int("count", len(requeued)).Msg("Moved timed out jobs from pending back to the queue")
	}

	c.mu.Lock()
	exclude := make([]db.ScanKey, 0, len(c.pending)+len(requeued))
	for _, scan := range c.pending {
		exclude = append(exclude, db.ScanKey{Name: scan.Name, Version: scan.Version})
	}
	c.mu.Unlock()
	for _, scan := range requeued {
		exclude = append(exclude, db.ScanKey{Name: scan.Name, Version: scan.Version})
	}

	scans, err := c.store.ListQueuedExcluding(c.size, exclude)
	if err != nil {
		return err
	}

	for _, scan := range scans {
		select {
		case c.ready <- scan:
		default:
			// Requeued jobs already took the remaining capacity
			log.Warn().Msg("Overfetched jobs while refilling, ignoring extras")
			return nil
		}
	}
	return nil
}

// requeueTimeouts moves every pending job whose lease exceeded the
// timeout back into ready with its lease cleared. Jobs that don't fit
// into ready stay pending and are retried next cycle.
func (c *Cache) requeueTimeouts(now time.Time) []*db.Scan {
	c.mu.Lock()
	var expired []*db.Scan
	remaining := c.pending[:0]
	for _, scan := range c.pending {
		if scan.PendingAt != nil && now.Sub(*scan.PendingAt) > c.timeout {
			expired = append(expired, scan)
		} else {
			remaining = append(remaining, scan)
		}
	}
	c.pending = remaining
	c.mu.Unlock()

	var requeued []*db.Scan
	for _, scan := range expired {
		leasedAt := scan.PendingAt
		holder := scan.PendingBy
		scan.Status = db.ScanStatusQueued
		scan.PendingAt = nil
		scan.PendingBy = nil
		select {
		case c.ready <- scan:
			log.Warn().Str("name", scan.Name).Str("version", scan.Version).Msg("Timed out job found, requeueing")
			requeued = append(requeued, scan)
		default:
			scan.Status = db.ScanStatusPending
			scan.PendingAt = leasedAt
			scan.PendingBy = holder
			c.mu.Lock()
			c.pending = append(c.pending, scan)
			c.mu.Unlock()
		}
	}
	return requeued
}

// Submit buffers a verdict and releases the matching pending lease.
// When the buffer is full it is flushed to the store first.
func (c *Cache) Submit(verdict db.ScanVerdict, now time.Time) error {
	c.removePending(verdict.Key())

	select {
	case c.results <- verdict:
		return nil
	default:
	}

	if err := c.PersistAll(now); err != nil {
		return err
	}
	c.results <- verdict
	return nil
}

func (c *Cache) removePending(key db.ScanKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, scan := range c.pending {
		if scan.Name == key.Name && scan.Version == key.Version {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
	log.Warn().Str("name", key.Name).Str("version", key.Version).Msg("Submitted scan not found in pending list")
}

// PersistAll drains the buffered verdicts and writes them to the store
// in a single transaction.
func (c *Cache) PersistAll(now time.Time) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	var verdicts []db.ScanVerdict
drain:
	for {
		select {
		case verdict := <-c.results:
			verdicts = append(verdicts, verdict)
		default:
			break drain
		}
	}
	if len(verdicts) == 0 {
		return nil
	}

	if err := c.store.PersistVerdicts(verdicts, now); err != nil {
		log.Error().Err(err).Int("count", len(verdicts)).Msg("Verdict flush failed")
		return err
	}
	log.Info().Int("count", len(verdicts)).Msg("Flushed buffered verdicts")
	return nil
}

// Stats returns the current queue depths for observability.
func (c *Cache) Stats() (ready, pending, results int) {
	if !c.Enabled() {
		return 0, 0, 0
	}
	c.mu.Lock()
	pending = len(c.pending)
	c.mu.Unlock()
	return len(c.ready), pending, len(c.results)
}
