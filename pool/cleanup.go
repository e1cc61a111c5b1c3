package pool

import (
	"log"
	"time"
)

// StartPeriodicCleanup launches the background eviction loop. Idempotent:
// calling it while the loop is already running has no further effect.
// Non-positive arguments keep the current settings.
func (m *Manager) StartPeriodicCleanup(interval, idleTimeout time.Duration) {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()

	if m.cleanupStop != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if idleTimeout > 0 {
		m.idleTimeout = idleTimeout
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	m.cleanupStop = stop
	m.cleanupDone = done
	go m.cleanupLoop(interval, stop, done)

	log.Printf("[POOL] periodic cleanup started (interval=%s idle_timeout=%s)", interval, m.idleTimeout)
}

// StopPeriodicCleanup stops the background loop and waits for it to exit.
// Idempotent and safe to call when the loop never started.
func (m *Manager) StopPeriodicCleanup() {
	m.cleanupMu.Lock()
	stop, done := m.cleanupStop, m.cleanupDone
	m.cleanupStop, m.cleanupDone = nil, nil
	m.cleanupMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	log.Printf("[POOL] periodic cleanup stopped")
}

func (m *Manager) cleanupLoop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			evicted := m.evictOnce()
			if interval >= time.Minute {
				m.logStats(evicted)
			}
		}
	}
}

func (m *Manager) currentIdleTimeout() time.Duration {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()
	return m.idleTimeout
}

// evictOnce runs a single eviction pass using the configured idle timeout.
// The loop calls it every tick; tests call it directly to single-step.
func (m *Manager) evictOnce() int {
	return m.sweep(m.currentIdleTimeout())
}

// sweep snapshots the registry and reclaims entries that are unreferenced and
// either idle past idleTimeout or older than the max lifetime. A close
// failure is logged and the entry is removed regardless, so the registry
// cannot accumulate dead entries.
func (m *Manager) sweep(idleTimeout time.Duration) int {
	m.mu.RLock()
	snapshot := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		snapshot = append(snapshot, e)
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	evicted := 0
	for _, e := range snapshot {
		e.mu.Lock()
		var reason string
		if e.client != nil && !e.evicted && e.refcount == 0 {
			switch {
			case idleTimeout > 0 && now.Sub(e.lastReleasedAt) > idleTimeout:
				reason = "idle timeout"
			case m.maxLifetime > 0 && now.Sub(e.createdAt) > m.maxLifetime:
				reason = "max lifetime"
			}
		}
		if reason == "" {
			e.mu.Unlock()
			continue
		}
		c := e.client
		e.client = nil
		e.evicted = true
		e.mu.Unlock()

		m.remove(e)
		if err := c.Close(); err != nil {
			log.Printf("[POOL] evicted client %q (%s), close failed: %v", e.key, reason, err)
		} else {
			log.Printf("[POOL] evicted client %q (%s)", e.key, reason)
		}
		evicted++
	}
	return evicted
}

func (m *Manager) logStats(evicted int) {
	stats := m.Stats()
	outstanding := 0
	for _, s := range stats {
		outstanding += s.Refcount
	}
	log.Printf("[POOL] stats: clients=%d outstanding=%d evicted=%d", len(stats), outstanding, evicted)
}
