// Package poller runs the periodic fetch-classify-index cycle and publishes
// immutable snapshots to the HTTP layer.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mwengren/glider-dac-status/internal/connectors/cache"
	"github.com/mwengren/glider-dac-status/internal/connectors/history"
	"github.com/mwengren/glider-dac-status/internal/dacstatus"
)

// Source produces a full dataset snapshot. Both the status API client and
// the DAC database store implement it.
type Source interface {
	Name() string
	FetchDatasets(ctx context.Context) ([]dacstatus.DatasetRecord, int, error)
}

// Poller owns the fetch cycle. It republishes the previous snapshot on fetch
// failure and discards a cycle's result if a newer cycle has already
// published (last-fetch-wins).
type Poller struct {
	source   Source
	interval time.Duration
	history  *history.Store
	cache    *cache.SnapshotCache

	forceCh chan struct{}

	mu           sync.RWMutex
	current      *dacstatus.Snapshot
	publishedSeq uint64
	nextSeq      uint64
	lastErr      string
	lastErrAt    time.Time
	cycles       uint64
	failures     uint64
}

// New builds a poller. History and cache may be nil when those integrations
// are disabled; source may be nil in tests that only Prime snapshots.
func New(source Source, interval time.Duration, hist *history.Store, snapCache *cache.SnapshotCache) *Poller {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Poller{
		source:   source,
		interval: interval,
		history:  hist,
		cache:    snapCache,
		forceCh:  make(chan struct{}, 1),
	}
}

// Prime seeds the published snapshot, typically from the Redis cache at
// startup, without counting as a fetch cycle.
func (p *Poller) Prime(snap *dacstatus.Snapshot) {
	if snap == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		p.current = snap
	}
}

// Run executes cycles until ctx is cancelled. The first cycle runs
// immediately so the dashboard has data before the first tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		case <-p.forceCh:
			p.runCycle(ctx)
		}
	}
}

// ForceRefresh requests an immediate cycle. A refresh already pending
// coalesces with this one.
func (p *Poller) ForceRefresh() {
	select {
	case p.forceCh <- struct{}{}:
	default:
	}
}

// Current returns the published snapshot, or nil before the first successful
// cycle.
func (p *Poller) Current() *dacstatus.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Status describes poller health for the services status endpoint.
type Status struct {
	SourceName    string     `json:"source"`
	Interval      string     `json:"interval"`
	Cycles        uint64     `json:"cycles"`
	Failures      uint64     `json:"failures"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	SnapshotReady bool       `json:"snapshot_ready"`
	FetchedAt     *time.Time `json:"fetched_at,omitempty"`
}

func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := Status{
		Interval:      p.interval.String(),
		Cycles:        p.cycles,
		Failures:      p.failures,
		LastError:     p.lastErr,
		SnapshotReady: p.current != nil,
	}
	if p.source != nil {
		out.SourceName = p.source.Name()
	}
	if !p.lastErrAt.IsZero() {
		t := p.lastErrAt
		out.LastErrorAt = &t
	}
	if p.current != nil {
		t := p.current.FetchedAt
		out.FetchedAt = &t
	}
	return out
}

func (p *Poller) runCycle(ctx context.Context) {
	if p.source == nil {
		return
	}

	p.mu.Lock()
	p.nextSeq++
	seq := p.nextSeq
	p.cycles++
	p.mu.Unlock()

	records, dropped, err := p.source.FetchDatasets(ctx)
	if err != nil {
		// Prior snapshot stays published; the dashboard shows stale data
		// with a failure banner instead of flashing to empty.
		p.mu.Lock()
		p.failures++
		p.lastErr = err.Error()
		p.lastErrAt = time.Now().UTC()
		p.mu.Unlock()
		log.Printf("fetch cycle failed source=%s err=%v", p.source.Name(), err)
		return
	}

	snap := dacstatus.NewSnapshot(p.source.Name(), records, dropped, time.Now().UTC())
	if !p.publish(seq, snap) {
		log.Printf("discarding stale fetch cycle seq=%d cycle=%s", seq, snap.CycleID)
		return
	}

	if dropped > 0 {
		log.Printf("fetch cycle dropped %d malformed records cycle=%s", dropped, snap.CycleID)
	}

	if p.history != nil {
		if err := p.history.InsertCycleSummary(ctx, snap.Summarize()); err != nil {
			log.Printf("history insert failed: %v", err)
		}
	}
	if p.cache != nil {
		if err := p.cache.Store(ctx, snap); err != nil {
			log.Printf("snapshot cache store failed: %v", err)
		}
	}
}

// publish installs snap unless a newer cycle already published.
func (p *Poller) publish(seq uint64, snap *dacstatus.Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.publishedSeq {
		return false
	}
	p.publishedSeq = seq
	p.current = snap
	p.lastErr = ""
	p.lastErrAt = time.Time{}
	return true
}
