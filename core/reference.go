package core

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/singleflight"

	ex "ndx.service/data/extensions"
	m "ndx.service/data/models"
)

type ConstituentSource interface {
	Constituents(ctx context.Context) ([]m.Constituent, error)
}

// ReferenceCache holds the constituents table for the process. The table is loaded on
// the first Load, kept until Invalidate or until ttl has passed (0 keeps it forever),
// and concurrent loads share a single upstream request. Failed loads are not cached.
type ReferenceCache struct {
	source ConstituentSource
	ttl    time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	table      []m.Constituent
	loadedAt   time.Time
	generation uint64

	group singleflight.Group
}

func NewReferenceCache(source ConstituentSource, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns a copy of the cached table, loading it when absent or expired
func (rc *ReferenceCache) Load(ctx context.Context) ([]m.Constituent, error) {
	if table, ok := rc.cached(); ok {
		return slices.Clone(table), nil
	}

	table, err := shared(ctx, &rc.group, "constituents", func(ctx context.Context) ([]m.Constituent, error) {
		if table, ok := rc.cached(); ok {
			return table, nil
		}
		return rc.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(table), nil
}

// Invalidate drops the table, a load in flight when this is called is not cached
func (rc *ReferenceCache) Invalidate() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.table = nil
	rc.loadedAt = time.Time{}
	rc.generation++
}

// Refresh loads the table again and swaps it in once the load succeeds. A failed
// refresh keeps serving the previous table.
func (rc *ReferenceCache) Refresh(ctx context.Context) ([]m.Constituent, error) {
	table, err := shared(ctx, &rc.group, "refresh", rc.load)
	if err != nil {
		return nil, err
	}
	return slices.Clone(table), nil
}

// LoadedAt is zero when nothing is cached
func (rc *ReferenceCache) LoadedAt() time.Time {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.loadedAt
}

func (rc *ReferenceCache) cached() ([]m.Constituent, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.table == nil {
		return nil, false
	}
	if rc.ttl > 0 && rc.now().Sub(rc.loadedAt) >= rc.ttl {
		return nil, false
	}
	return rc.table, true
}

func (rc *ReferenceCache) load(ctx context.Context) ([]m.Constituent, error) {
	rc.mu.RLock()
	generation := rc.generation
	rc.mu.RUnlock()

	start := time.Now()
	table, err := rc.source.Constituents(ctx)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("error loading reference data")
		return nil, err
	}

	rc.mu.Lock()
	if rc.generation == generation {
		rc.table = table
		rc.loadedAt = rc.now()
	}
	rc.mu.Unlock()

	log.Info().Int("constituents", len(table)).Dur("elapsed", time.Since(start)).Msg("reference data loaded")
	return table, nil
}

// Sectors returns the distinct non empty sectors of table, sorted
func Sectors(table []m.Constituent) []string {
	res := make([]string, 0)
	for _, c := range table {
		if c.Sector != "" {
			res = append(res, c.Sector)
		}
	}
	slices.Sort(res)
	return slices.Compact(res)
}

// FilterBySector keeps the rows whose sector is one of sectors, ignoring case
func FilterBySector(table []m.Constituent, sectors []string) []m.Constituent {
	wanted := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		wanted[strings.ToLower(strings.TrimSpace(s))] = true
	}

	return ex.FilterMultiple(table, func(c m.Constituent) bool {
		return wanted[strings.ToLower(c.Sector)]
	})
}

// SelectTickers returns the rows of filtered named by tickers, in the order the tickers
// were given. Unknown tickers and repeats are dropped.
func SelectTickers(filtered []m.Constituent, tickers []string) []m.Constituent {
	byTicker := make(map[string]m.Constituent, len(filtered))
	for _, c := range filtered {
		byTicker[c.Ticker] = c
	}

	normalized := make([]string, len(tickers))
	for i, t := range tickers {
		normalized[i] = strings.ToUpper(strings.TrimSpace(t))
	}

	var res []m.Constituent
	for _, t := range ex.Unique(normalized) {
		if c, ok := byTicker[t]; ok {
			res = append(res, c)
		}
	}
	return res
}

// TickersOf lists the tickers of the given rows
func TickersOf(rows []m.Constituent) []string {
	res := make([]string, len(rows))
	for i, c := range rows {
		res[i] = c.Ticker
	}
	return res
}
