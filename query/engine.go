// Package query implements the 21 request verbs: argument parsing,
// dispatch to the schedule/realtime stores and reconciler, and the
// per-verb error codes and success payloads described by spec.md §6.
package query

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/transitproc/gtfsproc/config"
	"github.com/transitproc/gtfsproc/feedhistory"
	"github.com/transitproc/gtfsproc/realtimestore"
	"github.com/transitproc/gtfsproc/reconcile"
	"github.com/transitproc/gtfsproc/refresher"
	"github.com/transitproc/gtfsproc/schedule"
)

// connCacheSize bounds the connection-search result cache; entries
// are cheap (a handful of LegMatch structs) so a generous bound costs
// little memory even under a busy instance.
const connCacheSize = 512

// Clock returns the server's notion of "now," overridable by the -f
// freeze flag; production wiring sets it to time.Now, tests and the
// -f flag set it to a fixed instant.
type Clock func() time.Time

// Engine holds everything a query handler needs: the live stores, the
// resolved configuration, and the small set of mutex-guarded counters
// spec.md §5 calls out explicitly (handled-requests, most-recent
// realtime transaction).
type Engine struct {
	Config    config.Config
	Refresher *refresher.Refresher
	History   feedhistory.Store
	Now       Clock
	StartedAt time.Time

	mu             sync.Mutex
	processedReqs  uint64
	lastRealtimeTx time.Time

	connCache *lru.Cache[string, []reconcile.Connection]
}

func NewEngine(cfg config.Config, rf *refresher.Refresher, history feedhistory.Store, clock Clock) *Engine {
	cache, _ := lru.New[string, []reconcile.Connection](connCacheSize)
	return &Engine{
		Config:    cfg,
		Refresher: rf,
		History:   history,
		Now:       clock,
		StartedAt: clock(),
		connCache: cache,
	}
}

// RequestEntered is the single "request entered" hook spec.md §9
// calls for in place of the original's several per-response real-time
// heartbeat calls: it increments the handled-requests counter and
// records the current wall-clock as the most recent transaction time.
func (e *Engine) RequestEntered() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processedReqs++
	e.lastRealtimeTx = e.Now()
}

func (e *Engine) ProcessedRequests() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processedReqs
}

func (e *Engine) LastRealtimeTransaction() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRealtimeTx
}

// static snapshots the current Schedule Store; nil means no static
// bundle has loaded yet.
func (e *Engine) static() *schedule.Store {
	return e.Refresher.Static()
}

// realtime snapshots the active-side Real-Time Store tag exactly
// once, at request entry, per spec.md §5 — callers hold onto the
// returned Snapshot for the rest of the request instead of calling
// Current() again.
func (e *Engine) realtime() *realtimestore.Snapshot {
	return e.Refresher.Realtime().Current()
}

// reconciler builds a Reconciler wired to one coherent (static,
// realtime) pair for the duration of a single request.
func (e *Engine) reconciler() *reconcile.Reconciler {
	r := reconcile.New(e.static(), e.realtime())
	r.LoosenStopMatch = e.Config.SkipStopSeqMatch
	switch e.Config.ServiceDateMatch {
	case 1:
		r.DatePolicy = realtimestore.DateMatchActualDate
	case 2:
		r.DatePolicy = realtimestore.DateMatchNone
	default:
		r.DatePolicy = realtimestore.DateMatchServiceDate
	}
	return r
}

// findConnectionsCached wraps reconcile.Reconciler.FindConnections
// with an LRU cache keyed on the query's shape plus the realtime
// store's generation counter, so repeated identical EES/EER/ETS/ETR
// queries against an unchanged realtime snapshot skip recomputation.
// The key folds in the calendar date rather than the exact instant,
// since results only change meaningfully across a service-date
// boundary or a realtime refresh.
func (e *Engine) findConnectionsCached(cacheKey string, q reconcile.ConnectionQuery) []reconcile.Connection {
	key := fmt.Sprintf("%s|%s|%d", cacheKey, e.Now().Format("2006-01-02"), e.Refresher.Realtime().Generation())
	if e.connCache != nil {
		if cached, ok := e.connCache.Get(key); ok {
			return cached
		}
	}
	results := e.reconciler().FindConnections(q)
	if e.connCache != nil {
		e.connCache.Add(key, results)
	}
	return results
}

// expandStop resolves a stop-id to itself, or, if it names a parent
// station, to its child stop-ids.
func expandStop(s *schedule.Store, stopID string) []string {
	if children := s.ChildStops(stopID); len(children) > 0 {
		return children
	}
	return []string{stopID}
}

// expandStops expands every id in ids per expandStop, deduplicating.
func expandStops(s *schedule.Store, ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		for _, child := range expandStop(s, id) {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
		}
	}
	return out
}
