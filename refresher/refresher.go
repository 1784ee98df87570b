// Package refresher downloads the static GTFS bundle on request and
// periodically re-downloads the realtime feeds, publishing
// freshly-built stores for the server to read, using robfig/cron for
// the realtime schedule.
package refresher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/transitproc/gtfsproc/downloader"
	"github.com/transitproc/gtfsproc/feedhistory"
	"github.com/transitproc/gtfsproc/ingest"
	"github.com/transitproc/gtfsproc/realtimestore"
	"github.com/transitproc/gtfsproc/schedule"
)

// Config holds everything a Refresher needs to know about where feeds
// live and how often to re-check them.
type Config struct {
	StaticURL          string
	RealtimeURLs       []string
	RealtimeInterval   time.Duration
	RequestTimeout     time.Duration
	SkipStopSeqMatch   bool
	DateMatchPolicy    realtimestore.DateMatchPolicy
}

// Refresher owns the live static schedule.Store and realtimestore.Store
// pointers, refreshing them on a schedule and recording every attempt
// in a feedhistory.Store.
type Refresher struct {
	cfg        Config
	log        *slog.Logger
	downloader downloader.Downloader
	history    feedhistory.Store

	static     atomic.Pointer[schedule.Store]
	realtime   *realtimestore.Store

	cron *cron.Cron
}

func New(cfg Config, log *slog.Logger, dl downloader.Downloader, history feedhistory.Store) *Refresher {
	return &Refresher{
		cfg:        cfg,
		log:        log,
		downloader: dl,
		history:    history,
		realtime:   realtimestore.NewStore(),
		cron:       cron.New(),
	}
}

// Static returns the current schedule.Store, or nil before the first
// successful static refresh.
func (r *Refresher) Static() *schedule.Store {
	return r.static.Load()
}

// Realtime returns the double-buffered realtime store (never nil,
// though Current() on it may be nil before the first realtime
// refresh).
func (r *Refresher) Realtime() *realtimestore.Store {
	return r.realtime
}

// RefreshStatic downloads, parses, and publishes a new static
// schedule.Store. A download or parse failure is recorded in history
// and returned, but never clobbers the last-good Store.
func (r *Refresher) RefreshStatic(ctx context.Context) error {
	start := time.Now()
	rec := feedhistory.Record{Kind: feedhistory.KindStatic, URL: r.cfg.StaticURL, RetrievedAt: start}

	body, err := r.downloader.Get(ctx, r.cfg.StaticURL, nil, downloader.GetOptions{
		Timeout: r.cfg.RequestTimeout,
		Cache:   true,
		CacheTTL: 5 * time.Minute,
	})
	rec.DownloadMS = time.Since(start).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		r.recordHistory(ctx, rec)
		return fmt.Errorf("refresher: downloading static feed: %w", err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(body))
	rec.SHA256 = hash

	parseStart := time.Now()
	raw, err := ingest.ParseStatic(r.log, body)
	rec.ParseMS = time.Since(parseStart).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		r.recordHistory(ctx, rec)
		return fmt.Errorf("refresher: parsing static feed: %w", err)
	}
	raw.Metadata.RetrievedAt = start

	store, err := schedule.Build(raw)
	if err != nil {
		rec.Error = err.Error()
		r.recordHistory(ctx, rec)
		return fmt.Errorf("refresher: building schedule store: %w", err)
	}

	rec.Success = true
	r.recordHistory(ctx, rec)

	r.static.Store(store)
	r.log.Info("static feed refreshed", "url", r.cfg.StaticURL, "sha256", hash, "download_ms", rec.DownloadMS, "parse_ms", rec.ParseMS)
	return nil
}

// RefreshRealtime downloads and parses every configured realtime
// endpoint and publishes the merged Snapshot. Unlike the static feed,
// a realtime failure should not be silently ignored by the caller
// (it likely means vehicles vanish from live results), so it's always
// returned; the realtime store is also invalidated, unless every
// endpoint is a local file, in which case the last-good Snapshot stays.
func (r *Refresher) RefreshRealtime(ctx context.Context) error {
	start := time.Now()
	var bodies [][]byte

	for _, url := range r.cfg.RealtimeURLs {
		body, err := r.downloader.Get(ctx, url, nil, downloader.GetOptions{Timeout: r.cfg.RequestTimeout})
		rec := feedhistory.Record{Kind: feedhistory.KindRealtime, URL: url, RetrievedAt: start}
		if err != nil {
			rec.Error = err.Error()
			rec.DownloadMS = time.Since(start).Milliseconds()
			r.recordHistory(ctx, rec)
			r.invalidateUnlessLocalFile()
			return fmt.Errorf("refresher: downloading realtime feed %s: %w", url, err)
		}
		bodies = append(bodies, body)
	}

	parseStart := time.Now()
	snap, err := realtimestore.Parse(bodies)
	parseMS := time.Since(parseStart).Milliseconds()
	for _, url := range r.cfg.RealtimeURLs {
		rec := feedhistory.Record{
			Kind:        feedhistory.KindRealtime,
			URL:         url,
			RetrievedAt: start,
			DownloadMS:  time.Since(start).Milliseconds() - parseMS,
			ParseMS:     parseMS,
			Success:     err == nil,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		r.recordHistory(ctx, rec)
	}
	if err != nil {
		r.invalidateUnlessLocalFile()
		return fmt.Errorf("refresher: parsing realtime feeds: %w", err)
	}

	if static := r.Static(); static != nil {
		realtimestore.BuildMismatchOrphans(snap, static)
	}

	r.realtime.Publish(snap)
	r.log.Info("realtime feed refreshed", "trips", len(snap.Trips), "cancelled", snap.NumCanceledTrips)
	return nil
}

// invalidateUnlessLocalFile reverts the active realtime side to NONE
// on a refresh failure, per spec: the sole exception is when every
// realtime endpoint is a local file, where the last-good slot is kept
// rather than going dark over a transient disk hiccup.
func (r *Refresher) invalidateUnlessLocalFile() {
	if r.allRealtimeURLsLocal() {
		return
	}
	r.realtime.Invalidate()
}

func (r *Refresher) allRealtimeURLsLocal() bool {
	if len(r.cfg.RealtimeURLs) == 0 {
		return false
	}
	for _, url := range r.cfg.RealtimeURLs {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			return false
		}
	}
	return true
}

func (r *Refresher) recordHistory(ctx context.Context, rec feedhistory.Record) {
	if err := r.history.Record(ctx, rec); err != nil {
		r.log.Warn("failed to record feed history", "error", err)
	}
}

// Start schedules periodic realtime refreshes on cfg.RealtimeInterval
// and begins running them in the background. The caller is
// responsible for an initial RefreshStatic/RefreshRealtime call before
// Start, so the server never serves an empty store while cron warms
// up.
func (r *Refresher) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", r.cfg.RealtimeInterval)
	_, err := r.cron.AddFunc(spec, func() {
		if err := r.RefreshRealtime(ctx); err != nil {
			r.log.Error("scheduled realtime refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refresher: scheduling realtime refresh: %w", err)
	}
	r.cron.Start()
	return nil
}

func (r *Refresher) Stop() {
	r.cron.Stop()
}
