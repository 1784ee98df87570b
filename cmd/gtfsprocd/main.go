// Command gtfsprocd runs the schedule/realtime reconciliation server:
// it loads an INI config (spec.md §6), refreshes the static and
// realtime feeds, then serves the line-delimited TCP protocol until
// interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitproc/gtfsproc/config"
	"github.com/transitproc/gtfsproc/downloader"
	"github.com/transitproc/gtfsproc/feedhistory"
	"github.com/transitproc/gtfsproc/query"
	"github.com/transitproc/gtfsproc/realtimestore"
	"github.com/transitproc/gtfsproc/refresher"
	"github.com/transitproc/gtfsproc/server"
)

var (
	configPath string
	traceFlag  bool
	freezeFlag string
)

var rootCmd = &cobra.Command{
	Use:          "gtfsprocd",
	Short:        "GTFS schedule/realtime reconciliation server",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the INI configuration file (required)")
	rootCmd.Flags().BoolVarP(&traceFlag, "trace", "i", false, "log every request/response transaction")
	rootCmd.Flags().StringVarP(&freezeFlag, "freeze", "f", "", "freeze \"now\" to y,m,d,h,m,s instead of the wall clock")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clock, err := resolveClock(freezeFlag)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("opening feed history store: %w", err)
	}
	defer history.Close()

	var realtimeURLs []string
	if cfg.RealtimeFeedLocation != "" {
		realtimeURLs = strings.Split(cfg.RealtimeFeedLocation, ",")
	}

	datePolicy := realtimestore.DateMatchServiceDate
	switch cfg.ServiceDateMatch {
	case 1:
		datePolicy = realtimestore.DateMatchActualDate
	case 2:
		datePolicy = realtimestore.DateMatchNone
	}

	rf := refresher.New(refresher.Config{
		StaticURL:        cfg.DataPath,
		RealtimeURLs:     realtimeURLs,
		RealtimeInterval: cfg.RealtimeInterval,
		RequestTimeout:   30 * time.Second,
		SkipStopSeqMatch: cfg.SkipStopSeqMatch,
		DateMatchPolicy:  datePolicy,
	}, log, httpOrFileDownloader(cfg), history)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rf.RefreshStatic(ctx); err != nil {
		return fmt.Errorf("initial static refresh: %w", err)
	}
	if len(realtimeURLs) > 0 {
		if err := rf.RefreshRealtime(ctx); err != nil {
			log.Warn("initial realtime refresh failed", "error", err)
		}
		if err := rf.Start(ctx); err != nil {
			return fmt.Errorf("starting refresher: %w", err)
		}
		defer rf.Stop()
	}

	engine := query.NewEngine(cfg, rf, history, clock)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", cfg.ServerPort, err)
	}
	defer ln.Close()

	srv := server.New(engine, log, cfg.NumberThreads, traceFlag)
	log.Info("server listening", "port", cfg.ServerPort, "threads", cfg.NumberThreads)
	return srv.Serve(ctx, ln)
}

// resolveClock implements -f: "y,m,d,h,m,s" freezes "now" to a fixed
// instant in the server process's local time zone (time.Local);
// absent, it's the wall clock.
func resolveClock(freeze string) (query.Clock, error) {
	if freeze == "" {
		return time.Now, nil
	}
	parts := strings.Split(freeze, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("-f expects y,m,d,h,m,s, got %q", freeze)
	}
	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("-f: invalid number %q", p)
		}
		nums[i] = n
	}
	frozen := time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.Local)
	return func() time.Time { return frozen }, nil
}

func openHistory(cfg config.Config) (feedhistory.Store, error) {
	if cfg.FeedHistoryDSN == "" {
		return feedhistory.NewMemory(), nil
	}
	kind, value, found := strings.Cut(cfg.FeedHistoryDSN, ":")
	if !found {
		return nil, fmt.Errorf("feedHistoryDSN must be \"sqlite:<path>\" or \"postgres:<connstring>\", got %q", cfg.FeedHistoryDSN)
	}
	switch kind {
	case "sqlite":
		return feedhistory.NewSQLite(value)
	case "postgres":
		return feedhistory.NewPostgres(value)
	default:
		return nil, fmt.Errorf("unknown feedHistoryDSN backend %q", kind)
	}
}

// httpOrFileDownloader picks a Downloader per §4.6: realtime.feedLocation
// (and static.dataPath) may be an http(s):// URL or a filesystem path.
func httpOrFileDownloader(cfg config.Config) downloader.Downloader {
	return downloader.Auto{}
}
