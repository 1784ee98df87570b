// Package config loads the server's INI configuration file, the file
// half of the original C++ service's two-tier scheme (QSettings INI
// file plus a handful of command-line switches); the command-line
// switches are handled in cmd/gtfsprocd, not here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved configuration for one server run.
type Config struct {
	DataPath          string
	ServerPort        uint16
	Clock12Hour       bool
	NumberThreads     int
	NexTripsPerRoute  uint32
	HideTerminating   bool
	ZOptions          string

	RealtimeFeedLocation string
	SkipStopSeqMatch     bool
	ServiceDateMatch     uint32
	RealtimeInterval     time.Duration

	// FeedHistoryDSN, if set, is a "sqlite:<path>" or
	// "postgres:<connstring>" DSN for the feed provenance store; an
	// empty value falls back to an in-process Memory store.
	FeedHistoryDSN string
}

const defaultNexTripsPerRoute = 5

// Load reads the INI file at path and applies the defaults the
// original service used for any key it leaves blank.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	sections, err := parseINI(f)
	if err != nil {
		return Config{}, err
	}

	static := sections["static"]
	realtime := sections["realtime"]

	cfg := Config{
		DataPath:         static["dataPath"],
		Clock12Hour:      boolOf(static["clock12hFormat"]),
		NumberThreads:    intOf(static["numberThreads"], 4),
		NexTripsPerRoute: uint32(intOf(static["nexTripsPerRoute"], defaultNexTripsPerRoute)),
		HideTerminating:  boolOf(static["hideTerminating"]),
		ZOptions:         static["zOptions"],

		RealtimeFeedLocation: realtime["feedLocation"],
		SkipStopSeqMatch:     boolOf(realtime["skipStopSeqMatch"]),
		ServiceDateMatch:     uint32(intOf(realtime["serviceDateMatch"], 0)),
		RealtimeInterval:     time.Duration(intOf(realtime["updateInterval"], 30)) * time.Second,

		FeedHistoryDSN: static["feedHistoryDSN"],
	}

	port := intOf(static["serverPort"], 0)
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("config: static/serverPort missing or out of range: %q", static["serverPort"])
	}
	cfg.ServerPort = uint16(port)

	if cfg.DataPath == "" {
		return Config{}, fmt.Errorf("config: static/dataPath is required")
	}

	return cfg, nil
}

func boolOf(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

func intOf(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
