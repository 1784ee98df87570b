package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/transitproc/gtfsproc/config"
)

func TestHandlers_CoverAllTwentyOneVerbs(t *testing.T) {
	e := NewEngine(config.Config{}, nil, nil, func() time.Time { return time.Unix(0, 0) })
	handlers := e.Handlers()

	want := []string{
		"SDS", "RTE", "TRI", "TSR", "TRD", "TSS", "TSD", "STA", "SSR", "SNT",
		"NEX", "NCF", "SBS", "EES", "EER", "ETS", "ETR", "RDS", "RPS", "RTI", "TRR",
	}
	assert.Len(t, handlers, len(want))
	for _, verb := range want {
		assert.Contains(t, handlers, verb)
	}
}

func TestEngine_ProcessedRequestsAndLastTransaction(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	e := NewEngine(config.Config{}, nil, nil, func() time.Time { return now })

	assert.Equal(t, uint64(0), e.ProcessedRequests())
	e.RequestEntered()
	e.RequestEntered()
	assert.Equal(t, uint64(2), e.ProcessedRequests())
	assert.Equal(t, now, e.LastRealtimeTransaction())
}
