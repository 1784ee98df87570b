package query

// StatusResponse answers SDS: a snapshot of server health and feed
// timing, expanded per SPEC_FULL's "SDS thread-pool and uptime
// reporting" supplement beyond spec.md's minimal field list.
type StatusResponse struct {
	Agencies       []string `json:"agencies"`
	FeedStartDate  string   `json:"feed_start_date"`
	FeedEndDate    string   `json:"feed_end_date"`
	UptimeSeconds  int64    `json:"uptime_seconds"`
	ThreadPoolSize int      `json:"thread_pool_size"`
	ProcessedReqs  uint64   `json:"processed_requests"`
	RealtimeActive bool     `json:"realtime_active"`
	RealtimeTrips  int      `json:"realtime_trip_count"`
}

// SDS has no arguments and cannot fail.
func (e *Engine) SDS(args string) (any, int) {
	s := e.static()
	resp := StatusResponse{
		UptimeSeconds:  int64(e.Now().Sub(e.StartedAt).Seconds()),
		ThreadPoolSize: e.Config.NumberThreads,
		ProcessedReqs:  e.ProcessedRequests(),
	}
	if s != nil {
		for _, a := range s.Agencies() {
			resp.Agencies = append(resp.Agencies, a.ID)
		}
		resp.FeedStartDate = s.Metadata.CalendarStartDate
		resp.FeedEndDate = s.Metadata.CalendarEndDate
	}
	if rt := e.realtime(); rt != nil {
		resp.RealtimeActive = true
		resp.RealtimeTrips = len(rt.Trips)
	}
	return resp, 0
}
