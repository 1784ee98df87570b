package query

// Per-verb error codes, grouped by spec.md §7's "kinds": unknown-entity
// (100s/200s/300s/400s/500s), argument-shape (700s/900s), and
// real-time-availability (801/802/803). Zero always means success.
const (
	ErrUnknownTrip  = 101
	ErrUnknownRoute = 201
	ErrUnknownStop  = 301
	ErrUnknownStop2 = 401 // STA
	ErrUnknownRoute2 = 501 // SSR
	ErrUnknownStop3  = 601 // NEX/NCF

	ErrSBSBadArgCount  = 701
	ErrSBSUnknownDay   = 702
	ErrSBSUnknownOrigin = 703
	ErrSBSUnknownDest   = 704

	ErrConnBadArgCount    = 901
	ErrConnBadTransferArg = 902 // non-numeric or negative connection time
	ErrConnUnknownStop    = 903
	ErrConnTooManyDashes  = 904 // more than one "-" in a transfer-window token
	ErrConnRangeInverted  = 905

	ErrNoActiveRealtime    = 801
	ErrNoRealtimeForRoute  = 802
	ErrEmptyRealtimeStamp  = 803
)
