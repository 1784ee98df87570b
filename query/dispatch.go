package query

// Handler answers one request's arguments with a JSON-able payload
// and an error code (0 = success).
type Handler func(args string) (any, int)

// Handlers returns the verb -> Handler dispatch table. Built fresh
// per Engine rather than a package-level map so each handler closes
// over this particular Engine's stores.
func (e *Engine) Handlers() map[string]Handler {
	return map[string]Handler{
		"SDS": e.SDS,
		"RTE": e.RTE,
		"TRI": e.TRI,
		"TSR": e.TSR,
		"TRD": e.TRD,
		"TSS": e.TSS,
		"TSD": e.TSD,
		"STA": e.STA,
		"SSR": e.SSR,
		"SNT": e.SNT,
		"NEX": e.NEX,
		"NCF": e.NCF,
		"SBS": e.SBS,
		"EES": e.EES,
		"EER": e.EER,
		"ETS": e.ETS,
		"ETR": e.ETR,
		"RDS": e.RDS,
		"RPS": e.RPS,
		"RTI": e.RTI,
		"TRR": e.TRR,
	}
}
