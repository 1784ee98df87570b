package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"
)

// serveRequests reads "VERB args\n" lines off conn until it closes or
// errors, dispatching each to the Engine's handler table and writing
// back exactly one JSON object plus "\n" per request.
func (s *Server) serveRequests(ctx context.Context, conn net.Conn, log *slog.Logger) {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	handlers := s.Engine.Handlers()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := readRequest(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("reading request", "error", err)
			}
			return
		}
		if req.Verb == "" {
			continue
		}

		s.Engine.RequestEntered()
		resp := s.dispatch(handlers, req, log)

		if _, err := w.Write(resp); err != nil {
			log.Debug("writing response", "error", err)
			return
		}
		if err := w.WriteByte('\n'); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// dispatch looks up req.Verb, recovers any handler panic into error=2
// (per spec.md §7's protocol-error policy: "no unchecked failure can
// tear down a worker"), and serializes the envelope plus payload.
func (s *Server) dispatch(handlers map[string]Handler, req Request, log *slog.Logger) []byte {
	start := time.Now()

	var payload any
	errCode := 0

	handler, ok := handlers[req.Verb]
	if !ok {
		errCode = ErrUnknownVerb
	} else {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic", "verb", req.Verb, "recovered", rec)
					errCode = ErrInternal
					payload = nil
				}
			}()
			payload, errCode = handler(req.Args)
		}()
	}

	if s.Trace {
		log.Info("request", "verb", req.Verb, "args", req.Args, "error", errCode)
	}

	now := s.Engine.Now()
	envelope := Envelope{
		MessageType: req.Verb,
		Error:       errCode,
		MessageTime: formatMessageTime(now, s.Engine.Config.Clock12Hour),
		ProcTimeMS:  time.Since(start).Milliseconds(),
	}
	return mergeJSON(envelope, payload)
}

func formatMessageTime(t time.Time, clock12Hour bool) string {
	if clock12Hour {
		return t.Format("02-Jan-2006 03:04:05 pm")
	}
	return t.Format("02-Jan-2006 15:04:05")
}

// mergeJSON combines the envelope and the handler's payload into one
// flat JSON object. Field name collisions favor the envelope, since
// no payload defines message_type/error/message_time/proc_time_ms.
func mergeJSON(envelope Envelope, payload any) []byte {
	out := map[string]any{}

	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			var fields map[string]any
			if json.Unmarshal(b, &fields) == nil {
				for k, v := range fields {
					out[k] = v
				}
			}
		}
	}

	eb, _ := json.Marshal(envelope)
	var envFields map[string]any
	json.Unmarshal(eb, &envFields)
	for k, v := range envFields {
		out[k] = v
	}

	b, err := json.Marshal(out)
	if err != nil {
		return []byte(`{"error":2}`)
	}
	return b
}
