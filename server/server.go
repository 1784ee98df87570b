package server

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/transitproc/gtfsproc/query"
)

// Server is the TCP accept loop plus bounded worker pool described by
// spec.md §5: one goroutine accepts connections, each connection's
// requests are served serially on a pooled goroutine (a connection
// itself is single-threaded; the pool bounds how many connections are
// actively being served at once).
type Server struct {
	Engine     *query.Engine
	Log        *slog.Logger
	Trace      bool // -i: log every request/response line
	numWorkers int

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(engine *query.Engine, log *slog.Logger, numWorkers int, trace bool) *Server {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Server{
		Engine:     engine,
		Log:        log,
		Trace:      trace,
		numWorkers: numWorkers,
		sem:        make(chan struct{}, numWorkers),
	}
}

// Serve accepts connections on ln until ctx is cancelled or Accept
// fails. Each connection is dispatched onto the bounded pool via the
// semaphore channel; Serve blocks the accept loop (not the
// connection's requests) when the pool is saturated, matching the
// "connection-accepting task dispatches each client request onto a
// bounded worker pool" wording — a full pool simply delays accepting
// the next connection rather than dropping it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			s.wg.Wait()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	log := s.Log.With("conn_id", connID, "remote_addr", conn.RemoteAddr().String())
	if s.Trace {
		log.Info("connection accepted")
	}

	s.serveRequests(ctx, conn, log)

	if s.Trace {
		log.Info("connection closed")
	}
}
