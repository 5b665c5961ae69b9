// Package ingest implements the per-pusher session: one header line naming
// the log path, followed by raw log lines routed to viewers.
package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/tinytelemetry/logfollow/internal/framer"
	"github.com/tinytelemetry/logfollow/internal/metrics"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateAwaitingHeader State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingHeader:
		return "awaiting-header"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithRemote sets the remote address used in log messages.
func WithRemote(addr string) Option {
	return func(s *Session) { s.remote = addr }
}

// WithPath presets the log path; the session streams immediately without
// reading a header.
func WithPath(path model.LogPath) Option {
	return func(s *Session) { s.preset = path }
}

// WithMaxLineSize bounds the size of a single line.
func WithMaxLineSize(n int) Option {
	return func(s *Session) { s.maxLineSize = n }
}

// Session owns one pusher connection.
type Session struct {
	conn        io.ReadCloser
	router      Router
	sources     *registry.Sources
	remote      string
	preset      model.LogPath
	maxLineSize int

	mu         sync.Mutex
	state      State
	path       model.LogPath
	registered bool

	closeOnce sync.Once
	connOnce  sync.Once
}

// NewSession creates a session in the awaiting-header state.
func NewSession(conn io.ReadCloser, router Router, sources *registry.Sources, opts ...Option) *Session {
	s := &Session{
		conn:    conn,
		router:  router,
		sources: sources,
		remote:  "-",
		state:   StateAwaitingHeader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads the header and then streams lines until the connection ends or
// ctx is cancelled. A clean disconnect or cancellation returns nil; a
// malformed header returns model.ErrMalformedHeader; a read failure returns
// an error wrapping model.ErrTransport. The connection is closed and the path
// released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	metrics.PusherSessionsActive.Inc()
	defer metrics.PusherSessionsActive.Dec()

	stop := context.AfterFunc(ctx, s.closeConn)
	defer stop()
	defer s.close()

	lines := framer.New(s.conn, framer.Config{MaxLineSize: s.maxLineSize})

	path := s.preset
	if path == "" {
		header, err := lines.Next()
		if err != nil {
			return s.endErr(ctx, err)
		}
		verb, p, err := ParseHeader(header)
		if err != nil {
			log.Printf("ingest: %s: %v", s.remote, err)
			metrics.SessionErrorsTotal.WithLabelValues("header").Inc()
			return err
		}
		log.Printf("ingest: %s: %s %s", s.remote, verb, p)
		path = p
	}

	if !s.startStreaming(path) {
		return nil
	}

	for {
		line, err := lines.Next()
		if err != nil {
			return s.endErr(ctx, err)
		}
		metrics.LinesIngestedTotal.Inc()
		s.router.Route(model.NewEntry(path, line))
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Path returns the log path, or "" while awaiting the header.
func (s *Session) Path() model.LogPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Session) startStreaming(path model.LogPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.path = path
	s.state = StateStreaming
	s.registered = true
	if s.sources.Acquire(path) {
		metrics.ActiveSources.Inc()
	}
	return true
}

func (s *Session) endErr(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		log.Printf("ingest: %s disconnected", s.remote)
		return nil
	}
	log.Printf("ingest: %s: %v", s.remote, err)
	metrics.SessionErrorsTotal.WithLabelValues("transport").Inc()
	return err
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		if s.registered {
			if s.sources.Release(s.path) {
				metrics.ActiveSources.Dec()
			}
			s.registered = false
		}
		s.mu.Unlock()
		s.closeConn()
	})
}

func (s *Session) closeConn() {
	s.connOnce.Do(func() { _ = s.conn.Close() })
}
