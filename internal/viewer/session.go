// Package viewer implements the per-viewer session: inbound follow/unfollow
// commands mutate the session's follow set, and outbound messages are queued
// to a dedicated writer so that one slow viewer never holds up another.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tinytelemetry/logfollow/internal/metrics"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

// DefaultSendBuffer is the default number of outbound messages queued per viewer.
const DefaultSendBuffer = model.DefaultSendBuffer

// Transport is a message-framed bidirectional connection to one viewer.
// ReadMessage returns io.EOF when the peer closes cleanly.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Config holds tunable parameters for a Session.
type Config struct {
	SendBuffer int
	OnConnect  func(id string)
}

// Session is one connected viewer.
type Session struct {
	id        string
	transport Transport
	clients   *registry.Clients

	mu     sync.RWMutex
	follow map[model.LogPath]struct{}

	sendCh    chan []byte
	evicted   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession assigns a fresh id, registers the session with clients and
// starts its writer. The caller must call Run.
func NewSession(t Transport, clients *registry.Clients, conf ...Config) *Session {
	sendBuffer := DefaultSendBuffer
	var onConnect func(string)
	if len(conf) > 0 {
		if conf[0].SendBuffer > 0 {
			sendBuffer = conf[0].SendBuffer
		}
		onConnect = conf[0].OnConnect
	}

	s := &Session{
		id:        uuid.NewString(),
		transport: t,
		clients:   clients,
		follow:    make(map[model.LogPath]struct{}),
		sendCh:    make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}

	go s.writeLoop()
	clients.Add(s)
	metrics.ViewerSessionsActive.Inc()
	log.Printf("viewer: client connected: %s (total: %d)", s.id, clients.Len())
	if onConnect != nil {
		onConnect(s.id)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Follows reports whether path is in the follow set.
func (s *Session) Follows(path model.LogPath) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.follow[path]
	return ok
}

// Following returns the follow set in lexical order.
func (s *Session) Following() []model.LogPath {
	s.mu.RLock()
	out := make([]model.LogPath, 0, len(s.follow))
	for p := range s.follow {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Send queues data for delivery without blocking. It returns an error
// wrapping model.ErrDeliveryFailure if the session is closed. A full queue
// means the viewer cannot keep up: the session is evicted so it never sees
// a gap in a path it follows, and every later Send fails.
func (s *Session) Send(data []byte) error {
	if s.closed() || s.evicted.Load() {
		return fmt.Errorf("%w: session %s closed", model.ErrDeliveryFailure, s.id)
	}
	select {
	case s.sendCh <- data:
		// Close or an eviction may have won the race; the message will not be written.
		if s.closed() || s.evicted.Load() {
			return fmt.Errorf("%w: session %s closed", model.ErrDeliveryFailure, s.id)
		}
		return nil
	case <-s.done:
		return fmt.Errorf("%w: session %s closed", model.ErrDeliveryFailure, s.id)
	default:
		s.evict()
		return fmt.Errorf("%w: session %s send queue full", model.ErrDeliveryFailure, s.id)
	}
}

// evict drops the session from the registry right away so routing skips it,
// then closes it off the caller's goroutine; closing the transport can wait
// on an in-flight write.
func (s *Session) evict() {
	if !s.evicted.CompareAndSwap(false, true) {
		return
	}
	log.Printf("viewer: disconnecting slow client %s", s.id)
	metrics.SlowViewersEvictedTotal.Inc()
	s.clients.Remove(s.id)
	go s.Close()
}

// Run handles inbound commands until the transport ends or ctx is done.
// The session is deregistered and its transport closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()
	defer s.Close()

	for {
		data, err := s.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || s.closed() {
				return nil
			}
			log.Printf("viewer: %s read failed: %v", s.id, err)
			return fmt.Errorf("%w: %w", model.ErrTransport, err)
		}
		_ = s.Apply(Decode(data))
	}
}

// Apply executes cmd against this session. Unknown commands leave the
// follow set untouched, queue one status error reply and return the
// command's error.
func (s *Session) Apply(cmd Command) error {
	switch c := cmd.(type) {
	case Follow:
		metrics.CommandsTotal.WithLabelValues(commandFollow).Inc()
		s.mu.Lock()
		for _, p := range c.Logs {
			s.follow[p] = struct{}{}
		}
		s.mu.Unlock()
		log.Printf("viewer: %s follow %v", s.id, c.Logs)
		return nil
	case Unfollow:
		metrics.CommandsTotal.WithLabelValues(commandUnfollow).Inc()
		s.mu.Lock()
		for _, p := range c.Logs {
			delete(s.follow, p)
		}
		s.mu.Unlock()
		log.Printf("viewer: %s unfollow %v", s.id, c.Logs)
		return nil
	case Unknown:
		metrics.CommandsTotal.WithLabelValues("unknown").Inc()
		log.Printf("viewer: %s: %v", s.id, c.Err)
		s.replyStatus(model.UndefinedCommandStatus())
		return c.Err
	default:
		return fmt.Errorf("%w: %T", model.ErrUnknownCommand, cmd)
	}
}

// Close deregisters the session and closes its transport. It is safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.clients.Remove(s.id)
		_ = s.transport.Close()
		metrics.ViewerSessionsActive.Dec()
		log.Printf("viewer: client disconnected: %s", s.id)
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) replyStatus(status model.Status) {
	data, err := json.Marshal(status)
	if err != nil {
		log.Printf("viewer: failed to marshal status: %v", err)
		return
	}
	if err := s.Send(data); err != nil {
		log.Printf("viewer: %v", err)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case msg := <-s.sendCh:
			if s.evicted.Load() {
				return
			}
			if err := s.transport.WriteMessage(msg); err != nil {
				log.Printf("viewer: %s write failed: %v", s.id, err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
