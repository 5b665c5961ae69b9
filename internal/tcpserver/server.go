package tcpserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/tinytelemetry/logfollow/internal/ingest"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

const (
	// DefaultMaxLineSize is the default maximum size (in bytes) of a single log line.
	DefaultMaxLineSize = model.DefaultMaxLineSize
)

// DefaultAddr is the pusher listen address used when none is configured.
var DefaultAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(model.DefaultGatewayPort))

// ServerConfig holds tunable parameters for the TCP server.
type ServerConfig struct {
	MaxLineSize int
}

// Server accepts pusher connections and runs one ingest session per connection.
type Server struct {
	listener    net.Listener
	addr        string
	router      ingest.Router
	sources     *registry.Sources
	maxLineSize int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

// NewServer creates a new TCP server. Default addr is "127.0.0.1:6777".
func NewServer(addr string, router ingest.Router, sources *registry.Sources, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		router:      router,
		sources:     sources,
		maxLineSize: maxLineSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins accepting TCP connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("tcpserver: listen: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					log.Printf("tcpserver: accept error: %v", err)
					continue
				}
			}
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}()

	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	remote := conn.RemoteAddr().String()
	log.Printf("tcpserver: incoming connection from %s", remote)

	session := ingest.NewSession(conn, s.router, s.sources,
		ingest.WithRemote(remote),
		ingest.WithMaxLineSize(s.maxLineSize),
	)
	if err := session.Run(s.ctx); err != nil {
		log.Printf("tcpserver: dropped connection %s: %v", remote, err)
	}
}

// Stop closes the listener and every live pusher connection, then waits for
// their sessions to release their paths.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
	})
	return nil
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
