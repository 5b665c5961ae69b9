package logsource

import (
	"sync"

	"github.com/tinytelemetry/logfollow/internal/tcpserver"
)

// TCPSource wraps a tcpserver.Server as a LogSource.
type TCPSource struct {
	server *tcpserver.Server
	done   chan struct{}
	once   sync.Once
}

// NewTCPSource creates a TCPSource from an already-started TCP server.
func NewTCPSource(server *tcpserver.Server) *TCPSource {
	return &TCPSource{server: server, done: make(chan struct{})}
}

func (t *TCPSource) Stop() {
	t.once.Do(func() {
		_ = t.server.Stop()
		close(t.done)
	})
}

func (t *TCPSource) Done() <-chan struct{} { return t.done }
func (t *TCPSource) Name() string          { return "tcp" }
func (t *TCPSource) Addr() string          { return t.server.Addr() }
