package logsource

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/tinytelemetry/logfollow/internal/ingest"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

const (
	// DefaultStdinPath is the log path stdin lines are published under.
	DefaultStdinPath = model.DefaultStdinPath

	// DefaultStdinMaxLineSize is the default maximum size (in bytes) of a single stdin line.
	DefaultStdinMaxLineSize = model.DefaultMaxLineSize
)

// StdinConfig holds tunable parameters for the stdin source.
type StdinConfig struct {
	Path        model.LogPath
	MaxLineSize int
}

// StdinSource publishes lines piped into the process as a single log path.
// There is no header: every line is a log line.
type StdinSource struct {
	path   model.LogPath
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStdinSource starts streaming stdin in a background goroutine.
func NewStdinSource(ctx context.Context, router ingest.Router, sources *registry.Sources, conf ...StdinConfig) *StdinSource {
	return newStdinSourceWithReader(ctx, os.Stdin, router, sources, conf...)
}

func newStdinSourceWithReader(ctx context.Context, r io.ReadCloser, router ingest.Router, sources *registry.Sources, conf ...StdinConfig) *StdinSource {
	path := model.LogPath(DefaultStdinPath)
	maxLineSize := DefaultStdinMaxLineSize
	if len(conf) > 0 {
		if conf[0].Path != "" {
			path = conf[0].Path
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &StdinSource{
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	session := ingest.NewSession(r, router, sources,
		ingest.WithRemote("stdin"),
		ingest.WithPath(path),
		ingest.WithMaxLineSize(maxLineSize),
	)
	go func() {
		defer close(s.done)
		if err := session.Run(ctx); err != nil {
			log.Printf("logsource: stdin source stopped: %v", err)
		}
	}()
	return s
}

func (s *StdinSource) Stop()                 { s.cancel() }
func (s *StdinSource) Done() <-chan struct{} { return s.done }
func (s *StdinSource) Name() string          { return "stdin" }

// Path returns the log path stdin lines are published under.
func (s *StdinSource) Path() model.LogPath { return s.path }
