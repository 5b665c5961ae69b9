package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tinytelemetry/logfollow/internal/ingest"
	"github.com/tinytelemetry/logfollow/internal/logsource"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
	"github.com/tinytelemetry/logfollow/internal/tcpserver"
)

// NamedLogSource aliases the shared source abstraction to keep app-layer APIs explicit.
type NamedLogSource = logsource.LogSource

// InputSourcePlugin is a small plugin primitive for wiring log inputs.
type InputSourcePlugin interface {
	Name() string
	Enabled() bool
	Build(ctx context.Context) (NamedLogSource, error)
}

// InputPluginConfig defines runtime input selection.
type InputPluginConfig struct {
	GatewayAddr  string
	MaxLineSize  int
	StdinEnabled bool
	StdinPath    string
}

// buildInputPlugins returns the gateway and stdin inputs. Both publish into
// the same router and source registry.
func buildInputPlugins(cfg InputPluginConfig, router ingest.Router, sources *registry.Sources) []InputSourcePlugin {
	plugins := make([]InputSourcePlugin, 0, 2)
	plugins = append(plugins, tcpInputPlugin{
		addr:        cfg.GatewayAddr,
		maxLineSize: cfg.MaxLineSize,
		router:      router,
		sources:     sources,
	})
	plugins = append(plugins, stdinInputPlugin{
		enabled:     cfg.StdinEnabled,
		path:        model.LogPath(cfg.StdinPath),
		maxLineSize: cfg.MaxLineSize,
		router:      router,
		sources:     sources,
		isPipe:      stdinIsPipe,
	})
	return plugins
}

type tcpInputPlugin struct {
	addr        string
	maxLineSize int
	router      ingest.Router
	sources     *registry.Sources
}

func (p tcpInputPlugin) Name() string { return "tcp" }

func (p tcpInputPlugin) Enabled() bool { return true }

func (p tcpInputPlugin) Build(_ context.Context) (NamedLogSource, error) {
	server := tcpserver.NewServer(p.addr, p.router, p.sources, tcpserver.ServerConfig{
		MaxLineSize: p.maxLineSize,
	})
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start tcp server: %w", err)
	}
	return logsource.NewTCPSource(server), nil
}

type stdinInputPlugin struct {
	enabled     bool
	path        model.LogPath
	maxLineSize int
	router      ingest.Router
	sources     *registry.Sources
	isPipe      func() bool
}

func (p stdinInputPlugin) Name() string { return "stdin" }

// Enabled reports whether stdin input is configured and something is piped in.
func (p stdinInputPlugin) Enabled() bool {
	return p.enabled && p.isPipe != nil && p.isPipe()
}

func (p stdinInputPlugin) Build(ctx context.Context) (NamedLogSource, error) {
	return logsource.NewStdinSource(ctx, p.router, p.sources, logsource.StdinConfig{
		Path:        p.path,
		MaxLineSize: p.maxLineSize,
	}), nil
}

func stdinIsPipe() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
