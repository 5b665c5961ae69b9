package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/logfollow/internal/broker"
	"github.com/tinytelemetry/logfollow/internal/httpserver"
	"github.com/tinytelemetry/logfollow/internal/socketrpc"
	"golang.org/x/sync/errgroup"
)

// services holds everything runServer starts, so it can be torn down in order.
type services struct {
	broker  *broker.Broker
	http    *httpserver.Server
	socket  *socketrpc.Server
	sources []NamedLogSource
}

// startServices brings up the viewer/operator HTTP server, the operator
// socket and the input sources, all sharing one broker.
func startServices(ctx context.Context, cfg appConfig) (*services, error) {
	b := broker.New()
	svc := &services{broker: b}

	svc.http = httpserver.NewServer(cfg.HTTPAddr, b, b.Clients, httpserver.ServerConfig{
		StaticRoot:   cfg.StaticRoot,
		Debug:        cfg.Debug,
		SendBuffer:   cfg.ViewerSendBuffer,
		WriteTimeout: cfg.WriteTimeout,
		PingInterval: cfg.PingInterval,
	})
	if err := svc.http.Start(); err != nil {
		return nil, fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// The operator socket is optional; the HTTP operator endpoint still works without it.
	sock := socketrpc.NewServer(cfg.SocketPath, b)
	if err := sock.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		svc.socket = sock
	}

	plugins := buildInputPlugins(InputPluginConfig{
		GatewayAddr:  cfg.GatewayAddr,
		MaxLineSize:  cfg.MaxLineSize,
		StdinEnabled: cfg.StdinEnabled,
		StdinPath:    cfg.StdinPath,
	}, b.Router, b.Sources)

	for _, plugin := range plugins {
		if !plugin.Enabled() {
			continue
		}
		src, err := plugin.Build(ctx)
		if err != nil {
			log.Printf("Error initializing input plugin %q: %v", plugin.Name(), err)
			continue
		}
		svc.sources = append(svc.sources, src)
	}

	if len(svc.sources) == 0 {
		svc.stop()
		return nil, fmt.Errorf("no input sources available")
	}
	return svc, nil
}

// stop ends inputs first so no new entries are routed, then viewers and the
// operator surfaces.
func (s *services) stop() {
	for _, src := range s.sources {
		src.Stop()
	}
	if s.http != nil {
		if err := s.http.Stop(); err != nil {
			log.Printf("server: http shutdown: %v", err)
		}
	}
	if s.socket != nil {
		s.socket.Stop()
	}
}

// gatewayAddr returns the bound TCP gateway address, or "" when it is not running.
func (s *services) gatewayAddr() string {
	for _, src := range s.sources {
		if a, ok := src.(interface{ Addr() string }); ok {
			return a.Addr()
		}
	}
	return ""
}

func (s *services) hasInput(name string) bool {
	for _, src := range s.sources {
		if src.Name() == name {
			return true
		}
	}
	return false
}

// runServer starts the broker and blocks until a shutdown signal arrives.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger(cfg.LogFile)
	defer cleanupLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := startServices(ctx, cfg)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, svc)

	g, gctx := errgroup.WithContext(ctx)

	// An input ending (stdin EOF) is logged; the broker keeps serving the rest.
	for _, src := range svc.sources {
		src := src
		g.Go(func() error {
			select {
			case <-src.Done():
				log.Printf("server: input %q ended", src.Name())
			case <-gctx.Done():
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	svc.stop()
	signal.Stop(sigCh)

	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// configureRuntimeLogger points the standard logger at path; "-" or any
// failure to open the file means stderr.
func configureRuntimeLogger(path string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if path == "" || path == "-" {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, svc *services) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╔═╗╔═╗╔═╗╔═╗╦  ╦  ╔═╗╦ ╦
    ║  ║ ║║ ╦╠╣ ║ ║║  ║  ║ ║║║║
    ╩═╝╚═╝╚═╝╚  ╚═╝╩═╝╩═╝╚═╝╚╩╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	// Viewers and operators
	lines = append(lines, bold.Render("    Endpoints"))
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("    %s  Console        %s", check, cyan.Render("http://"+svc.http.Addr()+"/")))
	lines = append(lines, fmt.Sprintf("    %s  Viewers        %s", check, cyan.Render("ws://"+svc.http.Addr()+"/ws")))
	if svc.socket != nil {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(svc.socket.Path()))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", dot, dim.Render("unavailable")))
	}
	lines = append(lines, "")

	// Pushers
	lines = append(lines, bold.Render("    Inputs"))
	lines = append(lines, "")

	if addr := svc.gatewayAddr(); addr != "" {
		lines = append(lines, fmt.Sprintf("    %s  TCP Gateway    %s", check, cyan.Render(addr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  TCP Gateway    %s", dot, dim.Render("unavailable")))
	}
	if svc.hasInput("stdin") {
		lines = append(lines, fmt.Sprintf("    %s  Stdin          %s", check, dim.Render("as "+cfg.StdinPath)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Stdin          %s", dot, dim.Render("not piped")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Runtime"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Static Root    %s", check, dim.Render(shortenPath(cfg.StaticRoot))))
	if cfg.Debug {
		lines = append(lines, fmt.Sprintf("    %s  Debug          %s", check, yellow.Render("on")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Debug          %s", dot, dim.Render("off")))
	}

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
