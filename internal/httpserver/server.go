package httpserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
	"github.com/tinytelemetry/logfollow/internal/viewer"
	"github.com/tinytelemetry/logfollow/internal/wsconn"
)

// ConsoleFile is the operator console served at GET / from the static root.
const ConsoleFile = "console.html"

// DefaultAddr is the HTTP listen address used when none is configured.
var DefaultAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(model.DefaultHTTPPort))

// ServerConfig holds tunable parameters for the HTTP server.
type ServerConfig struct {
	StaticRoot   string
	Debug        bool
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Server provides the operator console, the operator broadcast endpoint and
// the viewer WebSocket endpoint.
type Server struct {
	addr      string
	api       model.OperatorAPI
	clients   *registry.Clients
	conf      ServerConfig
	upgrader  websocket.Upgrader
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP server. Viewer sessions register into clients;
// operator requests go through api.
func NewServer(addr string, api model.OperatorAPI, clients *registry.Clients, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	c := ServerConfig{StaticRoot: model.DefaultStaticRoot}
	if len(conf) > 0 {
		c = conf[0]
		if c.StaticRoot == "" {
			c.StaticRoot = model.DefaultStaticRoot
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    addr,
		api:     api,
		clients: clients,
		conf:    c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // viewers are unauthenticated
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	if s.conf.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if s.conf.Debug {
		r.Use(gin.Logger())
	}
	s.routes(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen: %w", err)
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	return nil
}

// Stop ends all viewer sessions and gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.handleConsole)
	r.POST("/", s.handleBroadcast)
	r.Static("/static", s.conf.StaticRoot)
	r.GET("/ws", s.handleViewer)

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/sources", s.handleSources)
	r.GET("/api/clients", s.handleClients)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleConsole(c *gin.Context) {
	path := filepath.Join(s.conf.StaticRoot, ConsoleFile)
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "console not found")
		return
	}
	c.File(path)
}

// handleBroadcast accepts message and id from the form body or the query string.
func (s *Server) handleBroadcast(c *gin.Context) {
	message, ok := c.GetPostForm("message")
	if !ok {
		message, ok = c.GetQuery("message")
	}
	if !ok {
		c.String(http.StatusBadRequest, "missing message")
		return
	}
	id, ok := c.GetPostForm("id")
	if !ok {
		id = c.Query("id")
	}

	n := s.api.Send(message, id)
	log.Printf("httpserver: operator message queued for %d client(s)", n)
	c.String(http.StatusOK, "message send.")
}

func (s *Server) handleViewer(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("httpserver: websocket upgrade failed: %v", err)
		return
	}

	transport := wsconn.New(conn, wsconn.Config{
		WriteTimeout: s.conf.WriteTimeout,
		PingInterval: s.conf.PingInterval,
	})
	session := viewer.NewSession(transport, s.clients, viewer.Config{SendBuffer: s.conf.SendBuffer})
	if err := session.Run(s.ctx); err != nil {
		log.Printf("httpserver: viewer %s: %v", session.ID(), err)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).String(),
		"sources": len(s.api.ListSources()),
		"clients": len(s.api.ListClients()),
	})
}

func (s *Server) handleSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": s.api.ListSources()})
}

func (s *Server) handleClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": s.api.ListClients()})
}
