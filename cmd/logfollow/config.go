package main

import (
	"time"

	"github.com/tinytelemetry/logfollow/internal/model"
)

const (
	defaultBindHost     = "127.0.0.1"
	defaultHTTPPort     = model.DefaultHTTPPort
	defaultGatewayPort  = model.DefaultGatewayPort
	defaultStaticRoot   = model.DefaultStaticRoot
	defaultMaxLineSize  = model.DefaultMaxLineSize
	defaultSendBuffer   = model.DefaultSendBuffer
	defaultWriteTimeout = model.DefaultWriteTimeout
	defaultPingInterval = model.DefaultPingInterval
	defaultStdinPath    = model.DefaultStdinPath
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	BindHost         string        `mapstructure:"bind-host"`
	HTTPPort         int           `mapstructure:"port"`
	GatewayPort      int           `mapstructure:"gateway"`
	HTTPAddr         string        `mapstructure:"http-addr"`
	GatewayAddr      string        `mapstructure:"gateway-addr"`
	StaticRoot       string        `mapstructure:"static-root"`
	Debug            bool          `mapstructure:"debug"`
	MaxLineSize      int           `mapstructure:"max-line-size"`
	ViewerSendBuffer int           `mapstructure:"viewer-send-buffer"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
	PingInterval     time.Duration `mapstructure:"ping-interval"`
	SocketPath       string        `mapstructure:"socket-path"`
	StdinEnabled     bool          `mapstructure:"stdin-enabled"`
	StdinPath        string        `mapstructure:"stdin-path"`
	LogFile          string        `mapstructure:"log-file"`
	ConfigPath       string        `mapstructure:"-"` // not from config file
}
