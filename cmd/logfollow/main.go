package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/logfollow/internal/socketrpc"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/logfollow/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("logfollow - Log Follow Broker\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LOGFOLLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("bind-host", defaultBindHost)
	v.SetDefault("port", defaultHTTPPort)
	v.SetDefault("gateway", defaultGatewayPort)
	v.SetDefault("http-addr", "")
	v.SetDefault("gateway-addr", "")
	v.SetDefault("static-root", defaultStaticRoot)
	v.SetDefault("debug", false)
	v.SetDefault("max-line-size", defaultMaxLineSize)
	v.SetDefault("viewer-send-buffer", defaultSendBuffer)
	v.SetDefault("write-timeout", defaultWriteTimeout)
	v.SetDefault("ping-interval", defaultPingInterval)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("stdin-enabled", true)
	v.SetDefault("stdin-path", defaultStdinPath)
	v.SetDefault("log-file", filepath.Join(home, ".local", "state", "logfollow", "logfollow.log"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "logfollow", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.HTTPPort)
	}
	if cfg.GatewayPort <= 0 || cfg.GatewayPort > 65535 {
		return cfg, fmt.Errorf("invalid gateway: %d", cfg.GatewayPort)
	}
	if cfg.MaxLineSize <= 0 {
		return cfg, fmt.Errorf("invalid max-line-size: %d", cfg.MaxLineSize)
	}
	if cfg.ViewerSendBuffer <= 0 {
		return cfg, fmt.Errorf("invalid viewer-send-buffer: %d", cfg.ViewerSendBuffer)
	}

	cfg.StaticRoot = expandHome(home, cfg.StaticRoot)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)
	cfg.LogFile = expandHome(home, cfg.LogFile)

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.HTTPPort))
	}
	if cfg.GatewayAddr == "" {
		cfg.GatewayAddr = net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.GatewayPort))
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
