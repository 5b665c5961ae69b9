package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

const usage = `usage: logfollowctl [flags] <command> [args]

commands:
  sources                  list log paths with a live pusher
  clients                  list connected viewers and what they follow
  send [-id ID] MESSAGE    send a raw message to one viewer, or to all

flags:
`

func main() {
	var configPath string
	var socketPath string
	var output string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/logfollow/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the logfollow broker")
	flag.StringVar(&output, "o", "", "output format: text, json or yaml")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("logfollowctl - Log Follow Operator CLI\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if output != "" {
		cfg.Output = output
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
