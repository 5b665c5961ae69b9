package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/socketrpc"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var errUsage = errors.New("usage: logfollowctl [flags] sources|clients|send [-id ID] MESSAGE")

// operatorClient is the subset of socketrpc.Client the commands use.
type operatorClient interface {
	ListSources() ([]model.LogPath, error)
	ListClients() ([]model.ClientInfo, error)
	Send(message, id string) (int, error)
}

// run dials the broker and executes one command.
func run(cfg cliConfig, args []string, out io.Writer) error {
	switch cfg.Output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output)
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to logfollow at %s: %w\nIs the broker running? Start it with: logfollow", cfg.SocketPath, err)
	}
	defer client.Close()

	return execute(client, cfg.Output, args, out)
}

func execute(client operatorClient, format string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "sources":
		sources, err := client.ListSources()
		if err != nil {
			return err
		}
		if format == outputText {
			for _, s := range sources {
				fmt.Fprintln(out, s)
			}
			return nil
		}
		return render(out, format, sources)

	case "clients":
		clients, err := client.ListClients()
		if err != nil {
			return err
		}
		if format == outputText {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFOLLOWING")
			for _, c := range clients {
				following := make([]string, len(c.Following))
				for i, p := range c.Following {
					following[i] = string(p)
				}
				fmt.Fprintf(tw, "%s\t%s\n", c.ID, strings.Join(following, ","))
			}
			return tw.Flush()
		}
		return render(out, format, clients)

	case "send":
		fs := flag.NewFlagSet("send", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		id := fs.String("id", "", "viewer id (default: all viewers)")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if fs.NArg() == 0 {
			return errUsage
		}
		message := strings.Join(fs.Args(), " ")

		n, err := client.Send(message, *id)
		if err != nil {
			return err
		}
		if format == outputText {
			fmt.Fprintf(out, "message sent to %d client(s)\n", n)
			return nil
		}
		return render(out, format, map[string]int{"delivered": n})

	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func render(out io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}
