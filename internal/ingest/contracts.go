package ingest

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/logfollow/internal/model"
)

// Router receives every entry a streaming session produces.
type Router interface {
	Route(entry model.Entry)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(model.Entry)

// Route calls f(entry).
func (f RouterFunc) Route(entry model.Entry) { f(entry) }

// ParseHeader extracts the verb and log path from a pusher header line of the
// form "<verb> <path> [...]". Tokens after the path are ignored.
func ParseHeader(line string) (verb string, path model.LogPath, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%w: %q", model.ErrMalformedHeader, line)
	}
	return fields[0], model.LogPath(fields[1]), nil
}
