package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.OperatorAPI over a Unix domain socket.
//
//   Method        Params                          Result
//   ───────────   ─────────────────────────────   ─────────────────────
//   ListSources   (none)                          []string
//   ListClients   (none)                          []ClientInfo
//   Send          {Message: string, ID: string}   int (clients queued)
//
// An empty ID in Send addresses every connected viewer.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// SendParams are the parameters of the Send method.
type SendParams struct {
	Message string
	ID      string
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/logfollow/logfollow.sock, falling back to
// ~/.local/state/logfollow/logfollow.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "logfollow", "logfollow.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/logfollow.sock"
	}
	return filepath.Join(home, ".local", "state", "logfollow", "logfollow.sock")
}
