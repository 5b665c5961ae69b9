package viewer

import (
	"encoding/json"
	"fmt"

	"github.com/tinytelemetry/logfollow/internal/model"
)

// Command is an inbound viewer command: Follow, Unfollow or Unknown.
type Command interface{ isCommand() }

// Follow adds Logs to the follow set.
type Follow struct {
	Logs []model.LogPath
}

// Unfollow removes Logs from the follow set.
type Unfollow struct {
	Logs []model.LogPath
}

// Unknown is any message that is not a well-formed follow or unfollow.
// Err wraps model.ErrUnknownCommand.
type Unknown struct {
	Name string
	Err  error
}

func (Follow) isCommand()   {}
func (Unfollow) isCommand() {}
func (Unknown) isCommand()  {}

const (
	commandFollow   = "follow"
	commandUnfollow = "unfollow"
)

// Decode parses one inbound message. It never fails; malformed input
// decodes to Unknown.
func Decode(data []byte) Command {
	var msg struct {
		Command json.RawMessage `json:"command"`
		Logs    json.RawMessage `json:"logs"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return unknown("", "invalid message: %v", err)
	}

	var name string
	if err := json.Unmarshal(msg.Command, &name); err != nil {
		return unknown("", "command must be a string")
	}

	switch name {
	case commandFollow, commandUnfollow:
	default:
		return unknown(name, "unrecognized command %q", name)
	}

	var logs []model.LogPath
	if len(msg.Logs) == 0 || string(msg.Logs) == "null" {
		return unknown(name, "%s requires logs", name)
	}
	if err := json.Unmarshal(msg.Logs, &logs); err != nil {
		return unknown(name, "logs must be a list of strings")
	}

	if name == commandFollow {
		return Follow{Logs: logs}
	}
	return Unfollow{Logs: logs}
}

func unknown(name, format string, args ...any) Unknown {
	return Unknown{
		Name: name,
		Err:  fmt.Errorf("%w: %s", model.ErrUnknownCommand, fmt.Sprintf(format, args...)),
	}
}
