package model

// LogPath identifies a log source. By convention it is a filesystem path,
// but it is compared as an opaque token.
type LogPath string

// Entry is one ingested batch of lines tagged with its source path.
// It is the wire message fanned out to viewers following Log.
type Entry struct {
	Type    string   `json:"type"`
	Entries []string `json:"entries"`
	Log     LogPath  `json:"log"`
}

// Status is a protocol-level status reply sent to a single viewer.
type Status struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// ClientInfo describes one connected viewer for operator surfaces.
type ClientInfo struct {
	ID        string    `json:"id"`
	Following []LogPath `json:"following"`
}
