package model

const (
	// EntryType is the "type" value of fanned-out log entries.
	EntryType = "entry"

	// StatusType is the "type" value of status replies.
	StatusType = "status"

	// StatusError marks a failed viewer command.
	StatusError = "ERROR"
)

// NewEntry wraps a single ingested line for path.
func NewEntry(path LogPath, line string) Entry {
	return Entry{
		Type:    EntryType,
		Entries: []string{line},
		Log:     path,
	}
}

// UndefinedCommandStatus is the reply to an unrecognized or invalid viewer command.
func UndefinedCommandStatus() Status {
	return Status{
		Type:        StatusType,
		Status:      StatusError,
		Description: "Undefined command",
	}
}
