package model

// SourceLister reports the log paths currently being ingested.
type SourceLister interface {
	ListSources() []LogPath
}

// ClientLister reports the currently connected viewers.
type ClientLister interface {
	ListClients() []ClientInfo
}

// Sender delivers a raw operator message to the viewer with the given id,
// or to every viewer when id is empty. It returns the number of viewers
// the message was queued for.
type Sender interface {
	Send(message, id string) int
}

// OperatorAPI is the unified contract for operator surfaces (HTTP and socket RPC).
type OperatorAPI interface {
	SourceLister
	ClientLister
	Sender
}
