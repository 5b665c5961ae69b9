package logsource

// LogSource is a unified interface for all pusher inputs (TCP, stdin).
type LogSource interface {
	Stop()                 // graceful shutdown; releases every path the source holds
	Done() <-chan struct{} // closed once the source has fully stopped
	Name() string          // "tcp", "stdin"
}
