package registry

import (
	"sort"
	"sync"

	"github.com/tinytelemetry/logfollow/internal/model"
)

// Client is the view of a viewer session the registry and router need.
type Client interface {
	ID() string
	Follows(path model.LogPath) bool
	Following() []model.LogPath
	Send(data []byte) error
}

// Clients tracks connected viewers keyed by id.
type Clients struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewClients creates an empty client registry.
func NewClients() *Clients {
	return &Clients{clients: make(map[string]Client)}
}

// Add registers c. It reports false if a client with the same id is
// already registered, in which case the registry is unchanged.
func (r *Clients) Add(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[c.ID()]; exists {
		return false
	}
	r.clients[c.ID()] = c
	return true
}

// Remove deregisters the client with id. It reports whether it was present.
func (r *Clients) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Get returns the client registered under id.
func (r *Clients) Get(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Len returns the number of registered clients.
func (r *Clients) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns the registered clients at the time of the call. Callers
// iterate the copy so delivery never runs under the registry lock.
func (r *Clients) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// ListClients describes every registered client, ordered by id.
func (r *Clients) ListClients() []model.ClientInfo {
	snapshot := r.Snapshot()
	out := make([]model.ClientInfo, 0, len(snapshot))
	for _, c := range snapshot {
		out = append(out, model.ClientInfo{ID: c.ID(), Following: c.Following()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
