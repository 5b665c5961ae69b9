// Package broker wires the source registry, client registry and fan-out
// router into one handle shared by the ingest and viewer front ends.
package broker

import (
	"github.com/tinytelemetry/logfollow/internal/fanout"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

var _ model.OperatorAPI = (*Broker)(nil)

// Broker owns the shared registries for one process.
type Broker struct {
	Sources *registry.Sources
	Clients *registry.Clients
	Router  *fanout.Router
}

// New creates a Broker with empty registries.
func New() *Broker {
	clients := registry.NewClients()
	return &Broker{
		Sources: registry.NewSources(),
		Clients: clients,
		Router:  fanout.NewRouter(clients),
	}
}

func (b *Broker) ListSources() []model.LogPath    { return b.Sources.ListSources() }
func (b *Broker) ListClients() []model.ClientInfo { return b.Clients.ListClients() }
func (b *Broker) Send(message, id string) int     { return b.Router.Send(message, id) }
