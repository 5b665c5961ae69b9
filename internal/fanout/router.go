// Package fanout routes ingested entries to the viewers following their path
// and delivers operator messages by viewer id.
package fanout

import (
	"encoding/json"
	"log"

	"github.com/tinytelemetry/logfollow/internal/metrics"
	"github.com/tinytelemetry/logfollow/internal/model"
	"github.com/tinytelemetry/logfollow/internal/registry"
)

// Router delivers messages to clients in a registry. It never mutates the
// registry; it iterates snapshots so registration is never blocked by delivery.
type Router struct {
	clients *registry.Clients
}

// NewRouter creates a Router over clients.
func NewRouter(clients *registry.Clients) *Router {
	return &Router{clients: clients}
}

// Route delivers entry to every client following entry.Log. A failed delivery
// is counted and skipped; it never stops delivery to the other clients and is
// not reported to the caller.
func (r *Router) Route(entry model.Entry) {
	var data []byte
	for _, c := range r.clients.Snapshot() {
		if !c.Follows(entry.Log) {
			continue
		}
		if data == nil {
			var err error
			data, err = json.Marshal(entry)
			if err != nil {
				log.Printf("fanout: failed to marshal entry for %s: %v", entry.Log, err)
				return
			}
		}
		r.deliver("entry", c, data)
	}
}

// Send delivers message unchanged to the client with id, or to every client
// when id is empty. Subscriptions are ignored. It returns the number of
// clients the message was queued for.
func (r *Router) Send(message, id string) int {
	data := []byte(message)

	if id != "" {
		c, ok := r.clients.Get(id)
		if !ok {
			return 0
		}
		if r.deliver("operator", c, data) {
			return 1
		}
		return 0
	}

	sent := 0
	for _, c := range r.clients.Snapshot() {
		if r.deliver("operator", c, data) {
			sent++
		}
	}
	return sent
}

// deliver counts failures without logging them; the client logs its own
// disconnect once instead of once per dropped message.
func (r *Router) deliver(route string, c registry.Client, data []byte) bool {
	if err := c.Send(data); err != nil {
		metrics.DeliveriesTotal.WithLabelValues(route, "failed").Inc()
		return false
	}
	metrics.DeliveriesTotal.WithLabelValues(route, "ok").Inc()
	return true
}
