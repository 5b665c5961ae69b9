package registry

import (
	"sort"
	"sync"

	"github.com/tinytelemetry/logfollow/internal/model"
)

// Sources tracks the log paths with at least one streaming pusher.
// Membership is reference counted so that two pushers sharing a path keep it
// active until both have disconnected.
type Sources struct {
	mu    sync.RWMutex
	paths map[model.LogPath]int
}

// NewSources creates an empty source registry.
func NewSources() *Sources {
	return &Sources{paths: make(map[model.LogPath]int)}
}

// Acquire marks path as held by one more session. It reports whether the
// path became active with this call.
func (s *Sources) Acquire(path model.LogPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path]++
	return s.paths[path] == 1
}

// Release drops one session's hold on path. It reports whether the path is
// no longer active. Releasing an unknown path is a no-op.
func (s *Sources) Release(path model.LogPath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.paths[path]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(s.paths, path)
		return true
	}
	s.paths[path] = n - 1
	return false
}

// Active reports whether path currently has a streaming pusher.
func (s *Sources) Active(path model.LogPath) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok
}

// Holders returns the number of sessions holding path.
func (s *Sources) Holders(path model.LogPath) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths[path]
}

// Len returns the number of active paths.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// ListSources returns the active paths in lexical order.
func (s *Sources) ListSources() []model.LogPath {
	s.mu.RLock()
	out := make([]model.LogPath, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
