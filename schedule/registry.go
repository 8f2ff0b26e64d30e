package schedule

import "sync"

// Registry tracks which chat rooms are auditoriums. It implements
// qna.Registry and is safe for concurrent use: the poller replaces the set
// while the engine's ingest path queries it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
}

// NewRegistry seeds the registry with a static channel list (may be empty).
func NewRegistry(channels []string) *Registry {
	r := &Registry{rooms: map[string]struct{}{}}
	r.add(channels)
	return r
}

// IsAuditorium reports whether roomID is a tracked auditorium channel.
func (r *Registry) IsAuditorium(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[ChannelForRoom(roomID)]
	return ok
}

// Add registers more auditorium channels. Rooms are never removed
// mid-conference; a schedule shrink only stops new rooms being added.
func (r *Registry) Add(channels []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(channels)
}

func (r *Registry) add(channels []string) {
	for _, ch := range channels {
		if name := ChannelForRoom(ch); name != "" {
			r.rooms[name] = struct{}{}
		}
	}
}

// Rooms returns the current auditorium channel list.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for ch := range r.rooms {
		out = append(out, ch)
	}
	return out
}
