package registry

// Registry tracks live connections and their optional display names. A
// connection with no name is unregistered and may not create or join rooms.
// Registry is not safe for concurrent use; the hub serializes access to it.
type Registry struct {
	order []string
	conns map[string]struct{}
	names map[string]string
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]struct{}),
		names: make(map[string]string),
	}
}

// Add starts tracking a connection with no display name. Adding an already
// tracked connection is a no-op.
func (r *Registry) Add(id string) {
	if _, ok := r.conns[id]; ok {
		return
	}
	r.conns[id] = struct{}{}
	r.order = append(r.order, id)
}

func (r *Registry) Has(id string) bool {
	_, ok := r.conns[id]
	return ok
}

// SetName stores or overwrites the display name. Names are not unique across
// connections.
func (r *Registry) SetName(id, name string) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	r.names[id] = name
}

func (r *Registry) Name(id string) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.names[id]
	return ok
}

// Remove erases all trace of the connection: tracking entry and display name.
func (r *Registry) Remove(id string) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	delete(r.names, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// IDs returns tracked connection IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.conns)
}
