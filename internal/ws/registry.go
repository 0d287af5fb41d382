package ws

// registry owns the set of live connections keyed by connection id.
// Not safe on its own: every method is called with the Hub mutex held.
type registry struct {
	conns map[string]*Conn
}

func newRegistry() registry {
	return registry{conns: make(map[string]*Conn)}
}

func (r *registry) add(c *Conn) {
	r.conns[c.id] = c
}

// remove reports whether the id was present. Idempotent.
func (r *registry) remove(id string) (*Conn, bool) {
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return c, ok
}

func (r *registry) get(id string) (*Conn, bool) {
	c, ok := r.conns[id]
	return c, ok
}

func (r *registry) forEach(fn func(*Conn)) {
	for _, c := range r.conns {
		fn(c)
	}
}

func (r *registry) len() int {
	return len(r.conns)
}
