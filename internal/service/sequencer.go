package service

// generation orders the responses of one polling stream. Every fetch takes a
// sequence number when it is issued; a response is applied only when it is
// newer than the last applied one and newer than the floor set by the last
// confirmed mutation. Callers hold SessionSync.mu.
type generation struct {
	issued  uint64
	applied uint64
	floor   uint64
}

// next reserves the sequence number of a fetch about to be sent.
func (g *generation) next() uint64 {
	g.issued++
	return g.issued
}

// accept reports whether the response of fetch seq may be applied and
// records it as the latest applied response.
func (g *generation) accept(seq uint64) bool {
	if seq <= g.applied || seq <= g.floor {
		return false
	}
	g.applied = seq
	return true
}

// barrier invalidates every fetch issued so far. It is raised when a
// mutation result is written to local state, because those fetches may have
// been answered before the server applied the mutation.
func (g *generation) barrier() {
	g.floor = g.issued
}
