package realtime

import "sync"

// Registry maps a user to its single live connection. Both directions are
// indexed so login-conflict checks (by user) and disconnects (by connection)
// avoid scanning.
type Registry struct {
	mu     sync.Mutex
	byUser map[int64]string
	byConn map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]string),
		byConn: make(map[string]int64),
	}
}

// Register records connID as the user's live connection. When the user
// already has a different live connection its id is returned so the caller
// can notify it of the forced logout.
func (r *Registry) Register(userID int64, connID string) (displaced string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != connID {
		displaced = old
		delete(r.byConn, old)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return displaced
}

// Unregister removes the mapping that holds connID and returns the user it
// belonged to. Disconnects of unauthenticated connections are a no-op.
func (r *Registry) Unregister(connID string) (userID int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

// RemoveUser drops the user's mapping, returning the connection id it held.
func (r *Registry) RemoveUser(userID int64) (connID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID, ok = r.byUser[userID]
	if !ok {
		return "", false
	}
	delete(r.byUser, userID)
	delete(r.byConn, connID)
	return connID, true
}

// Lookup returns the live connection id for the user.
func (r *Registry) Lookup(userID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
