// Package presence tracks which users are connected and through which connections.
package presence

import (
	"slices"
	"sync"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// Registry is the bidirectional connection <-> user mapping.
// A user is online exactly while it has at least one bound connection.
type Registry struct {
	mu     sync.RWMutex
	byUser map[model.UserID]map[model.ConnectionID]struct{}
	byConn map[model.ConnectionID]model.UserID
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[model.UserID]map[model.ConnectionID]struct{}),
		byConn: make(map[model.ConnectionID]model.UserID),
	}
}

// Bind registers conn under user. first reports whether this is the user's
// only live connection, which is when the user has just come online.
// Binding the same pair again is a no-op with first=false.
func (r *Registry) Bind(conn model.ConnectionID, user model.UserID) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byConn[conn]; ok {
		if existing != user {
			return false, model.ErrConnectionBound
		}
		return false, nil
	}

	conns, ok := r.byUser[user]
	if !ok {
		conns = make(map[model.ConnectionID]struct{})
		r.byUser[user] = conns
	}
	conns[conn] = struct{}{}
	r.byConn[conn] = user

	return len(conns) == 1, nil
}

// Unbind removes conn. last reports whether it was the user's final
// connection. Unknown connections return ("", false).
func (r *Registry) Unbind(conn model.ConnectionID) (user model.UserID, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)

	conns := r.byUser[user]
	delete(conns, conn)
	if len(conns) > 0 {
		return user, false
	}
	delete(r.byUser, user)
	return user, true
}

// UserFor returns the user bound to conn
func (r *Registry) UserFor(conn model.ConnectionID) (model.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byConn[conn]
	return user, ok
}

// ConnectionsFor returns the live connections of user, sorted; empty if offline
func (r *Registry) ConnectionsFor(user model.UserID) []model.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]model.ConnectionID, 0, len(r.byUser[user]))
	for conn := range r.byUser[user] {
		conns = append(conns, conn)
	}
	slices.Sort(conns)
	return conns
}

// IsOnline reports whether user has any live connection
func (r *Registry) IsOnline(user model.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user]) > 0
}

// OnlineUsers returns every online user, sorted
func (r *Registry) OnlineUsers() []model.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]model.UserID, 0, len(r.byUser))
	for user := range r.byUser {
		users = append(users, user)
	}
	slices.Sort(users)
	return users
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
