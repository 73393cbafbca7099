package realtime

import "sync"

// PresenceRegistry tracks which users are currently reachable and through
// which connection. It owns both directions of the mapping: user id to the
// active client, and connection id back to the user id.
//
// Last connect wins: registering a second connection for a user displaces the
// first one from the online slot. Unregister compares connection ids before
// removing, so the disconnect of a displaced (stale) connection never marks
// the user offline.
type PresenceRegistry struct {
	mu    sync.RWMutex
	users map[uint]*Client  // user id -> active client
	conns map[string]uint   // connection id -> user id
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		users: make(map[uint]*Client),
		conns: make(map[string]uint),
	}
}

// Register records the client as the user's active connection. It returns the
// displaced client when the user already had one, nil otherwise. The caller
// decides what to do with the displaced connection; it stays open and keeps
// its room memberships until it disconnects on its own.
func (p *PresenceRegistry) Register(client *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	displaced := p.users[client.userID]
	p.users[client.userID] = client
	p.conns[client.id] = client.userID
	return displaced
}

// Unregister removes the mapping only if the stored client is still this
// exact connection. Idempotent: unregistering twice, or unregistering a
// connection that was displaced by a newer one, is a no-op on the online slot.
func (p *PresenceRegistry) Unregister(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.conns, client.id)
	if current, ok := p.users[client.userID]; ok && current == client {
		delete(p.users, client.userID)
	}
}

// Get returns the user's active client, if any.
func (p *PresenceRegistry) Get(userID uint) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	client, ok := p.users[userID]
	return client, ok
}

func (p *PresenceRegistry) IsOnline(userID uint) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.users[userID]
	return ok
}

func (p *PresenceRegistry) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.users)
}

// OnlineUsers returns a snapshot of all user ids with an active connection.
func (p *PresenceRegistry) OnlineUsers() []uint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]uint, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	return ids
}
