package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrNotProjectMember = errors.New("not a project member")

// UserRoom is the private per-user room key. Every authenticated connection
// is placed in exactly one.
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ProjectRoom is the shared per-project room key.
func ProjectRoom(projectID uint) string {
	return fmt.Sprintf("project:%d", projectID)
}

// RoomRouter places connections into named broadcast rooms and enforces join
// authorization against the membership directory. Rooms exist only as this
// in-memory relation; membership is recomputed from the directory on every
// connect and re-checked on every explicit join.
type RoomRouter struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	byConn  map[*Client]map[string]bool // reverse index for disconnect cleanup
	dir     MembershipDirectory
	logger  *slog.Logger
}

func NewRoomRouter(dir MembershipDirectory, logger *slog.Logger) *RoomRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomRouter{
		rooms:  make(map[string]map[*Client]bool),
		byConn: make(map[*Client]map[string]bool),
		dir:    dir,
		logger: logger,
	}
}

func (r *RoomRouter) join(client *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]bool)
	}
	r.rooms[room][client] = true

	if r.byConn[client] == nil {
		r.byConn[client] = make(map[string]bool)
	}
	r.byConn[client][room] = true
}

func (r *RoomRouter) leave(client *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.byConn[client]; ok {
		delete(rooms, room)
	}
}

// JoinUserRoom joins the connection to its private room, unconditionally.
func (r *RoomRouter) JoinUserRoom(client *Client) {
	r.join(client, UserRoom(client.userID))
}

// AutoJoinProjects queries the directory for every project the user belongs
// to and joins each project room. A directory failure does not fail the
// connection: the user still gets private-room delivery (degraded mode).
func (r *RoomRouter) AutoJoinProjects(ctx context.Context, client *Client) {
	projectIDs, err := r.dir.ProjectIDs(ctx, client.userID)
	if err != nil {
		r.logger.Error("auto-join project lookup failed, continuing with private room only",
			"userID", client.userID, "connID", client.id, "error", err)
		return
	}
	for _, id := range projectIDs {
		r.join(client, ProjectRoom(id))
	}
}

// JoinProject re-checks membership against the directory at call time, not at
// connect time, before joining. A member removed mid-session must not regain
// room access by re-joining.
func (r *RoomRouter) JoinProject(ctx context.Context, client *Client, projectID uint) error {
	ok, err := r.dir.IsMember(ctx, projectID, client.userID)
	if err != nil {
		return fmt.Errorf("membership check for project %d: %w", projectID, err)
	}
	if !ok {
		return ErrNotProjectMember
	}
	r.join(client, ProjectRoom(projectID))
	return nil
}

// LeaveProject is unconditional; leaving is always safe.
func (r *RoomRouter) LeaveProject(client *Client, projectID uint) {
	r.leave(client, ProjectRoom(projectID))
}

// RemoveClient detaches the connection from every room it was joined to.
// Called once on disconnect so no caller has to track rooms manually.
func (r *RoomRouter) RemoveClient(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.byConn[client] {
		if members, ok := r.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.byConn, client)
}

// Clients returns a snapshot of the room's current members. Safe to range
// over while other connections join and leave.
func (r *RoomRouter) Clients(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}
	return members
}

// InRoom reports whether the connection is currently in the room.
func (r *RoomRouter) InRoom(client *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byConn[client][room]
}
