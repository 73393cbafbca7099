package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// How long one client event may spend on store and directory calls.
const eventTimeout = 10 * time.Second

// StatusMirror copies online/offline transitions into an external cache so
// REST handlers can answer presence queries without reaching into the hub.
// Mirror failures are logged and otherwise ignored; the in-memory registry
// stays authoritative.
type StatusMirror interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// Hub owns the connection lifecycle: it registers authenticated clients into
// the presence registry and their private room, routes upstream events, and
// tears everything down on disconnect. Client events are handled on the
// connection's own read goroutine, so a slow store call for one connection
// never stalls delivery to the others; events within one connection keep
// their arrival order.
type Hub struct {
	presence       *PresenceRegistry
	rooms          *RoomRouter
	dispatcher     *EventDispatcher
	directMessages *DirectMessageChannel
	status         StatusMirror // optional

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewHub(presence *PresenceRegistry, rooms *RoomRouter, dispatcher *EventDispatcher, directMessages *DirectMessageChannel, status StatusMirror, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		presence:       presence,
		rooms:          rooms,
		dispatcher:     dispatcher,
		directMessages: directMessages,
		status:         status,
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger,
	}
}

func (h *Hub) Dispatcher() *EventDispatcher { return h.dispatcher }

// Run processes connect/disconnect requests until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.logger.Info("realtime hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// Attach hands an authenticated connection to the hub: presence and private
// room via the lifecycle loop, then project rooms from the directory, then
// the pumps. Success is implicit; the client infers it from subsequent
// events.
func (h *Hub) Attach(ctx context.Context, client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.close()
		return
	}

	h.rooms.AutoJoinProjects(ctx, client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) registerClient(client *Client) {
	if displaced := h.presence.Register(client); displaced != nil {
		// Last connect wins for the online slot; the old connection stays in
		// its rooms until it disconnects itself.
		h.logger.Info("user reconnected, presence moved to new connection",
			"userID", client.userID, "oldConnID", displaced.id, "newConnID", client.id)
	}
	h.rooms.JoinUserRoom(client)

	h.logger.Info("client connected", "connID", client.id, "userID", client.userID, "username", client.username)
	h.mirrorStatus(client.userID, true)
}

// dropClient tears a connection down from a sender's goroutine, for clients
// found unresponsive outside the read pump. Every step is idempotent, so it
// is safe against the read pump's own unregister racing in.
func (h *Hub) dropClient(client *Client) {
	client.close()
	h.unregisterClient(client)
}

func (h *Hub) unregisterClient(client *Client) {
	if !client.markUnregistered() {
		return
	}
	client.close()
	h.rooms.RemoveClient(client)
	h.presence.Unregister(client)

	h.logger.Info("client disconnected", "connID", client.id, "userID", client.userID)

	// Only mirror offline when no newer connection holds the presence slot.
	if !h.presence.IsOnline(client.userID) {
		h.mirrorStatus(client.userID, false)
	}
}

func (h *Hub) mirrorStatus(userID uint, online bool) {
	if h.status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.status.SetUserOnline(ctx, userID)
	} else {
		err = h.status.SetUserOffline(ctx, userID)
	}
	if err != nil {
		h.logger.Warn("presence mirror update failed", "userID", userID, "online", online, "error", err)
	}
}

// handleEvent routes one upstream event. Every failure surfaces to the
// sending connection as the uniform error event; the connection stays open.
func (h *Hub) handleEvent(client *Client, env *Envelope) {
	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	switch env.Event {
	case EventJoinProject:
		h.handleJoinProject(ctx, client, env.Data)

	case EventLeaveProject:
		var p LeaveProjectPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ProjectID == 0 {
			client.sendError("project_id is required")
			return
		}
		h.rooms.LeaveProject(client, p.ProjectID)

	case EventSendMessage:
		h.handleSendMessage(ctx, client, env.Data)

	case EventTypingStart, EventTypingStop:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		if env.Event == EventTypingStart {
			h.directMessages.TypingStart(client, p.RecipientID)
		} else {
			h.directMessages.TypingStop(client, p.RecipientID)
		}

	default:
		client.sendError("unsupported event: " + env.Event)
	}
}

func (h *Hub) handleJoinProject(ctx context.Context, client *Client, data json.RawMessage) {
	var p JoinProjectPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == 0 {
		client.sendError("project_id is required")
		return
	}

	if err := h.rooms.JoinProject(ctx, client, p.ProjectID); err != nil {
		if errors.Is(err, ErrNotProjectMember) {
			client.sendError("Not a project member")
		} else {
			h.logger.Error("join project failed", "connID", client.id, "userID", client.userID, "projectID", p.ProjectID, "error", err)
			client.sendError("Failed to join project")
		}
		return
	}

	// The membership check may have outlived the connection; a closed client
	// must not linger in the room.
	if client.isClosed() {
		h.rooms.RemoveClient(client)
		return
	}
	_ = client.SendEvent(EventJoinedProject, JoinedProjectPayload{ProjectID: p.ProjectID})
}

func (h *Hub) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		client.sendError("Recipient ID and content are required")
		return
	}

	if _, err := h.directMessages.Send(ctx, client, p.RecipientID, p.Content); err != nil {
		switch {
		case errors.Is(err, ErrMissingRecipient), errors.Is(err, ErrEmptyContent):
			client.sendError("Recipient ID and content are required")
		default:
			h.logger.Error("direct message failed", "connID", client.id, "userID", client.userID, "error", err)
			client.sendError("Failed to send message")
		}
	}
}
