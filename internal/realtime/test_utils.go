package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"collab-service/internal/models"

	"github.com/google/uuid"
)

// fakeDirectory is an in-memory MembershipDirectory for tests. Membership can
// be changed mid-test to model revocation after connect.
type fakeDirectory struct {
	mu      sync.Mutex
	members map[uint]map[uint]bool // projectID -> userID set
	err     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{members: make(map[uint]map[uint]bool)}
}

func (d *fakeDirectory) addMember(projectID, userID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[projectID] == nil {
		d.members[projectID] = make(map[uint]bool)
	}
	d.members[projectID][userID] = true
}

func (d *fakeDirectory) removeMember(projectID, userID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members[projectID], userID)
}

func (d *fakeDirectory) ProjectIDs(_ context.Context, userID uint) ([]uint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var ids []uint
	for projectID, users := range d.members {
		if users[userID] {
			ids = append(ids, projectID)
		}
	}
	return ids, nil
}

func (d *fakeDirectory) IsMember(_ context.Context, projectID, userID uint) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	return d.members[projectID][userID], nil
}

// fakeMessageStore records saved direct messages and assigns sequential ids.
type fakeMessageStore struct {
	mu    sync.Mutex
	saved []*models.DirectMessage
	err   error
}

func (s *fakeMessageStore) SaveDirectMessage(_ context.Context, msg *models.DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	msg.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, msg)
	return nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fakeNotificationStore does the same for notifications.
type fakeNotificationStore struct {
	mu    sync.Mutex
	saved []*models.Notification
	err   error
}

func (s *fakeNotificationStore) SaveNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	n.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, n)
	return nil
}

// fakeActivityStore records persisted feed entries.
type fakeActivityStore struct {
	mu    sync.Mutex
	saved []*models.ActivityLog
	err   error
}

func (s *fakeActivityStore) SaveActivity(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	entry.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, entry)
	return nil
}

var errStoreDown = errors.New("store unreachable")

// testEnv wires a hub with fakes. Tests drive lifecycle through the
// unexported register/unregister methods directly so nothing depends on the
// Run loop's scheduling.
type testEnv struct {
	hub           *Hub
	presence      *PresenceRegistry
	rooms         *RoomRouter
	dispatcher    *EventDispatcher
	directory     *fakeDirectory
	messages      *fakeMessageStore
	notifications *fakeNotificationStore
	activities    *fakeActivityStore
}

func newTestEnv() *testEnv {
	logger := slog.Default()
	directory := newFakeDirectory()
	messages := &fakeMessageStore{}
	notifications := &fakeNotificationStore{}
	activities := &fakeActivityStore{}

	presence := NewPresenceRegistry()
	rooms := NewRoomRouter(directory, logger)
	dispatcher := NewEventDispatcher(presence, rooms, notifications, activities, nil, logger)
	dm := NewDirectMessageChannel(dispatcher, presence, messages)
	hub := NewHub(presence, rooms, dispatcher, dm, nil, logger)

	return &testEnv{
		hub:           hub,
		presence:      presence,
		rooms:         rooms,
		dispatcher:    dispatcher,
		directory:     directory,
		messages:      messages,
		notifications: notifications,
		activities:    activities,
	}
}

// connect registers a fake connection for the user and derives its rooms,
// the same sequence Attach performs for a real websocket.
func (e *testEnv) connect(userID uint, username, fullName string) *Client {
	client := &Client{
		id:       uuid.New().String(),
		userID:   userID,
		username: username,
		fullName: fullName,
		hub:      e.hub,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
	e.hub.registerClient(client)
	e.rooms.AutoJoinProjects(context.Background(), client)
	return client
}

func (e *testEnv) disconnect(client *Client) {
	client.close()
	e.hub.unregisterClient(client)
}

// event sends an upstream envelope through the hub as if it was read from
// the wire.
func (e *testEnv) event(client *Client, event string, payload any) {
	data, _ := json.Marshal(payload)
	e.hub.handleEvent(client, &Envelope{Event: event, Data: data})
}

// received drains and decodes every frame buffered on the client.
func received(t *testing.T, client *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-client.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("undecodable frame: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

// receivedNames is received reduced to event names, for order assertions.
func receivedNames(t *testing.T, client *Client) []string {
	t.Helper()
	events := received(t, client)
	names := make([]string, len(events))
	for i, env := range events {
		names[i] = env.Event
	}
	return names
}
