package realtime

import (
	"encoding/json"
	"errors"
	"testing"
)

// End-to-end: A is a member of project 7, B is not. B's explicit join is
// refused with an error event, and a project broadcast reaches only A.
func TestJoinDeniedAndScopedBroadcast(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")

	env.event(bob, EventJoinProject, JoinProjectPayload{ProjectID: 7})

	bobEvents := received(t, bob)
	if len(bobEvents) != 1 || bobEvents[0].Event != EventError {
		t.Fatalf("non-member join should yield exactly one error event, got %v", bobEvents)
	}
	var e ErrorPayload
	if err := json.Unmarshal(bobEvents[0].Data, &e); err != nil || e.Message == "" {
		t.Fatalf("error event must carry a message: %v %v", err, e)
	}

	env.dispatcher.BroadcastToProject(7, EventTaskUpdate, TaskUpdatePayload{Type: "updated", Task: map[string]any{"id": 1}})

	if names := receivedNames(t, alice); len(names) != 1 || names[0] != EventTaskUpdate {
		t.Errorf("member should receive the broadcast, got %v", names)
	}
	if names := receivedNames(t, bob); len(names) != 0 {
		t.Errorf("refused joiner must not receive project broadcasts, got %v", names)
	}
}

func TestJoinProjectAck(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	env.rooms.LeaveProject(alice, 7)

	env.event(alice, EventJoinProject, JoinProjectPayload{ProjectID: 7})

	events := received(t, alice)
	if len(events) != 1 || events[0].Event != EventJoinedProject {
		t.Fatalf("member join should be acked with joined_project, got %v", events)
	}
	var ack JoinedProjectPayload
	if err := json.Unmarshal(events[0].Data, &ack); err != nil || ack.ProjectID != 7 {
		t.Errorf("ack should name the project: %v %v", err, ack)
	}
}

func TestLeaveProjectEvent(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	env.event(alice, EventLeaveProject, LeaveProjectPayload{ProjectID: 7})

	if env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Error("leave_project should remove the connection from the room")
	}
	if names := receivedNames(t, alice); len(names) != 0 {
		t.Errorf("leave is silent, got %v", names)
	}
}

func TestSendMessageEventValidation(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")

	env.event(alice, EventSendMessage, SendMessagePayload{RecipientID: 2, Content: ""})

	aliceEvents := received(t, alice)
	if len(aliceEvents) != 1 || aliceEvents[0].Event != EventError {
		t.Fatalf("sender should get an error for empty content, got %v", aliceEvents)
	}
	if names := receivedNames(t, bob); len(names) != 0 {
		t.Errorf("recipient must receive nothing, got %v", names)
	}
	if env.messages.count() != 0 {
		t.Error("nothing may be persisted for an invalid send")
	}
}

func TestSendMessageEventStoreFailure(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	env.messages.err = errStoreDown

	env.event(alice, EventSendMessage, SendMessagePayload{RecipientID: 2, Content: "hi"})

	events := received(t, alice)
	if len(events) != 1 || events[0].Event != EventError {
		t.Fatalf("persistence failure should surface as one error event, got %v", events)
	}
}

func TestTypingEventsThroughHub(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")

	env.event(alice, EventTypingStart, TypingPayload{RecipientID: 2})
	env.event(alice, EventTypingStop, TypingPayload{RecipientID: 2})

	names := receivedNames(t, bob)
	if len(names) != 2 || names[0] != EventUserTyping || names[1] != EventUserStoppedTyping {
		t.Errorf("expected typing pair, got %v", names)
	}
}

func TestUnsupportedEvent(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")

	env.event(alice, "reboot_server", nil)

	events := received(t, alice)
	if len(events) != 1 || events[0].Event != EventError {
		t.Errorf("unknown events should be answered with an error, got %v", events)
	}
}

// A join whose membership check finishes after the connection closed must not
// leave the dead connection in the room.
func TestJoinAfterDisconnectIsDiscarded(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	env.rooms.LeaveProject(alice, 7)
	env.disconnect(alice)

	env.event(alice, EventJoinProject, JoinProjectPayload{ProjectID: 7})

	if env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Error("closed connection must not be re-added to rooms")
	}
	if len(env.rooms.Clients(ProjectRoom(7))) != 0 {
		t.Error("project room should stay empty")
	}
}

// A connection whose send buffer overflows is torn down entirely, not just
// muted: it leaves its rooms, frees the presence slot and refuses further
// sends.
func TestSlowConsumerIsDroppedCompletely(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	alice := env.connect(1, "alice", "Alice Doe")

	for i := 0; i < sendBufferSize; i++ {
		if err := alice.SendEvent(EventProjectActivity, map[string]any{"n": i}); err != nil {
			t.Fatalf("send %d should still fit the buffer: %v", i, err)
		}
	}

	if err := alice.SendEvent(EventProjectActivity, map[string]any{"n": sendBufferSize}); err == nil {
		t.Fatal("overflowing send should report the client gone")
	}

	if env.presence.IsOnline(1) {
		t.Error("dropped connection must not count as online")
	}
	if got := len(env.rooms.Clients(ProjectRoom(7))); got != 0 {
		t.Errorf("dropped connection must leave its rooms, got %d members", got)
	}
	if got := len(env.rooms.Clients(UserRoom(1))); got != 0 {
		t.Errorf("dropped connection must leave its private room, got %d", got)
	}
	if err := alice.SendEvent(EventProjectActivity, nil); err == nil {
		t.Error("sends after the drop should fail fast")
	}
}

func TestDisconnectCleansPresenceAndRooms(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	env.directory.addMember(7, 2)

	alice := env.connect(1, "alice", "Alice Doe")
	env.connect(2, "bob", "Bob Roe")

	env.disconnect(alice)

	if env.presence.IsOnline(1) {
		t.Error("disconnect should unregister presence")
	}
	if got := len(env.rooms.Clients(ProjectRoom(7))); got != 1 {
		t.Errorf("project room should keep the remaining member, got %d", got)
	}

	// Delivering to the gone user is a silent no-op.
	env.dispatcher.SendToUser(1, EventProjectActivity, map[string]any{"x": 1})
}

// Sends racing a teardown must fail cleanly, never panic; the send channel is
// never closed, only abandoned.
func TestSendEventAfterDisconnect(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")

	env.disconnect(alice)

	if err := alice.SendEvent(EventProjectActivity, map[string]any{"x": 1}); !errors.Is(err, ErrClientGone) {
		t.Errorf("send to a gone client should report ErrClientGone, got %v", err)
	}
}
