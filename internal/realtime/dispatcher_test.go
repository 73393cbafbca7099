package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"collab-service/internal/models"
)

func TestBroadcastToProjectScopedToRoom(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe") // member of 7
	bob := env.connect(2, "bob", "Bob Roe")       // not a member

	env.dispatcher.BroadcastToProject(7, EventTaskUpdate, TaskUpdatePayload{Type: "updated", Task: map[string]any{"id": 3}})

	if names := receivedNames(t, alice); len(names) != 1 || names[0] != EventTaskUpdate {
		t.Errorf("member should receive exactly the task_update, got %v", names)
	}
	if names := receivedNames(t, bob); len(names) != 0 {
		t.Errorf("non-member should receive nothing, got %v", names)
	}
}

func TestSendToUserNoopWhenOffline(t *testing.T) {
	env := newTestEnv()

	// Nobody connected; must not panic or queue anything.
	env.dispatcher.SendToUser(42, EventProjectActivity, map[string]any{"action": "noop"})

	alice := env.connect(1, "alice", "Alice Doe")
	env.dispatcher.SendToUser(1, EventProjectActivity, map[string]any{"action": "ping"})
	if names := receivedNames(t, alice); len(names) != 1 || names[0] != EventProjectActivity {
		t.Errorf("online user should receive the event, got %v", names)
	}
}

func TestNotifyPersistsBeforePush(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")

	n, err := env.dispatcher.Notify(context.Background(), 1, NotificationDraft{
		Type:    models.NotificationProjectInvitation,
		Content: "You were added to Apollo",
		LinkTo:  "/projects/7",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if n.ID == 0 {
		t.Fatal("returned notification must carry the durable id")
	}

	events := received(t, alice)
	if len(events) != 1 || events[0].Event != EventNewNotification {
		t.Fatalf("expected one new_notification, got %v", events)
	}
	var pushed models.Notification
	if err := json.Unmarshal(events[0].Data, &pushed); err != nil {
		t.Fatalf("bad push payload: %v", err)
	}
	if pushed.ID != n.ID {
		t.Errorf("pushed id %d differs from persisted id %d", pushed.ID, n.ID)
	}
}

// A persistence failure aborts the notification entirely: error to the
// caller, zero pushes.
func TestNotifyNoPushOnPersistenceFailure(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	env.notifications.err = errStoreDown

	if _, err := env.dispatcher.Notify(context.Background(), 1, NotificationDraft{Type: "X", Content: "y"}); err == nil {
		t.Fatal("expected an error when the store is unreachable")
	}
	if names := receivedNames(t, alice); len(names) != 0 {
		t.Errorf("no push may happen without a durable record, got %v", names)
	}
}

func TestNotifyOfflineUserPersistsOnly(t *testing.T) {
	env := newTestEnv()

	n, err := env.dispatcher.Notify(context.Background(), 42, NotificationDraft{Type: "X", Content: "y"})
	if err != nil {
		t.Fatalf("notify for an offline user must still persist: %v", err)
	}
	if n.ID == 0 {
		t.Error("offline notify should still return the stored record")
	}
}

func TestOnlineProjectMembers(t *testing.T) {
	env := newTestEnv()
	env.connect(1, "alice", "Alice Doe")
	env.connect(3, "carol", "Carol Poe")

	online := env.dispatcher.OnlineProjectMembers([]uint{1, 2, 3})
	if len(online) != 2 {
		t.Errorf("expected 2 online members, got %v", online)
	}
	if got := env.dispatcher.OnlineCount(); got != 2 {
		t.Errorf("expected online count 2, got %d", got)
	}
	if !env.dispatcher.IsUserOnline(1) || env.dispatcher.IsUserOnline(2) {
		t.Error("IsUserOnline should reflect the presence registry")
	}
}

func TestEmitProjectActivityPersistsBeforeBroadcast(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	alice := env.connect(1, "alice", "Alice Doe")

	entry, err := env.dispatcher.EmitProjectActivity(context.Background(), 7, 1, "member_added", "bob")
	if err != nil {
		t.Fatalf("emit activity failed: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("returned entry must carry the durable id")
	}

	events := received(t, alice)
	if len(events) != 1 || events[0].Event != EventProjectActivity {
		t.Fatalf("expected one project_activity, got %v", events)
	}
	var pushed models.ActivityLog
	if err := json.Unmarshal(events[0].Data, &pushed); err != nil {
		t.Fatalf("bad push payload: %v", err)
	}
	if pushed.ID != entry.ID || pushed.Action != "member_added" {
		t.Errorf("pushed entry %+v differs from persisted %+v", pushed, entry)
	}
}

func TestEmitProjectActivityNoPushOnPersistenceFailure(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	alice := env.connect(1, "alice", "Alice Doe")
	env.activities.err = errStoreDown

	if _, err := env.dispatcher.EmitProjectActivity(context.Background(), 7, 1, "member_added", "bob"); err == nil {
		t.Fatal("expected an error when the store is unreachable")
	}
	if names := receivedNames(t, alice); len(names) != 0 {
		t.Errorf("no broadcast may happen without a durable entry, got %v", names)
	}
}

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ uint, event string, _ any) error {
	p.published = append(p.published, event)
	return nil
}

func TestBroadcastMirrorsToActivityStream(t *testing.T) {
	env := newTestEnv()
	pub := &recordingPublisher{}
	done := make(chan struct{})
	env.dispatcher.stream = notifyingPublisher{pub, done}

	env.dispatcher.BroadcastToProject(7, EventProjectActivity, map[string]any{"action": "created"})
	<-done

	if len(pub.published) != 1 || pub.published[0] != EventProjectActivity {
		t.Errorf("broadcast should be mirrored once to the stream, got %v", pub.published)
	}
}

type notifyingPublisher struct {
	inner *recordingPublisher
	done  chan struct{}
}

func (p notifyingPublisher) Publish(ctx context.Context, projectID uint, event string, payload any) error {
	defer close(p.done)
	return p.inner.Publish(ctx, projectID, event, payload)
}
