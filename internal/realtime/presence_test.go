package realtime

import "testing"

func TestPresenceRegisterUnregister(t *testing.T) {
	env := newTestEnv()

	if env.presence.IsOnline(1) {
		t.Fatal("user 1 should be offline before connecting")
	}

	alice := env.connect(1, "alice", "Alice Doe")
	if !env.presence.IsOnline(1) {
		t.Error("user 1 should be online after register")
	}
	if got := env.presence.OnlineCount(); got != 1 {
		t.Errorf("expected online count 1, got %d", got)
	}

	env.disconnect(alice)
	if env.presence.IsOnline(1) {
		t.Error("user 1 should be offline after unregister")
	}
	if got := env.presence.OnlineCount(); got != 0 {
		t.Errorf("expected online count 0, got %d", got)
	}
}

func TestPresenceUnregisterIdempotent(t *testing.T) {
	env := newTestEnv()

	alice := env.connect(1, "alice", "Alice Doe")
	env.presence.Unregister(alice)
	env.presence.Unregister(alice)

	if env.presence.IsOnline(1) {
		t.Error("user 1 should stay offline after double unregister")
	}
}

// A second login moves the presence slot to the new connection; the stale
// connection's later disconnect must not mark the user offline.
func TestPresenceStaleHandleProtection(t *testing.T) {
	env := newTestEnv()

	first := env.connect(1, "alice", "Alice Doe")
	second := env.connect(1, "alice", "Alice Doe")

	env.disconnect(first)

	if !env.presence.IsOnline(1) {
		t.Fatal("user 1 must remain online: the newer connection is still up")
	}
	current, ok := env.presence.Get(1)
	if !ok || current != second {
		t.Error("presence slot should point at the newer connection")
	}

	env.disconnect(second)
	if env.presence.IsOnline(1) {
		t.Error("user 1 should be offline once the newer connection closes")
	}
}

func TestPresenceRegisterReportsDisplacedConnection(t *testing.T) {
	env := newTestEnv()

	first := env.connect(1, "alice", "Alice Doe")

	second := &Client{id: "second", userID: 1, username: "alice", send: make(chan []byte, 1)}
	if displaced := env.presence.Register(second); displaced != first {
		t.Errorf("expected first connection to be reported as displaced, got %v", displaced)
	}
}

func TestPresenceOnlineUsers(t *testing.T) {
	env := newTestEnv()

	env.connect(1, "alice", "Alice Doe")
	env.connect(2, "bob", "Bob Roe")
	env.connect(2, "bob", "Bob Roe") // second device, still one user

	users := env.presence.OnlineUsers()
	if len(users) != 2 {
		t.Errorf("expected 2 online users, got %d (%v)", len(users), users)
	}
}
