package realtime

import (
	"context"
	"errors"
	"testing"
)

func TestAutoJoinOnConnect(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	env.directory.addMember(9, 1)

	alice := env.connect(1, "alice", "Alice Doe")

	if !env.rooms.InRoom(alice, UserRoom(1)) {
		t.Error("connection should always be in its private user room")
	}
	if !env.rooms.InRoom(alice, ProjectRoom(7)) || !env.rooms.InRoom(alice, ProjectRoom(9)) {
		t.Error("connection should be auto-joined to every membership project room")
	}
	if env.rooms.InRoom(alice, ProjectRoom(8)) {
		t.Error("connection must not be in rooms of projects it is no member of")
	}
}

// A directory outage during connect degrades to private-room-only delivery;
// the connection itself must survive.
func TestAutoJoinDegradedOnDirectoryFailure(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	env.directory.err = errors.New("directory down")

	alice := env.connect(1, "alice", "Alice Doe")

	if !env.rooms.InRoom(alice, UserRoom(1)) {
		t.Error("private room join must not depend on the directory")
	}
	if env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Error("no project rooms should be joined when the directory is unavailable")
	}
}

// Membership is authoritative at call time: revoking it after connect must
// make an explicit re-join fail.
func TestJoinProjectRechecksMembership(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	env.rooms.LeaveProject(alice, 7)
	env.directory.removeMember(7, 1)

	err := env.rooms.JoinProject(context.Background(), alice, 7)
	if !errors.Is(err, ErrNotProjectMember) {
		t.Fatalf("expected ErrNotProjectMember, got %v", err)
	}
	if env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Error("refused join must not place the connection in the room")
	}
}

func TestJoinAndLeaveProject(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	env.rooms.LeaveProject(alice, 7)
	if env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Fatal("leave should remove the connection from the room")
	}

	if err := env.rooms.JoinProject(context.Background(), alice, 7); err != nil {
		t.Fatalf("join should succeed for a member: %v", err)
	}
	if !env.rooms.InRoom(alice, ProjectRoom(7)) {
		t.Error("join should place the connection in the room")
	}

	// Leaving a room the connection never joined is safe.
	env.rooms.LeaveProject(alice, 42)
}

func TestRemoveClientCleansEveryRoom(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	env.directory.addMember(9, 1)

	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")
	env.directory.addMember(7, 2)
	_ = env.rooms.JoinProject(context.Background(), bob, 7)

	env.disconnect(alice)

	for _, room := range []string{UserRoom(1), ProjectRoom(7), ProjectRoom(9)} {
		for _, c := range env.rooms.Clients(room) {
			if c == alice {
				t.Errorf("disconnected client still present in %s", room)
			}
		}
	}
	if len(env.rooms.Clients(ProjectRoom(7))) != 1 {
		t.Error("other members must keep their room placement")
	}
}

func TestRoomClientsSnapshot(t *testing.T) {
	env := newTestEnv()
	env.directory.addMember(7, 1)
	env.directory.addMember(7, 2)

	env.connect(1, "alice", "Alice Doe")
	env.connect(2, "bob", "Bob Roe")

	members := env.rooms.Clients(ProjectRoom(7))
	if len(members) != 2 {
		t.Errorf("expected 2 members in project room, got %d", len(members))
	}
	if got := env.rooms.Clients(ProjectRoom(404)); len(got) != 0 {
		t.Errorf("unknown room should be empty, got %d members", len(got))
	}
}
