package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"collab-service/internal/models"
)

func TestDirectMessageDelivery(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")

	record, err := env.hub.directMessages.Send(context.Background(), alice, 2, "hi")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("stored record must carry the generated id")
	}

	// Recipient gets new_message with sender display fields.
	bobEvents := received(t, bob)
	if len(bobEvents) != 1 || bobEvents[0].Event != EventNewMessage {
		t.Fatalf("recipient should get exactly one new_message, got %v", bobEvents)
	}
	var got models.DirectMessageResponse
	if err := json.Unmarshal(bobEvents[0].Data, &got); err != nil {
		t.Fatalf("bad new_message payload: %v", err)
	}
	if got.SenderUsername != "alice" || got.SenderName != "Alice Doe" {
		t.Errorf("sender display fields missing: %+v", got)
	}
	if got.Content != "hi" || got.SenderID != 1 || got.RecipientID != 2 {
		t.Errorf("unexpected message record: %+v", got)
	}

	// Sender gets message_sent with the same generated id.
	aliceEvents := received(t, alice)
	if len(aliceEvents) != 1 || aliceEvents[0].Event != EventMessageSent {
		t.Fatalf("sender should get exactly one message_sent, got %v", aliceEvents)
	}
	var confirmation models.DirectMessageResponse
	if err := json.Unmarshal(aliceEvents[0].Data, &confirmation); err != nil {
		t.Fatalf("bad message_sent payload: %v", err)
	}
	if confirmation.ID != got.ID {
		t.Errorf("confirmation id %d differs from recipient's %d", confirmation.ID, got.ID)
	}
}

func TestDirectMessageValidation(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")

	t.Run("EmptyContent", func(t *testing.T) {
		_, err := env.hub.directMessages.Send(context.Background(), alice, 2, "")
		if !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("expected ErrEmptyContent, got %v", err)
		}
	})

	t.Run("MissingRecipient", func(t *testing.T) {
		_, err := env.hub.directMessages.Send(context.Background(), alice, 0, "hi")
		if !errors.Is(err, ErrMissingRecipient) {
			t.Fatalf("expected ErrMissingRecipient, got %v", err)
		}
	})

	if env.messages.count() != 0 {
		t.Error("invalid messages must not be persisted")
	}
	if names := receivedNames(t, bob); len(names) != 0 {
		t.Errorf("recipient must receive nothing for invalid sends, got %v", names)
	}
}

func TestDirectMessageNoPartialDeliveryOnStoreFailure(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")
	bob := env.connect(2, "bob", "Bob Roe")
	env.messages.err = errStoreDown

	if _, err := env.hub.directMessages.Send(context.Background(), alice, 2, "hi"); err == nil {
		t.Fatal("expected an error when the store is unreachable")
	}
	if names := receivedNames(t, bob); len(names) != 0 {
		t.Errorf("recipient must not see a message that failed to persist, got %v", names)
	}
	if names := receivedNames(t, alice); len(names) != 0 {
		t.Errorf("no confirmation without persistence, got %v", names)
	}
}

func TestTypingIndicators(t *testing.T) {
	env := newTestEnv()
	alice := env.connect(1, "alice", "Alice Doe")

	t.Run("RecipientOffline", func(t *testing.T) {
		// Silent drop: no event to anyone, no error either.
		env.hub.directMessages.TypingStart(alice, 2)
		if names := receivedNames(t, alice); len(names) != 0 {
			t.Errorf("sender must not get an error for offline typing, got %v", names)
		}
	})

	t.Run("RecipientOnline", func(t *testing.T) {
		bob := env.connect(2, "bob", "Bob Roe")

		env.hub.directMessages.TypingStart(alice, 2)
		env.hub.directMessages.TypingStop(alice, 2)

		events := received(t, bob)
		if len(events) != 2 || events[0].Event != EventUserTyping || events[1].Event != EventUserStoppedTyping {
			t.Fatalf("expected user_typing then user_stopped_typing, got %v", events)
		}
		var p TypingEventPayload
		if err := json.Unmarshal(events[0].Data, &p); err != nil {
			t.Fatalf("bad typing payload: %v", err)
		}
		if p.UserID != 1 || p.Username != "alice" {
			t.Errorf("typing payload should identify the sender, got %+v", p)
		}
	})

	if env.messages.count() != 0 {
		t.Error("typing signals must never be persisted")
	}
}
