package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T, userID uuid.UUID, isAdmin bool) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, userID, isAdmin); err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitFor(t, func() bool { return hub.ClientCount(UserRoom(userID)) == 1 })
	return hub, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("Invalid envelope %q: %v", msg, err)
	}
	return env
}

func TestHub_PublishToUser(t *testing.T) {
	userID := uuid.New()
	hub, conn := startHub(t, userID, false)

	if hub.ClientCount(AdminRoom) != 0 {
		t.Error("Non-admin client should not join the admin room")
	}

	hub.PublishToUser(uuid.New(), "ignored", nil)
	hub.PublishToUser(userID, "deposit-approved", map[string]string{"amount": "50"})

	env := readEnvelope(t, conn)
	if env.Event != "deposit-approved" {
		t.Errorf("Expected deposit-approved, got %s", env.Event)
	}
	data, ok := env.Data.(map[string]any)
	if !ok || data["amount"] != "50" {
		t.Errorf("Unexpected data: %#v", env.Data)
	}
}

func TestHub_PublishToAdmins(t *testing.T) {
	adminID := uuid.New()
	hub, conn := startHub(t, adminID, true)

	if hub.ClientCount(AdminRoom) != 1 {
		t.Fatalf("Expected admin client in admin room, got %d", hub.ClientCount(AdminRoom))
	}

	hub.PublishToAdmins("new-user-signup", map[string]string{"email": "ada@example.com"})

	env := readEnvelope(t, conn)
	if env.Event != "new-user-signup" {
		t.Errorf("Expected new-user-signup, got %s", env.Event)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	userID := uuid.New()
	hub, conn := startHub(t, userID, true)

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount(UserRoom(userID)) == 0 && hub.ClientCount(AdminRoom) == 0 })

	// Publishing to an empty room is a no-op
	hub.PublishToUser(userID, "notification", nil)
}

func TestHub_Close(t *testing.T) {
	userID := uuid.New()
	hub, _ := startHub(t, userID, false)

	hub.Close()
	if hub.ClientCount(UserRoom(userID)) != 0 {
		t.Error("Expected no clients after Close")
	}
}
