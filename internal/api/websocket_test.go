package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/rentwise-core/internal/auth"
)

// issueTicket calls POST /home/ws-ticket as username.
func (f *apiFixture) issueTicket(t *testing.T, username string, role auth.Role) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/home/ws-ticket", nil, f.tokenFor(t, username, role))
	if rec.Code != http.StatusOK {
		t.Fatalf("ws-ticket status = %d, want 200", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["expiresIn"] != float64(60) {
		t.Errorf("expiresIn = %v, want 60", body["expiresIn"])
	}
	ticket, _ := body["ticket"].(string)
	if ticket == "" {
		t.Fatal("ws-ticket returned no ticket")
	}
	return ticket
}

func dialWS(t *testing.T, ts *httptest.Server, ticket string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?ticket=" + ticket
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup
	}
	return conn, resp, err
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readWSMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decoding %q: %v", data, err)
	}
	return msg
}

func TestWebSocket_NotifyUser(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	conn, _, err := dialWS(t, ts, f.issueTicket(t, "olga", auth.RoleOwner))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitForClients(t, f.srv.hub, 1)

	// Someone else's notification is not delivered.
	f.srv.hub.NotifyUser("tom", "rent_request.accepted", map[string]any{"requestId": 1})
	f.srv.hub.NotifyUser("olga", "rent_request.created", map[string]any{"requestId": 7})

	msg := readWSMessage(t, conn)
	if msg.Type != WSTypeEvent || msg.EventType != "rent_request.created" {
		t.Errorf("message = %+v, want event rent_request.created", msg)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["requestId"] != float64(7) {
		t.Errorf("payload = %v", msg.Payload)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	conn, _, err := dialWS(t, ts, f.issueTicket(t, "tom", auth.RoleUser))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readWSMessage(t, conn); msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("reply = %+v, want pong p1", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: "subscribe"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readWSMessage(t, conn); msg.Type != WSTypeError {
		t.Errorf("reply to unknown type = %+v, want error", msg)
	}
}

func TestWebSocket_Tickets(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	ticket := f.issueTicket(t, "tom", auth.RoleUser)
	if _, _, err := dialWS(t, ts, ticket); err != nil {
		t.Fatalf("first Dial() error = %v", err)
	}

	tests := []struct {
		name   string
		ticket string
	}{
		{"reused ticket", ticket},
		{"unknown ticket", "not-a-ticket"},
		{"missing ticket", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dialWS(t, ts, tt.ticket)
			if err == nil {
				t.Fatal("Dial() succeeded, want handshake failure")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("handshake response = %v, want 401", resp)
			}
		})
	}
}

func TestWSTicket_RequiresAuth(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.do(t, http.MethodPost, "/home/ws-ticket", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
