package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizroom/internal/domain"
	"quizroom/internal/game"
	"quizroom/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Coordinator) {
	t.Helper()

	store := memory.NewStaticStore(map[string]domain.QuestionBank{
		"default": {
			QuizName: "General Knowledge",
			Questions: []domain.Question{
				{Question: "What is 2 + 2?", Answers: []string{"3", "4"}, Correct: 1, Time: 40},
			},
		},
	})
	coord := game.NewCoordinator(game.Options{
		Password:       "secret",
		StartCountdown: 2,
		Store:          store,
		TickInterval:   50 * time.Millisecond,
	})
	relay := NewRelay(coord, zap.NewNop())
	coord.SetEmitter(relay)
	if err := coord.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	server := httptest.NewServer(NewRouter(relay, coord, "", "test", zap.NewNop()))
	t.Cleanup(server.Close)
	return server, coord
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// waitForEvent reads frames until one of the wanted type arrives,
// skipping countdown ticks and other interleaved notifications.
func waitForEvent(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("timed out waiting for %s", want)
	return nil
}

// waitForStatus reads game:status frames until the named screen shows up.
func waitForStatus(t *testing.T, conn *websocket.Conn, name string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		payload := waitForEvent(t, conn, game.EventStatus)
		var status struct {
			Name string          `json:"name"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Name == name {
			return status.Data
		}
	}
	t.Fatalf("timed out waiting for status %s", name)
	return nil
}

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)

	manager := dialWS(t, server)
	player := dialWS(t, server)

	send(t, manager, game.CmdCreateRoom, "secret")
	var code string
	if err := json.Unmarshal(waitForEvent(t, manager, game.EventInviteCode), &code); err != nil {
		t.Fatalf("decode invite code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("unexpected invite code %q", code)
	}

	send(t, player, game.CmdCheckRoom, code)
	waitForEvent(t, player, game.EventSuccessRoom)

	send(t, player, game.CmdJoin, map[string]string{"username": "Alice", "room": code})
	waitForEvent(t, player, game.EventSuccessJoin)

	var joined struct {
		Username string `json:"username"`
		Points   int    `json:"points"`
	}
	if err := json.Unmarshal(waitForEvent(t, manager, game.EventNewPlayer), &joined); err != nil {
		t.Fatalf("decode newPlayer: %v", err)
	}
	if joined.Username != "Alice" || joined.Points != 0 {
		t.Fatalf("unexpected newPlayer: %+v", joined)
	}

	send(t, manager, game.CmdStartGame, nil)
	waitForStatus(t, player, game.StatusShowStart)

	var round struct {
		Question string   `json:"question"`
		Answers  []string `json:"answers"`
	}
	if err := json.Unmarshal(waitForStatus(t, player, game.StatusSelectAnswer), &round); err != nil {
		t.Fatalf("decode round: %v", err)
	}
	if round.Question != "What is 2 + 2?" || len(round.Answers) != 2 {
		t.Fatalf("unexpected round: %+v", round)
	}

	send(t, player, game.CmdSelectedAnswer, 1)

	var count int
	if err := json.Unmarshal(waitForEvent(t, manager, game.EventPlayerAnswer), &count); err != nil {
		t.Fatalf("decode playerAnswer: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected answered count 1, got %d", count)
	}

	// The only player answered, so the round closes early.
	var result domain.RoundResult
	if err := json.Unmarshal(waitForStatus(t, player, game.StatusShowResponses), &result); err != nil {
		t.Fatalf("decode responses: %v", err)
	}
	if result.Responses[1] != 1 || result.Percentages[1] != 100 {
		t.Fatalf("unexpected tallies: %+v", result)
	}

	// Single question, so the leaderboard step goes straight to the podium.
	send(t, manager, game.CmdShowLeaderboard, nil)
	var finish struct {
		Subject string                    `json:"subject"`
		Top     []domain.LeaderboardEntry `json:"top"`
	}
	if err := json.Unmarshal(waitForStatus(t, player, game.StatusFinish), &finish); err != nil {
		t.Fatalf("decode finish: %v", err)
	}
	if len(finish.Top) != 1 || finish.Top[0].Username != "Alice" || finish.Top[0].Points <= 0 {
		t.Fatalf("unexpected podium: %+v", finish.Top)
	}
}

func TestWebSocketErrorMessages(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server)

	send(t, conn, game.CmdCreateRoom, "wrong")
	var msg string
	if err := json.Unmarshal(waitForEvent(t, conn, game.EventError), &msg); err != nil {
		t.Fatalf("decode error message: %v", err)
	}
	if msg != "Bad Password" {
		t.Fatalf("expected Bad Password, got %q", msg)
	}

	send(t, conn, game.CmdCheckRoom, "NOROOM")
	if err := json.Unmarshal(waitForEvent(t, conn, game.EventError), &msg); err != nil {
		t.Fatalf("decode error message: %v", err)
	}
	if msg != "Room not found" {
		t.Fatalf("expected Room not found, got %q", msg)
	}

	send(t, conn, "bogus:event", nil)
	if err := json.Unmarshal(waitForEvent(t, conn, game.EventError), &msg); err != nil {
		t.Fatalf("decode error message: %v", err)
	}
	if msg != "unsupported message type" {
		t.Fatalf("expected unsupported message type, got %q", msg)
	}
}

func TestEmitDuringDisconnectTeardown(t *testing.T) {
	relay := NewRelay(nil, zap.NewNop())

	// A countdown broadcast may fire at the exact moment a connection
	// tears down; the send must lose that race cleanly, never panic.
	for i := 0; i < 500; i++ {
		c := &client{id: "conn", send: make(chan outbound, 1)}
		relay.mu.Lock()
		relay.clients[c.id] = c
		relay.mu.Unlock()

		var wg sync.WaitGroup
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					relay.Emit("conn", game.EventCooldown, 1)
				}
			}
		}()

		relay.unregister(c)
		close(stop)
		wg.Wait()

		relay.mu.RLock()
		_, ok := relay.clients[c.id]
		relay.mu.RUnlock()
		if ok {
			t.Fatalf("client survived unregister")
		}
	}
}

func TestHealthAndVersionEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected healthz content type %q", ct)
	}

	resp, err = http.Get(server.URL + "/version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "quizroom vtest") {
		t.Fatalf("unexpected version response: %q", body)
	}
}

func TestInviteQRServesLiveRoomOnly(t *testing.T) {
	server, coord := newTestServer(t)

	resp, err := http.Get(server.URL + "/invite/NOROOM/qr")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without a room, got %d", resp.StatusCode)
	}

	if err := coord.CreateRoom("mgr", "secret"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	code, _ := coord.InviteCode()

	resp, err = http.Get(server.URL + "/invite/" + code + "/qr")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	png, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for live code, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/png" || len(png) == 0 {
		t.Fatalf("expected png payload, got %q (%d bytes)", resp.Header.Get("Content-Type"), len(png))
	}

	resp, err = http.Get(server.URL + "/invite/WRONG1/qr")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for stale code, got %d", resp.StatusCode)
	}
}
