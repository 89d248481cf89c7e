package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/engine"
	"trivia-service/internal/infra/kv"
	"trivia-service/internal/infra/memory"
)

func TestWebSocketRoundFlow(t *testing.T) {
	service := newTestService(engine.Rules{DrawCount: 1, QuestionTime: time.Minute, FreezeTime: time.Second, PassPercent: 70, BaseCoins: 10, StreakBonus: 2})
	conn := dial(t, service, WithTick(0))

	_, welcome := readUntil(conn, t, "welcome")
	if welcome["name"] != "ana" {
		t.Fatalf("expected ana's profile, got %v", welcome)
	}

	send(t, conn, "start", map[string]any{"subject": "Math", "tier": 1})
	_, round := readUntil(conn, t, "round")
	question := round["question"].(map[string]any)
	selection := -1
	for i, opt := range question["options"].([]any) {
		if opt == "4" {
			selection = i
		}
	}

	send(t, conn, "answer", map[string]any{"selection": selection})
	_, outcome := readUntil(conn, t, "answerResult")
	if outcome["correct"] != true || outcome["coinsEarned"].(float64) != 10 {
		t.Fatalf("unexpected outcome %v", outcome)
	}

	send(t, conn, "next", nil)
	_, next := readUntil(conn, t, "round")
	if next["more"] != false {
		t.Fatalf("single-question round should be over: %v", next)
	}

	send(t, conn, "finish", nil)
	// The leaderboard push and the result reply race; accept either order.
	var result map[string]any
	boardSeen := false
	for i := 0; i < 10 && (result == nil || !boardSeen); i++ {
		typ, payload := readAny(conn, t)
		switch typ {
		case "result":
			result = payload
		case "leaderboard":
			if entries, _ := payload["entries"].([]any); len(entries) == 1 {
				boardSeen = true
			}
		}
	}
	if result == nil || result["passed"] != true || result["unlocked"] != true {
		t.Fatalf("unexpected result %v", result)
	}
	if !boardSeen {
		t.Fatalf("expected leaderboard with the finished round")
	}
}

func TestWebSocketServerClockTimesOut(t *testing.T) {
	service := newTestService(engine.Rules{DrawCount: 1, QuestionTime: 30 * time.Millisecond, PassPercent: 70, BaseCoins: 10})
	conn := dial(t, service, WithTick(10*time.Millisecond))
	readUntil(conn, t, "welcome")

	send(t, conn, "start", map[string]any{"subject": "Math"})
	readUntil(conn, t, "round")
	_, outcome := readUntil(conn, t, "timeout")
	if outcome["timedOut"] != true || outcome["selected"].(float64) != -1 {
		t.Fatalf("unexpected timeout outcome %v", outcome)
	}
}

func TestWebSocketReportsBlockedAndInvalid(t *testing.T) {
	service := newTestService(engine.DefaultRules())
	conn := dial(t, service, WithTick(0))
	readUntil(conn, t, "welcome")

	send(t, conn, "answer", map[string]any{"selection": 0})
	_, blocked := readUntil(conn, t, "error")
	if blocked["code"] != "blocked" {
		t.Fatalf("expected blocked error, got %v", blocked)
	}

	send(t, conn, "start", map[string]any{"subject": "Art"})
	_, invalid := readUntil(conn, t, "error")
	if invalid["code"] != "invalid" {
		t.Fatalf("expected invalid error, got %v", invalid)
	}

	send(t, conn, "dance", nil)
	readUntil(conn, t, "error")
}

func TestWebSocketAnswerNeedsSelection(t *testing.T) {
	service := newTestService(engine.Rules{DrawCount: 1, QuestionTime: time.Minute, PassPercent: 70, BaseCoins: 10})
	conn := dial(t, service, WithTick(0))
	readUntil(conn, t, "welcome")

	send(t, conn, "start", map[string]any{"subject": "Math"})
	readUntil(conn, t, "round")

	for _, payload := range []any{nil, map[string]any{}} {
		send(t, conn, "answer", payload)
		_, bad := readUntil(conn, t, "error")
		if bad["code"] != "invalid" || bad["message"] != errBadPayload.Error() {
			t.Fatalf("expected invalid payload error, got %v", bad)
		}
	}

	// The question is still open after the rejected messages.
	send(t, conn, "answer", map[string]any{"selection": 0})
	readUntil(conn, t, "answerResult")
}

func TestWebSocketRequiresPlayer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(newTestService(engine.DefaultRules()), nil).ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func dial(t *testing.T, service *app.GameService, opts ...WSOption) *websocket.Conn {
	t.Helper()
	wsHandler := NewWSHandler(service, nil, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws?player=ana"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips clock and leaderboard traffic until a message of type expect arrives.
func readUntil(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 50; i++ {
		typ, payload := readAny(conn, t)
		if typ == expect {
			return typ, payload
		}
	}
	t.Fatalf("no %s message", expect)
	return "", nil
}

func readAny(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	var payload map[string]any
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

func newTestService(rules engine.Rules) *app.GameService {
	gw := memory.NewKVStore()
	catalog := memory.NewCatalogRepository(memory.NewStaticSubjectLoader([]domain.Subject{sampleSubject()}), time.Minute)
	return app.NewGameService(memory.NewSessionStore(), catalog, kv.NewProfileStore(gw), kv.NewResultLog(gw), app.Options{
		Rules: rules,
		Defaults: domain.ProfileDefaults{
			Lifelines: map[domain.LifelineKind]int{domain.LifelineFreeze: 1, domain.LifelineFiftyFifty: 1},
			Avatar:    "owl",
		},
		Source: engine.NewSource(3),
	})
}

func sampleSubject() domain.Subject {
	return domain.Subject{
		Name: "Math",
		Icon: "🔢",
		Tiers: []domain.Tier{
			{Number: 1, Title: "Warm-up", Questions: []domain.Question{
				{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Correct: 1},
			}},
			{Number: 2, Title: "Challenge", Questions: []domain.Question{
				{ID: "q2", Prompt: "What is 6 x 7?", Options: []string{"42", "36", "48"}, Correct: 0},
			}},
		},
	}
}

func seedEntries(t *testing.T, service *app.GameService) {
	t.Helper()
	for _, e := range []domain.LeaderboardEntry{
		{Player: "ana", Subject: "Math", Score: 4, Total: 5},
		{Player: "bob", Subject: "Math", Score: 5, Total: 5},
		{Player: "ana", Subject: "History", Score: 2, Total: 5},
	} {
		if err := service.SubmitResult(context.Background(), e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}
