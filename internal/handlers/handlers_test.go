package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/handlers"
	httpx "github.com/OmarAlex24/impostor-game/internal/http"
	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/OmarAlex24/impostor-game/internal/words"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router http.Handler
	hub    *handlers.Hub
	svc    *service.RoomService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc := service.NewRoomService(repo.NewMemoryRoomRepo(), words.Default(), service.DefaultOptions())
	hub := handlers.NewHub(svc, nil)
	svc.SetNotifier(hub)
	return &testServer{
		router: httpx.NewRouter(handlers.NewRoomHandler(svc), hub, []string{"http://localhost:3000"}),
		hub:    hub,
		svc:    svc,
	}
}

// do sends body (a string is sent verbatim) and decodes the response into out
// when out is not nil.
func (s *testServer) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type errBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type lobby struct {
	roomID  string
	code    string
	players map[string]string // session id -> player id
}

func (s *testServer) lobby(t *testing.T, sessions ...string) lobby {
	t.Helper()
	var created service.CreateRoomResult
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/rooms", map[string]string{
		"hostName": "Host", "sessionId": sessions[0],
	}, &created))
	l := lobby{roomID: created.RoomID, code: created.Code, players: map[string]string{sessions[0]: created.PlayerID}}
	for _, sess := range sessions[1:] {
		var joined service.JoinRoomResult
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/join", map[string]string{
			"code": strings.ToLower(created.Code), "playerName": strings.ToUpper(sess), "sessionId": sess,
		}, &joined))
		assert.Equal(t, created.RoomID, joined.RoomID)
		l.players[sess] = joined.PlayerID
	}
	return l
}

func TestCatalogEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var m struct {
		Modes []struct {
			ID         models.GameMode `json:"id"`
			MinPlayers int             `json:"minPlayers"`
		} `json:"modes"`
		Roles []struct {
			Role models.SecretRole `json:"role"`
			Name string            `json:"name"`
		} `json:"roles"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/modes", nil, &m))
	assert.Len(t, m.Modes, 6)
	require.Len(t, m.Roles, 6)
	assert.Equal(t, models.RoleDetective, m.Roles[0].Role)
	assert.Equal(t, "Ciudadano", m.Roles[5].Name)

	var c struct {
		Categories []string `json:"categories"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/categories", nil, &c))
	assert.Contains(t, c.Categories, "Animales")
}

func TestGameFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	l := s.lobby(t, "host", "ana", "bob")

	var byCode models.Room
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/code/"+strings.ToLower(l.code), nil, &byCode))
	assert.Equal(t, l.roomID, byCode.ID)
	assert.Equal(t, models.StatusWaiting, byCode.Status)

	var players struct {
		Players []models.Player `json:"players"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID+"/players", nil, &players))
	require.Len(t, players.Players, 3)
	assert.Equal(t, "host", players.Players[0].SessionID)
	assert.True(t, players.Players[0].IsHost)

	var ready map[string]bool
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/players/"+l.players["ana"]+"/ready", nil, &ready))
	assert.True(t, ready["isReady"])

	var e errBody
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/start", map[string]any{"sessionId": "ana"}, &e))
	assert.Equal(t, "forbidden", e.Code)

	var started service.StartGameResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/start", map[string]any{
		"sessionId": "host", "category": "Comida", "discussionMinutes": 2, "gameMode": "clasico",
	}, &started))
	assert.NotEmpty(t, started.Word)
	assert.Contains(t, l.players, started.ImpostorID)

	var room models.Room
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID, nil, &room))
	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Equal(t, "Comida", room.Category)
	require.Len(t, room.TurnOrder, 3)

	speaker := room.TurnOrder[0]
	var notYou errBody
	other := room.TurnOrder[1]
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/turn/pass", map[string]string{"sessionId": other}, &notYou))

	var turn service.TurnResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/turn/pass", map[string]string{"sessionId": speaker}, &turn))
	assert.Equal(t, other, turn.CurrentTurn)

	var auto service.TurnResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/turn/auto-pass", nil, &auto))
	assert.True(t, auto.Skipped)

	var call service.CallToVoteResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/call-to-vote", map[string]string{"sessionId": "host"}, &call))
	assert.True(t, call.Triggered)

	imp := started.ImpostorID
	for sess, pid := range l.players {
		target := imp
		if sess == imp {
			target = "host"
			if imp == "host" {
				target = "ana"
			}
		}
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/players/"+pid+"/vote", map[string]string{"targetSessionId": target}, nil), sess)
	}

	var res service.VotingResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/results", map[string]string{"sessionId": "host"}, &res))
	assert.Equal(t, imp, res.MostVotedSessionID)
	assert.True(t, res.GameOver)
	assert.Equal(t, models.WinnerInnocents, res.Winner)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/reset", map[string]any{"sessionId": "host", "resetStats": false}, nil))
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID, nil, &room))
	assert.Equal(t, models.StatusWaiting, room.Status)
	assert.Equal(t, []string{started.Word}, room.UsedWords)
}

func TestRoomView(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	l := s.lobby(t, "host", "ana", "bob")

	var started service.StartGameResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/start", map[string]any{
		"sessionId": "host", "category": "Comida", "gameMode": "clasico",
	}, &started))
	imp := started.ImpostorID
	innocent := "ana"
	if imp == innocent {
		innocent = "bob"
	}

	testCases := []struct {
		description string
		path        string
		word        string
		impostorID  string
	}{
		{"innocent", "/rooms/" + l.roomID + "?sessionId=" + innocent, started.Word, ""},
		{"impostor", "/rooms/" + l.roomID + "?sessionId=" + imp, "", imp},
		{"anonymous", "/rooms/" + l.roomID, "", ""},
		{"stranger", "/rooms/" + l.roomID + "?sessionId=intruder", "", ""},
		{"by code", "/rooms/code/" + l.code + "?sessionId=" + innocent, started.Word, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var room models.Room
			require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, tc.path, nil, &room))
			assert.Equal(t, tc.word, room.CurrentWord)
			assert.Equal(t, tc.impostorID, room.ImpostorID)
			assert.Equal(t, "host", room.HostID)
			if tc.word == "" {
				assert.NotContains(t, room.UsedWords, started.Word)
			}
		})
	}

	var players struct {
		Players []models.Player `json:"players"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID+"/players?sessionId=ana", nil, &players))
	for _, p := range players.Players {
		if p.SessionID != "ana" {
			assert.Empty(t, p.SecretRole, p.SessionID)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	l := s.lobby(t, "host", "ana", "bob")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/start", map[string]any{"sessionId": "host"}, nil))

	testCases := []struct {
		description string
		method      string
		path        string
		body        any
		status      int
		code        string
	}{
		{"unknown room", http.MethodGet, "/rooms/nope", nil, http.StatusNotFound, "not_found"},
		{"unknown code", http.MethodGet, "/rooms/code/ZZZZZZ", nil, http.StatusNotFound, "not_found"},
		{"unknown player", http.MethodPost, "/players/nope/ready", nil, http.StatusNotFound, "not_found"},
		{"missing name", http.MethodPost, "/rooms", map[string]string{"sessionId": "x"}, http.StatusPreconditionFailed, "precondition_failed"},
		{"syntax error", http.MethodPost, "/rooms", `{"hostName":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/rooms", map[string]string{"host": "x"}, http.StatusBadRequest, "bad_request"},
		{"missing session", http.MethodPost, "/rooms/" + l.roomID + "/voting", map[string]string{}, http.StatusBadRequest, "bad_request"},
		{"join after start", http.MethodPost, "/rooms/join", map[string]string{"code": l.code, "playerName": "Late", "sessionId": "late"}, http.StatusConflict, "invalid_state"},
		{"results while playing", http.MethodPost, "/rooms/" + l.roomID + "/results", map[string]string{"sessionId": "host"}, http.StatusConflict, "invalid_state"},
		{"emoji outside silent mode", http.MethodPost, "/rooms/" + l.roomID + "/emojis", map[string]string{"sessionId": "ana", "emoji": "👍"}, http.StatusUnprocessableEntity, "mode_mismatch"},
		{"investigate outside secret roles", http.MethodPost, "/rooms/" + l.roomID + "/abilities/investigate", map[string]string{"sessionId": "ana", "targetSessionId": "bob"}, http.StatusUnprocessableEntity, "mode_mismatch"},
		{"spectator chat while alive", http.MethodPost, "/rooms/" + l.roomID + "/spectator-messages", map[string]string{"sessionId": "ana", "content": "hola"}, http.StatusForbidden, "forbidden"},
		{"vote without target", http.MethodPost, "/players/" + l.players["ana"] + "/vote", map[string]string{}, http.StatusBadRequest, "bad_request"},
		{"kick by guest", http.MethodPost, "/players/" + l.players["bob"] + "/kick", map[string]string{"kickerSessionId": "ana"}, http.StatusForbidden, "forbidden"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var e errBody
			assert.Equal(t, tc.status, s.do(t, tc.method, tc.path, tc.body, &e))
			assert.Equal(t, tc.code, e.Code)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestMessagesEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	l := s.lobby(t, "host", "ana", "bob")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/start", map[string]any{
		"sessionId": "host", "gameMode": "silencio",
	}, nil))

	var msg models.Message
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/emojis", map[string]string{"sessionId": "ana", "emoji": "🤔"}, &msg))
	assert.True(t, msg.IsEmoji)

	var e errBody
	assert.Equal(t, http.StatusPreconditionFailed, s.do(t, http.MethodPost, "/rooms/"+l.roomID+"/emojis", map[string]string{"sessionId": "ana", "emoji": "🍕"}, &e))

	var list struct {
		Messages []models.Message `json:"messages"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID+"/emojis", nil, &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "🤔", list.Messages[0].Content)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/rooms/"+l.roomID+"/spectator-messages", nil, &list))
	assert.Empty(t, list.Messages)
}

func TestWebSocket(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	l := s.lobby(t, "host", "ana", "bob")

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/rooms/" + l.roomID + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?sessionId=stranger", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial(base+"?sessionId=ana", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(handlers.WebSocketMessage{Type: "ping"}))
	var pong handlers.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, 1, s.hub.Connections(l.roomID))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/players/"+l.players["bob"]+"/ready", nil, nil))

	var got struct {
		Type    string                    `json:"type"`
		Payload handlers.RoomEventPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "room_updated", got.Type)
	assert.Equal(t, l.roomID, got.Payload.RoomID)
	assert.Equal(t, "ready_toggled", got.Payload.Event)

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.Connections(l.roomID) == 0 }, time.Second, 10*time.Millisecond)

	players, err := s.svc.GetPlayersByRoom(context.Background(), l.roomID)
	require.NoError(t, err)
	assert.Len(t, players, 3)
}
