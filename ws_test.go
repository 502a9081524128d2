package main

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator resolves fixed tokens for tests.
type stubValidator struct {
	tokens map[string]AuthResult
}

func (v *stubValidator) Validate(token string) (*AuthResult, error) {
	auth, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return &auth, nil
}

func newStubValidator() *stubValidator {
	return &stubValidator{tokens: map[string]AuthResult{
		"host-token":   {UserID: "host-1", IsHost: true},
		"host-2-token": {UserID: "host-2", IsHost: true},
		"player-token": {UserID: "player-1", IsHost: false},
	}}
}

type testEnv struct {
	srvr *server
	ts   *httptest.Server
}

func newTestEnv(t *testing.T, store SnapshotStore, idleShutdown time.Duration, signal chan struct{}) *testEnv {
	t.Helper()

	cfg := &Config{idleShutdown: idleShutdown}

	srvr := &server{
		cfg:       cfg,
		games:     newRegistry(),
		validator: newStubValidator(),
		store:     store,
		idle:      newShutdownTimer(idleShutdown, signal),
	}

	mux := httprouter.New()
	mux.GET("/ws", srvr.serveWebSocket())
	mux.GET("/join/:gameCode/qr", srvr.serveJoinQr())

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &testEnv{srvr: srvr, ts: ts}
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// probeMessage is a loose decoding of any server message, used to route on the
// type tag.
type probeMessage struct {
	Type             string          `json:"type"`
	Message          string          `json:"message"`
	SecondsRemaining int             `json:"secondsRemaining"`
	State            json.RawMessage `json:"state"`
	Data             json.RawMessage `json:"data"`
}

// readUntil reads messages until one matches the wanted type, skipping
// unrelated broadcasts.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) probeMessage {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var msg probeMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %q", wantType)
		if msg.Type == wantType {
			return msg
		}
	}
}

func sendHost(t *testing.T, conn *websocket.Conn, action HostAction) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Host: &action}))
}

func sendTeam(t *testing.T, conn *websocket.Conn, action TeamAction) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Team: &action}))
}

func decodeGameState(t *testing.T, msg probeMessage) GameState {
	t.Helper()
	var state GameState
	require.NoError(t, json.Unmarshal(msg.State, &state))
	return state
}

func decodeTeamGameState(t *testing.T, msg probeMessage) TeamGameState {
	t.Helper()
	var state TeamGameState
	require.NoError(t, json.Unmarshal(msg.State, &state))
	return state
}

func createGame(t *testing.T, env *testEnv, token, gameCode string) (*websocket.Conn, string) {
	t.Helper()

	host := env.dial(t, token)
	sendHost(t, host, HostAction{Type: actionCreateGame, GameCode: gameCode})
	state := decodeGameState(t, readUntil(t, host, "gameState"))
	require.Len(t, state.GameCode, gameCodeLength)

	return host, state.GameCode
}

func joinGame(t *testing.T, env *testEnv, gameCode, teamName string) *websocket.Conn {
	t.Helper()

	team := env.dial(t, "")
	sendTeam(t, team, TeamAction{Type: actionValidateJoin, GameCode: gameCode, TeamName: teamName})
	readUntil(t, team, "joinValidated")
	sendTeam(t, team, TeamAction{
		Type:        actionJoinGame,
		GameCode:    gameCode,
		TeamName:    teamName,
		ColorHex:    "#336699",
		ColorName:   "blue",
		TeamMembers: []string{"alice", "bob"},
	})
	state := decodeTeamGameState(t, readUntil(t, team, "teamGameState"))
	require.Equal(t, teamName, state.Team.TeamName)

	return team
}

func TestFullGameFlow(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, gameCode := createGame(t, env, "host-token", "")

	team := joinGame(t, env, gameCode, "Wombats")

	hostState := decodeGameState(t, readUntil(t, host, "gameState"))
	require.Len(t, hostState.Teams, 1)
	assert.Equal(t, "Wombats", hostState.Teams[0].TeamName)
	assert.True(t, hostState.Teams[0].Connected)

	// Watcher sees the scoreboard immediately.
	watcher := env.dial(t, "")
	require.NoError(t, watcher.WriteJSON(ClientMessage{Watcher: &WatcherAction{Type: actionWatchGame, GameCode: gameCode}}))
	board := readUntil(t, watcher, "scoreboardData")
	var data ScoreboardData
	require.NoError(t, json.Unmarshal(board.Data, &data))
	assert.Equal(t, gameCode, data.GameCode)
	require.Len(t, data.Teams, 1)

	// Open submissions.
	sendHost(t, host, HostAction{Type: actionStartTimer})
	hostState = decodeGameState(t, readUntil(t, host, "gameState"))
	assert.True(t, hostState.TimerRunning)

	// Submit and score an answer.
	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "pluto"})
	teamState := decodeTeamGameState(t, readUntil(t, team, "teamGameState"))
	require.NotNil(t, teamState.Questions[0].Content)
	assert.Equal(t, "pluto", teamState.Questions[0].Content.AnswerText)

	sendHost(t, host, HostAction{
		Type:           actionScoreAnswer,
		QuestionNumber: 1,
		TeamName:       "Wombats",
		Score:          &ScoreData{QuestionPoints: 50},
	})

	for {
		teamState = decodeTeamGameState(t, readUntil(t, team, "teamGameState"))
		if teamState.Team.Score.QuestionPoints == 50 {
			break
		}
	}

	// Watcher sees the updated total.
	for {
		board = readUntil(t, watcher, "scoreboardData")
		require.NoError(t, json.Unmarshal(board.Data, &data))
		if len(data.Teams) == 1 && data.Teams[0].Score.Total() == 50 {
			break
		}
	}
}

func TestSubmissionsClosedBeforeTimerStarts(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	_, gameCode := createGame(t, env, "host-token", "")
	team := joinGame(t, env, gameCode, "Wombats")

	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "pluto"})
	msg := readUntil(t, team, "error")
	assert.Contains(t, msg.Message, "closed")
}

func TestTimerExpiryClosesSubmissions(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, gameCode := createGame(t, env, "host-token", "")
	team := joinGame(t, env, gameCode, "Wombats")
	readUntil(t, host, "gameState")

	sendHost(t, host, HostAction{
		Type:           actionUpdateQuestionSettings,
		QuestionNumber: 1,
		TimerDuration:  1,
		QuestionPoints: 50,
		BonusIncrement: 5,
		QuestionType:   QuestionStandard,
	})
	readUntil(t, host, "gameState")

	sendHost(t, host, HostAction{Type: actionStartTimer})

	// Expiry pushes a full state with the timer stopped.
	for {
		state := decodeGameState(t, readUntil(t, host, "gameState"))
		if !state.TimerRunning && state.TimerSecondsRemaining == 0 {
			break
		}
	}

	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "too late"})
	msg := readUntil(t, team, "error")
	assert.Contains(t, msg.Message, "closed")
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, gameCode := createGame(t, env, "host-token", "")
	team := joinGame(t, env, gameCode, "Wombats")

	sendHost(t, host, HostAction{Type: actionStartTimer})
	readUntil(t, team, "timerTick")

	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "pluto"})
	readUntil(t, team, "teamGameState")

	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "neptune"})
	msg := readUntil(t, team, "error")
	assert.Contains(t, msg.Message, "already submitted")
}

func TestHostReclaim(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, gameCode := createGame(t, env, "host-token", "")
	joinGame(t, env, gameCode, "Wombats")
	readUntil(t, host, "gameState")

	host.Close()

	require.Eventually(t, func() bool {
		env.srvr.games.mu.Lock()
		defer env.srvr.games.mu.Unlock()
		g, ok := env.srvr.games.games[gameCode]
		return ok && g.host == nil
	}, 2*time.Second, 20*time.Millisecond)

	reclaimed := env.dial(t, "host-token")
	sendHost(t, reclaimed, HostAction{Type: actionCreateGame, GameCode: gameCode})
	state := decodeGameState(t, readUntil(t, reclaimed, "gameState"))
	require.Len(t, state.Teams, 1)
	assert.Equal(t, "Wombats", state.Teams[0].TeamName)
}

func TestSecondHostRefused(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	_, gameCode := createGame(t, env, "host-token", "")

	second := env.dial(t, "host-token")
	sendHost(t, second, HostAction{Type: actionCreateGame, GameCode: gameCode})
	msg := readUntil(t, second, "error")
	assert.Contains(t, msg.Message, "active host")

	other := env.dial(t, "host-2-token")
	sendHost(t, other, HostAction{Type: actionCreateGame, GameCode: gameCode})
	msg = readUntil(t, other, "error")
	assert.Contains(t, msg.Message, "already exists")
}

func TestHostAuthFailures(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	anon := env.dial(t, "")
	sendHost(t, anon, HostAction{Type: actionCreateGame})
	msg := readUntil(t, anon, "error")
	assert.Contains(t, msg.Message, "authentication required")

	player := env.dial(t, "player-token")
	sendHost(t, player, HostAction{Type: actionCreateGame})
	msg = readUntil(t, player, "error")
	assert.Contains(t, msg.Message, "not authorized")

	badFirst := env.dial(t, "host-token")
	sendHost(t, badFirst, HostAction{Type: actionStartTimer})
	msg = readUntil(t, badFirst, "error")
	assert.Contains(t, msg.Message, "createGame")
}

func TestTeamJoinFailures(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	_, gameCode := createGame(t, env, "host-token", "")
	joinGame(t, env, gameCode, "Wombats")

	// Unknown game code.
	stranger := env.dial(t, "")
	sendTeam(t, stranger, TeamAction{Type: actionValidateJoin, GameCode: "ZZZZ", TeamName: "Lost"})
	msg := readUntil(t, stranger, "error")
	assert.Contains(t, msg.Message, "not found")

	// Name collision with a connected team.
	dupe := env.dial(t, "")
	sendTeam(t, dupe, TeamAction{Type: actionValidateJoin, GameCode: gameCode, TeamName: "wombats"})
	msg = readUntil(t, dupe, "error")
	assert.Contains(t, msg.Message, "already in use")
}

func TestTeamRejoinKeepsScore(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, gameCode := createGame(t, env, "host-token", "")
	team := joinGame(t, env, gameCode, "Wombats")
	readUntil(t, host, "gameState")

	sendHost(t, host, HostAction{Type: actionStartTimer})
	readUntil(t, team, "timerTick")
	sendTeam(t, team, TeamAction{Type: actionSubmitAnswer, Answer: "pluto"})
	readUntil(t, team, "teamGameState")
	sendHost(t, host, HostAction{
		Type:           actionScoreAnswer,
		QuestionNumber: 1,
		TeamName:       "Wombats",
		Score:          &ScoreData{QuestionPoints: 50},
	})

	team.Close()

	// Host hears about the disconnect.
	for {
		state := decodeGameState(t, readUntil(t, host, "gameState"))
		if len(state.Teams) == 1 && !state.Teams[0].Connected {
			break
		}
	}

	// Rejoin skips the joinValidated step and restores the filtered view.
	rejoined := env.dial(t, "")
	sendTeam(t, rejoined, TeamAction{Type: actionValidateJoin, GameCode: gameCode, TeamName: "Wombats"})
	state := decodeTeamGameState(t, readUntil(t, rejoined, "teamGameState"))
	assert.Equal(t, 50, state.Team.Score.QuestionPoints)
	assert.True(t, state.Team.Connected)
}

func TestPrevQuestionAtStartErrorsHostOnly(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	host, _ := createGame(t, env, "host-token", "")

	sendHost(t, host, HostAction{Type: actionPrevQuestion})
	msg := readUntil(t, host, "error")
	assert.Contains(t, msg.Message, "first question")
}

func TestWatcherUnknownGame(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	watcher := env.dial(t, "")
	require.NoError(t, watcher.WriteJSON(ClientMessage{Watcher: &WatcherAction{Type: actionWatchGame, GameCode: "ZZZZ"}}))
	msg := readUntil(t, watcher, "error")
	assert.Contains(t, msg.Message, "not found")
}

func TestHostRestoreFromSnapshotStore(t *testing.T) {
	store := newTestStore(t)

	env := newTestEnv(t, store, 0, nil)
	host, gameCode := createGame(t, env, "host-token", "")
	joinGame(t, env, gameCode, "Wombats")
	readUntil(t, host, "gameState")
	host.Close()

	// Wait for the disconnect snapshot to land.
	require.Eventually(t, func() bool {
		state, err := store.LoadGameState("host-1", gameCode)
		return err == nil && state != nil
	}, 2*time.Second, 20*time.Millisecond)

	// Fresh process, same store: the game is gone from memory but restorable.
	env2 := newTestEnv(t, store, 0, nil)
	restored := env2.dial(t, "host-token")
	sendHost(t, restored, HostAction{Type: actionCreateGame, GameCode: gameCode})
	state := decodeGameState(t, readUntil(t, restored, "gameState"))
	require.Len(t, state.Teams, 1)
	assert.Equal(t, "Wombats", state.Teams[0].TeamName)
	assert.False(t, state.Teams[0].Connected)
}

func TestIdleShutdownAfterLastHostLeaves(t *testing.T) {
	signal := make(chan struct{}, 1)
	env := newTestEnv(t, noopStore{}, 100*time.Millisecond, signal)

	host, _ := createGame(t, env, "host-token", "")
	host.Close()

	select {
	case <-signal:
	case <-time.After(3 * time.Second):
		t.Fatal("idle shutdown never signalled")
	}
}

func TestQrEndpoint(t *testing.T) {
	env := newTestEnv(t, noopStore{}, 0, nil)

	_, gameCode := createGame(t, env, "host-token", "")

	resp, err := env.ts.Client().Get(env.ts.URL + "/join/" + gameCode + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = env.ts.Client().Get(env.ts.URL + "/join/ZZZZ/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}
