package game

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	C "github.com/nijks777/sudoku/constant"
	"github.com/nijks777/sudoku/log"

	"github.com/gofrs/uuid/v5"
	"github.com/sagernet/sing/common/json"
	"github.com/stretchr/testify/require"
)

type testSender struct {
	events []*Event
}

func (s *testSender) Send(event *Event) {
	s.events = append(s.events, event)
}

func (s *testSender) typed(eventType string) []*Event {
	var matched []*Event
	for _, event := range s.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type testResults struct {
	access  sync.Mutex
	results []MatchResult
}

func (s *testResults) SaveMatchResult(result MatchResult) error {
	s.access.Lock()
	defer s.access.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *testResults) snapshot() []MatchResult {
	s.access.Lock()
	defer s.access.Unlock()
	return append([]MatchResult(nil), s.results...)
}

type testClient struct {
	connectionID uuid.UUID
	sender       *testSender
}

type handlerTest struct {
	handler *Handler
	results *testResults
}

func newHandlerTest(t *testing.T, graceDelay time.Duration) *handlerTest {
	results := &testResults{}
	return &handlerTest{
		handler: NewHandler(log.NewNOPFactory().Logger(), NewRegistry(), results, graceDelay),
		results: results,
	}
}

func (h *handlerTest) newClient(t *testing.T) *testClient {
	connectionID, err := uuid.NewV4()
	require.NoError(t, err)
	sender := &testSender{}
	h.handler.Attach(connectionID, sender)
	return &testClient{connectionID: connectionID, sender: sender}
}

func (h *handlerTest) dispatch(t *testing.T, client *testClient, requestType string, payload any) {
	content, err := json.Marshal(payload)
	require.NoError(t, err)
	h.handler.Dispatch(context.Background(), client.connectionID, Request{Type: requestType, Payload: content})
}

func (h *handlerTest) createRoom(t *testing.T, host *testClient, hostName string) string {
	h.dispatch(t, host, RequestTypeCreateRoom, CreateRoomRequest{
		HostName:   hostName,
		Difficulty: "easy",
		GridSize:   4,
		PuzzleID:   "puzzle-0",
	})
	created := host.sender.typed(EventTypeRoomCreated)
	require.Len(t, created, 1)
	return created[0].Payload.(RoomCreatedEvent).RoomCode
}

func (h *handlerTest) startPlaying(t *testing.T, host, guest *testClient, code string) {
	h.dispatch(t, guest, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: code, GuestName: "B"})
	h.dispatch(t, host, RequestTypePlayerReady, PlayerReadyRequest{RoomCode: code, PlayerName: "A"})
	h.dispatch(t, guest, RequestTypePlayerReady, PlayerReadyRequest{RoomCode: code, PlayerName: "B"})
	h.dispatch(t, host, RequestTypeStartGame, StartGameRequest{RoomCode: code})
	require.NotEmpty(t, host.sender.typed(EventTypeGameStarted))
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	code := test.createRoom(t, host, "A")

	require.Len(t, code, C.RoomCodeLength)
	for _, symbol := range code {
		require.Contains(t, C.RoomCodeAlphabet, string(symbol))
	}

	snapshot, loaded := test.handler.RoomSnapshot(code)
	require.True(t, loaded)
	require.Equal(t, RoomStatusWaiting, snapshot.Status)
	require.NotNil(t, snapshot.Host)
	require.Equal(t, "A", snapshot.Host.Name)
	require.False(t, snapshot.Host.Ready)
	require.Nil(t, snapshot.Guest)
	require.Equal(t, "easy", snapshot.Difficulty)
	require.Equal(t, 4, snapshot.GridSize)
	require.Equal(t, "puzzle-0", snapshot.PuzzleID)
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")

	test.dispatch(t, guest, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: code, GuestName: "B"})
	require.Len(t, guest.sender.typed(EventTypeRoomJoined), 1)
	require.Len(t, guest.sender.typed(EventTypePlayerJoined), 1)
	require.Len(t, host.sender.typed(EventTypePlayerJoined), 1)

	snapshot, loaded := test.handler.RoomSnapshot(code)
	require.True(t, loaded)
	require.NotNil(t, snapshot.Guest)
	require.Equal(t, "B", snapshot.Guest.Name)
}

func TestJoinRoomErrors(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	third := test.newClient(t)
	code := test.createRoom(t, host, "A")

	test.dispatch(t, third, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: "ZZZZZZ", GuestName: "C"})
	errs := third.sender.typed(EventTypeError)
	require.Len(t, errs, 1)
	require.Equal(t, "room not found", errs[0].Payload.(ErrorEvent).Message)

	test.dispatch(t, guest, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: code, GuestName: "B"})
	test.dispatch(t, third, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: code, GuestName: "C"})
	errs = third.sender.typed(EventTypeError)
	require.Len(t, errs, 2)
	require.Equal(t, "room is full", errs[1].Payload.(ErrorEvent).Message)

	// The failed join must not reach the other players or mutate the room.
	require.Empty(t, host.sender.typed(EventTypeError))
	snapshot, loaded := test.handler.RoomSnapshot(code)
	require.True(t, loaded)
	require.Equal(t, "B", snapshot.Guest.Name)
}

func TestReadyStartSequence(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.dispatch(t, guest, RequestTypeJoinRoom, JoinRoomRequest{RoomCode: code, GuestName: "B"})

	test.dispatch(t, host, RequestTypePlayerReady, PlayerReadyRequest{RoomCode: code, PlayerName: "A"})
	snapshot, _ := test.handler.RoomSnapshot(code)
	require.Equal(t, RoomStatusWaiting, snapshot.Status)

	test.dispatch(t, guest, RequestTypePlayerReady, PlayerReadyRequest{RoomCode: code, PlayerName: "B"})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.Equal(t, RoomStatusReady, snapshot.Status)
	require.NotEmpty(t, host.sender.typed(EventTypePlayerReadyUpdate))
	require.NotEmpty(t, guest.sender.typed(EventTypePlayerReadyUpdate))

	// A non-host start is rejected without mutation.
	test.dispatch(t, guest, RequestTypeStartGame, StartGameRequest{RoomCode: code})
	errs := guest.sender.typed(EventTypeError)
	require.Len(t, errs, 1)
	require.Equal(t, "only the host can start the game", errs[0].Payload.(ErrorEvent).Message)
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.Equal(t, RoomStatusReady, snapshot.Status)

	test.dispatch(t, host, RequestTypeStartGame, StartGameRequest{RoomCode: code})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.Equal(t, RoomStatusPlaying, snapshot.Status)
	started := guest.sender.typed(EventTypeGameStarted)
	require.Len(t, started, 1)
	payload := started[0].Payload.(GameStartedEvent)
	require.NotZero(t, payload.StartTime)
	require.Equal(t, int(C.HintFreezeDuration/time.Second), payload.HintFreezeSeconds)
}

func TestStartGameBeforeReady(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.dispatch(t, host, RequestTypeStartGame, StartGameRequest{RoomCode: code})
	errs := host.sender.typed(EventTypeError)
	require.Len(t, errs, 1)
	require.Equal(t, "room is not ready", errs[0].Payload.(ErrorEvent).Message)
}

func TestProgressRelayedToOpponentOnly(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)

	test.dispatch(t, host, RequestTypeUpdateProgress, UpdateProgressRequest{RoomCode: code, PlayerName: "A", Progress: 42})
	relayed := guest.sender.typed(EventTypeOpponentProgress)
	require.Len(t, relayed, 1)
	payload := relayed[0].Payload.(OpponentProgressEvent)
	require.Equal(t, "A", payload.PlayerName)
	require.Equal(t, 42, payload.Progress)
	require.Empty(t, host.sender.typed(EventTypeOpponentProgress))
}

func TestPauseQuorum(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)

	test.dispatch(t, host, RequestTypeRequestPause, RequestPauseRequest{RoomCode: code, PlayerName: "A"})
	require.Len(t, guest.sender.typed(EventTypePauseRequested), 1)
	snapshot, _ := test.handler.RoomSnapshot(code)
	require.False(t, snapshot.IsPaused)

	// A duplicate request from the same player is idempotent.
	test.dispatch(t, host, RequestTypeRequestPause, RequestPauseRequest{RoomCode: code, PlayerName: "A"})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.False(t, snapshot.IsPaused)

	test.dispatch(t, guest, RequestTypeRequestPause, RequestPauseRequest{RoomCode: code, PlayerName: "B"})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.True(t, snapshot.IsPaused)
	require.Len(t, host.sender.typed(EventTypeGamePaused), 1)
	require.Len(t, guest.sender.typed(EventTypeGamePaused), 1)

	test.dispatch(t, host, RequestTypeResumeGame, ResumeGameRequest{RoomCode: code})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.False(t, snapshot.IsPaused)
	require.Len(t, guest.sender.typed(EventTypeGameResumed), 1)

	// Pause requests were cleared on resume, so one request alone does not
	// pause again.
	test.dispatch(t, host, RequestTypeRequestPause, RequestPauseRequest{RoomCode: code, PlayerName: "A"})
	snapshot, _ = test.handler.RoomSnapshot(code)
	require.False(t, snapshot.IsPaused)
}

func TestCompletionRace(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, time.Minute)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)

	test.dispatch(t, host, RequestTypeGameComplete, GameCompleteRequest{
		RoomCode: code, PlayerName: "A", TimeSeconds: 120, Mistakes: 1, HintsUsed: 2,
	})
	test.dispatch(t, guest, RequestTypeGameComplete, GameCompleteRequest{
		RoomCode: code, PlayerName: "B", TimeSeconds: 121,
	})

	// Only the first completion decides the winner; the second is dropped.
	ended := host.sender.typed(EventTypeGameEnded)
	require.Len(t, ended, 1)
	payload := ended[0].Payload.(GameEndedEvent)
	require.Equal(t, "A", payload.Winner)
	require.Equal(t, 120, payload.PlayerData.TimeSeconds)
	require.Len(t, guest.sender.typed(EventTypeGameEnded), 1)

	snapshot, loaded := test.handler.RoomSnapshot(code)
	require.True(t, loaded)
	require.Equal(t, RoomStatusCompleted, snapshot.Status)

	require.Eventually(t, func() bool {
		return len(test.results.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	result := test.results.snapshot()[0]
	require.Equal(t, MatchStatusCompleted, result.Status)
	require.Equal(t, "A", result.WinnerName)
	require.Equal(t, "B", result.LoserName)
	require.Equal(t, 120, result.WinnerTime)
	require.Equal(t, 1, result.WinnerMistakes)
	require.Equal(t, 2, result.WinnerHints)
	require.Equal(t, code, result.RoomCode)
}

func TestGraceDelete(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 50*time.Millisecond)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)
	test.dispatch(t, host, RequestTypeGameComplete, GameCompleteRequest{RoomCode: code, PlayerName: "A"})

	// During the grace window the room is still queryable as completed.
	snapshot, loaded := test.handler.RoomSnapshot(code)
	require.True(t, loaded)
	require.Equal(t, RoomStatusCompleted, snapshot.Status)

	require.Eventually(t, func() bool {
		_, loaded := test.handler.RoomSnapshot(code)
		return !loaded
	}, time.Second, 10*time.Millisecond)
}

func TestLeaveWhileWaiting(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	code := test.createRoom(t, host, "A")

	test.dispatch(t, host, RequestTypeLeaveRoom, LeaveRoomRequest{RoomCode: code, PlayerName: "A"})
	_, loaded := test.handler.RoomSnapshot(code)
	require.False(t, loaded, "a waiting room is removed immediately, without grace delay")
	require.Empty(t, test.results.snapshot())
}

func TestLeaveWhilePlaying(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)

	test.dispatch(t, guest, RequestTypeLeaveRoom, LeaveRoomRequest{RoomCode: code, PlayerName: "B"})
	left := host.sender.typed(EventTypePlayerLeft)
	require.Len(t, left, 1)
	require.Equal(t, "B", left[0].Payload.(PlayerLeftEvent).PlayerName)

	_, loaded := test.handler.RoomSnapshot(code)
	require.False(t, loaded)

	require.Eventually(t, func() bool {
		return len(test.results.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	result := test.results.snapshot()[0]
	require.Equal(t, MatchStatusAbandoned, result.Status)
	require.Equal(t, "B", result.LeftByPlayer)
	require.Equal(t, "A", result.WinnerName)
}

func TestDisconnectWhilePlaying(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	host := test.newClient(t)
	guest := test.newClient(t)
	code := test.createRoom(t, host, "A")
	test.startPlaying(t, host, guest, code)

	test.handler.Disconnect(context.Background(), host.connectionID)
	left := guest.sender.typed(EventTypePlayerLeft)
	require.Len(t, left, 1)
	require.Equal(t, "A", left[0].Payload.(PlayerLeftEvent).PlayerName)

	require.Eventually(t, func() bool {
		return len(test.results.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	result := test.results.snapshot()[0]
	require.Equal(t, MatchStatusAbandoned, result.Status)
	require.Equal(t, "A", result.LeftByPlayer)
	require.Equal(t, "B", result.WinnerName)

	// A duplicate disconnect after the room is gone is a silent no-op.
	test.handler.Disconnect(context.Background(), guest.connectionID)
	require.Len(t, test.results.snapshot(), 1)
}

func TestUnknownRoom(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	client := test.newClient(t)

	for _, requestType := range []string{
		RequestTypePlayerReady,
		RequestTypeStartGame,
		RequestTypeUpdateProgress,
		RequestTypeRequestPause,
		RequestTypeResumeGame,
		RequestTypeGameComplete,
	} {
		client.sender.events = nil
		test.handler.Dispatch(context.Background(), client.connectionID, Request{
			Type:    requestType,
			Payload: json.RawMessage(`{"roomCode":"ZZZZZZ","playerName":"A"}`),
		})
		errs := client.sender.typed(EventTypeError)
		require.Len(t, errs, 1, requestType)
		require.Equal(t, "room not found", errs[0].Payload.(ErrorEvent).Message, requestType)
	}

	// leaveRoom tolerates unknown codes silently.
	client.sender.events = nil
	test.dispatch(t, client, RequestTypeLeaveRoom, LeaveRoomRequest{RoomCode: "ZZZZZZ", PlayerName: "A"})
	require.Empty(t, client.sender.events)
}

func TestInvalidPayload(t *testing.T) {
	t.Parallel()
	test := newHandlerTest(t, 0)
	client := test.newClient(t)

	test.handler.Dispatch(context.Background(), client.connectionID, Request{
		Type:    RequestTypeCreateRoom,
		Payload: json.RawMessage(`"not an object"`),
	})
	errs := client.sender.typed(EventTypeError)
	require.Len(t, errs, 1)
	require.True(t, strings.HasPrefix(errs[0].Payload.(ErrorEvent).Message, "invalid "))

	test.handler.Dispatch(context.Background(), client.connectionID, Request{Type: "emptyPayload"})
	errs = client.sender.typed(EventTypeError)
	require.Len(t, errs, 2)
	require.Contains(t, errs[1].Payload.(ErrorEvent).Message, "unknown event type")
}
