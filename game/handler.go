package game

import (
	"context"
	"sync"
	"time"

	C "github.com/nijks777/sudoku/constant"
	"github.com/nijks777/sudoku/log"

	"github.com/gofrs/uuid/v5"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"
)

// Sender delivers an outbound event to one connection. Implementations must
// not block: the handler calls Send while holding its lock.
type Sender interface {
	Send(event *Event)
}

// ResultStore persists terminal match records. Writes are fire-and-forget
// with respect to the protocol state machine.
type ResultStore interface {
	SaveMatchResult(result MatchResult) error
}

const (
	MatchStatusCompleted = "completed"
	MatchStatusAbandoned = "abandoned"
)

type MatchResult struct {
	RoomCode       string    `json:"roomCode"`
	Status         string    `json:"status"`
	WinnerName     string    `json:"winnerName"`
	WinnerTime     int       `json:"winnerTime,omitempty"`
	WinnerMistakes int       `json:"winnerMistakes,omitempty"`
	WinnerHints    int       `json:"winnerHints,omitempty"`
	LoserName      string    `json:"loserName,omitempty"`
	LeftByPlayer   string    `json:"leftByPlayer,omitempty"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Handler is the multiplayer protocol state machine. Every inbound event,
// including transport-level disconnects, runs to completion under one lock,
// so handler execution is atomic per event and no two events interleave
// mutations on the same room.
type Handler struct {
	access     sync.Mutex
	logger     log.ContextLogger
	registry   *Registry
	results    ResultStore
	senders    map[uuid.UUID]Sender
	graceDelay time.Duration
}

func NewHandler(logger log.ContextLogger, registry *Registry, results ResultStore, graceDelay time.Duration) *Handler {
	if graceDelay == 0 {
		graceDelay = C.CompletedRoomGrace
	}
	return &Handler{
		logger:     logger,
		registry:   registry,
		results:    results,
		senders:    make(map[uuid.UUID]Sender),
		graceDelay: graceDelay,
	}
}

func (h *Handler) Attach(connectionID uuid.UUID, sender Sender) {
	h.access.Lock()
	defer h.access.Unlock()
	h.senders[connectionID] = sender
}

// RoomSnapshot serves the read-only room query. During the grace window
// after completion the room is still present and reads as completed.
func (h *Handler) RoomSnapshot(code string) (*RoomSnapshot, bool) {
	h.access.Lock()
	defer h.access.Unlock()
	room, loaded := h.registry.Get(code)
	if !loaded {
		return nil, false
	}
	return room.Snapshot(), true
}

// Dispatch processes one inbound event to completion.
func (h *Handler) Dispatch(ctx context.Context, connectionID uuid.UUID, request Request) {
	h.access.Lock()
	defer h.access.Unlock()
	switch request.Type {
	case RequestTypeCreateRoom:
		h.handleCreateRoom(ctx, connectionID, request.Payload)
	case RequestTypeJoinRoom:
		h.handleJoinRoom(ctx, connectionID, request.Payload)
	case RequestTypePlayerReady:
		h.handlePlayerReady(ctx, connectionID, request.Payload)
	case RequestTypeStartGame:
		h.handleStartGame(ctx, connectionID, request.Payload)
	case RequestTypeUpdateProgress:
		h.handleUpdateProgress(ctx, connectionID, request.Payload)
	case RequestTypeRequestPause:
		h.handleRequestPause(ctx, connectionID, request.Payload)
	case RequestTypeResumeGame:
		h.handleResumeGame(ctx, connectionID, request.Payload)
	case RequestTypeGameComplete:
		h.handleGameComplete(ctx, connectionID, request.Payload)
	case RequestTypeLeaveRoom:
		h.handleLeaveRoom(ctx, connectionID, request.Payload)
	default:
		h.sendTo(connectionID, &Event{Type: EventTypeError, Payload: ErrorEvent{Message: "unknown event type: " + request.Type}})
	}
}

// Disconnect handles transport loss: the room is looked up by connection id
// rather than an explicit room code, then treated as a leave.
func (h *Handler) Disconnect(ctx context.Context, connectionID uuid.UUID) {
	h.access.Lock()
	defer h.access.Unlock()
	defer delete(h.senders, connectionID)
	code, loaded := h.registry.CodeByConnection(connectionID)
	if !loaded {
		return
	}
	room, loaded := h.registry.Get(code)
	if !loaded {
		h.registry.UnbindConnection(connectionID)
		return
	}
	player := room.playerByConnection(connectionID)
	if player == nil {
		h.registry.UnbindConnection(connectionID)
		return
	}
	h.logger.DebugContext(ctx, "connection lost, leaving room ", code, " as ", player.Name)
	h.leave(ctx, room, player.Name)
}

func decodePayload[T any](payload json.RawMessage) (T, error) {
	var request T
	if len(payload) == 0 {
		return request, E.New("missing payload")
	}
	err := json.Unmarshal(payload, &request)
	return request, err
}

func (h *Handler) sendTo(connectionID uuid.UUID, event *Event) {
	sender, loaded := h.senders[connectionID]
	if !loaded {
		return
	}
	sender.Send(event)
}

func (h *Handler) sendToPlayer(player *Player, event *Event) {
	if player == nil {
		return
	}
	h.sendTo(player.ConnectionID, event)
}

func (h *Handler) broadcast(room *Room, event *Event) {
	h.sendToPlayer(room.Host, event)
	h.sendToPlayer(room.Guest, event)
}

func (h *Handler) sendError(connectionID uuid.UUID, message string) {
	h.sendTo(connectionID, &Event{Type: EventTypeError, Payload: ErrorEvent{Message: message}})
}

// fetchRoom resolves a room code for events that require an existing room.
// Unknown codes produce a scoped room-not-found error to the requester.
func (h *Handler) fetchRoom(connectionID uuid.UUID, code string) (*Room, bool) {
	room, loaded := h.registry.Get(code)
	if !loaded {
		h.sendError(connectionID, "room not found")
		return nil, false
	}
	return room, true
}

func (h *Handler) handleCreateRoom(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[CreateRoomRequest](payload)
	if err != nil || request.HostName == "" {
		h.sendError(connectionID, "invalid createRoom request")
		return
	}
	room := &Room{
		Code: h.registry.GenerateUniqueCode(),
		Host: &Player{
			ConnectionID: connectionID,
			Name:         request.HostName,
		},
		Difficulty:    request.Difficulty,
		GridSize:      request.GridSize,
		PuzzleID:      request.PuzzleID,
		Status:        RoomStatusWaiting,
		PauseRequests: make(map[string]bool),
	}
	h.registry.Create(room)
	h.registry.BindConnection(connectionID, room.Code)
	h.logger.InfoContext(ctx, "room ", room.Code, " created by ", request.HostName)
	h.sendTo(connectionID, &Event{Type: EventTypeRoomCreated, Payload: RoomCreatedEvent{RoomCode: room.Code, Room: room.Snapshot()}})
}

func (h *Handler) handleJoinRoom(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[JoinRoomRequest](payload)
	if err != nil || request.GuestName == "" {
		h.sendError(connectionID, "invalid joinRoom request")
		return
	}
	room, loaded := h.registry.Get(request.RoomCode)
	if !loaded {
		h.sendError(connectionID, "room not found")
		return
	}
	if room.Guest != nil {
		h.sendError(connectionID, "room is full")
		return
	}
	if room.Status != RoomStatusWaiting {
		h.sendError(connectionID, "game already started")
		return
	}
	room.Guest = &Player{
		ConnectionID: connectionID,
		Name:         request.GuestName,
	}
	h.registry.BindConnection(connectionID, room.Code)
	h.logger.InfoContext(ctx, request.GuestName, " joined room ", room.Code)
	h.sendTo(connectionID, &Event{Type: EventTypeRoomJoined, Payload: RoomJoinedEvent{Room: room.Snapshot()}})
	h.broadcast(room, &Event{Type: EventTypePlayerJoined, Payload: PlayerJoinedEvent{Room: room.Snapshot()}})
}

func (h *Handler) handlePlayerReady(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[PlayerReadyRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid playerReady request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	player := room.playerByName(request.PlayerName)
	if player == nil {
		h.sendError(connectionID, "player not in room")
		return
	}
	player.Ready = true
	if room.Status == RoomStatusWaiting && room.bothReady() {
		room.Status = RoomStatusReady
	}
	h.broadcast(room, &Event{Type: EventTypePlayerReadyUpdate, Payload: PlayerReadyUpdateEvent{Room: room.Snapshot()}})
}

func (h *Handler) handleStartGame(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[StartGameRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid startGame request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	if room.Status != RoomStatusReady {
		h.sendError(connectionID, "room is not ready")
		return
	}
	if room.Host == nil || room.Host.ConnectionID != connectionID {
		h.sendError(connectionID, "only the host can start the game")
		return
	}
	room.Status = RoomStatusPlaying
	room.StartedAt = time.Now()
	h.logger.InfoContext(ctx, "game started in room ", room.Code)
	h.broadcast(room, &Event{Type: EventTypeGameStarted, Payload: GameStartedEvent{
		Room:              room.Snapshot(),
		StartTime:         room.StartedAt.UnixMilli(),
		HintFreezeSeconds: int(C.HintFreezeDuration / time.Second),
	}})
}

func (h *Handler) handleUpdateProgress(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[UpdateProgressRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid updateProgress request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	player := room.playerByName(request.PlayerName)
	if player == nil {
		return
	}
	// The reported value is trusted as-is; anti-cheat is out of scope.
	player.Progress = request.Progress
	h.sendToPlayer(room.opponentOf(request.PlayerName), &Event{Type: EventTypeOpponentProgress, Payload: OpponentProgressEvent{
		PlayerName: request.PlayerName,
		Progress:   request.Progress,
	}})
}

func (h *Handler) handleRequestPause(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[RequestPauseRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid requestPause request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	room.PauseRequests[request.PlayerName] = true
	if room.Host != nil && room.Guest != nil &&
		room.PauseRequests[room.Host.Name] && room.PauseRequests[room.Guest.Name] {
		room.Paused = true
		h.broadcast(room, &Event{Type: EventTypeGamePaused, Payload: GamePausedEvent{Room: room.Snapshot()}})
		return
	}
	h.sendToPlayer(room.opponentOf(request.PlayerName), &Event{Type: EventTypePauseRequested, Payload: PauseRequestedEvent{
		PlayerName: request.PlayerName,
	}})
}

func (h *Handler) handleResumeGame(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[ResumeGameRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid resumeGame request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	room.Paused = false
	room.PauseRequests = make(map[string]bool)
	h.broadcast(room, &Event{Type: EventTypeGameResumed, Payload: GameResumedEvent{Room: room.Snapshot()}})
}

func (h *Handler) handleGameComplete(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[GameCompleteRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid gameComplete request")
		return
	}
	room, loaded := h.fetchRoom(connectionID, request.RoomCode)
	if !loaded {
		return
	}
	if room.Status == RoomStatusCompleted {
		// The winner was decided by whichever completion arrived first;
		// a later completion for the same room must not overwrite it.
		h.logger.DebugContext(ctx, "ignoring gameComplete for already completed room ", room.Code)
		return
	}
	room.Status = RoomStatusCompleted
	winner := request.PlayerName
	var loser string
	if opponent := room.opponentOf(winner); opponent != nil {
		loser = opponent.Name
	}
	h.logger.InfoContext(ctx, "room ", room.Code, " completed, winner ", winner)
	h.persist(ctx, MatchResult{
		RoomCode:       room.Code,
		Status:         MatchStatusCompleted,
		WinnerName:     winner,
		WinnerTime:     request.TimeSeconds,
		WinnerMistakes: request.Mistakes,
		WinnerHints:    request.HintsUsed,
		LoserName:      loser,
		CompletedAt:    time.Now(),
	})
	h.broadcast(room, &Event{Type: EventTypeGameEnded, Payload: GameEndedEvent{
		Winner:     winner,
		PlayerData: request,
	}})
	h.scheduleDelete(room)
}

func (h *Handler) handleLeaveRoom(ctx context.Context, connectionID uuid.UUID, payload json.RawMessage) {
	request, err := decodePayload[LeaveRoomRequest](payload)
	if err != nil {
		h.sendError(connectionID, "invalid leaveRoom request")
		return
	}
	// A duplicate leave after the room was already deleted is routine, so
	// an unknown code is a silent no-op here, unlike the other events.
	room, loaded := h.registry.Get(request.RoomCode)
	if !loaded {
		return
	}
	h.leave(ctx, room, request.PlayerName)
}

func (h *Handler) leave(ctx context.Context, room *Room, playerName string) {
	h.sendToPlayer(room.opponentOf(playerName), &Event{Type: EventTypePlayerLeft, Payload: PlayerLeftEvent{PlayerName: playerName}})
	if room.Status == RoomStatusPlaying {
		var winner string
		if opponent := room.opponentOf(playerName); opponent != nil {
			winner = opponent.Name
		}
		h.persist(ctx, MatchResult{
			RoomCode:     room.Code,
			Status:       MatchStatusAbandoned,
			LeftByPlayer: playerName,
			WinnerName:   winner,
			CompletedAt:  time.Now(),
		})
	}
	if room.Status != RoomStatusCompleted {
		h.removeRoom(room)
	}
}

// persist hands a terminal record to storage without blocking the event:
// the broadcast already happened or follows immediately, and a write
// failure is logged, never retried, and never reverses the in-memory
// transition.
func (h *Handler) persist(ctx context.Context, result MatchResult) {
	go func() {
		err := h.results.SaveMatchResult(result)
		if err != nil {
			h.logger.ErrorContext(ctx, E.Cause(err, "persist ", result.Status, " result for room ", result.RoomCode))
		}
	}()
}

// scheduleDelete arms the grace timer for a completed room. The closure
// captures only the code and re-fetches the room under the lock.
func (h *Handler) scheduleDelete(room *Room) {
	code := room.Code
	room.deleteTimer = time.AfterFunc(h.graceDelay, func() {
		h.access.Lock()
		defer h.access.Unlock()
		room, loaded := h.registry.Get(code)
		if !loaded {
			return
		}
		h.removeRoom(room)
	})
}

func (h *Handler) removeRoom(room *Room) {
	if room.deleteTimer != nil {
		room.deleteTimer.Stop()
		room.deleteTimer = nil
	}
	if room.Host != nil {
		h.registry.UnbindConnection(room.Host.ConnectionID)
	}
	if room.Guest != nil {
		h.registry.UnbindConnection(room.Guest.ConnectionID)
	}
	h.registry.Delete(room.Code)
}
