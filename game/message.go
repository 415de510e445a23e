package game

import "github.com/sagernet/sing/common/json"

const (
	RequestTypeCreateRoom     = "createRoom"
	RequestTypeJoinRoom       = "joinRoom"
	RequestTypePlayerReady    = "playerReady"
	RequestTypeStartGame      = "startGame"
	RequestTypeUpdateProgress = "updateProgress"
	RequestTypeRequestPause   = "requestPause"
	RequestTypeResumeGame     = "resumeGame"
	RequestTypeGameComplete   = "gameComplete"
	RequestTypeLeaveRoom      = "leaveRoom"
)

const (
	EventTypeRoomCreated       = "roomCreated"
	EventTypeRoomJoined        = "roomJoined"
	EventTypePlayerJoined      = "playerJoined"
	EventTypePlayerReadyUpdate = "playerReadyUpdate"
	EventTypeGameStarted       = "gameStarted"
	EventTypeOpponentProgress  = "opponentProgress"
	EventTypePauseRequested    = "pauseRequested"
	EventTypeGamePaused        = "gamePaused"
	EventTypeGameResumed       = "gameResumed"
	EventTypeGameEnded         = "gameEnded"
	EventTypePlayerLeft        = "playerLeft"
	EventTypeError             = "error"
)

// Request is the tagged envelope for inbound wire events. The payload is
// decoded per-type inside the handler; a payload that does not match its
// type produces an error event distinct from protocol precondition errors.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type CreateRoomRequest struct {
	HostName   string `json:"hostName"`
	Difficulty string `json:"difficulty"`
	GridSize   int    `json:"gridSize"`
	PuzzleID   string `json:"puzzleId"`
}

type JoinRoomRequest struct {
	RoomCode  string `json:"roomCode"`
	GuestName string `json:"guestName"`
}

type PlayerReadyRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type UpdateProgressRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Progress   int    `json:"progress"`
}

type RequestPauseRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type ResumeGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type GameCompleteRequest struct {
	RoomCode    string `json:"roomCode"`
	PlayerName  string `json:"playerName"`
	TimeSeconds int    `json:"timeSeconds"`
	Mistakes    int    `json:"mistakes"`
	HintsUsed   int    `json:"hintsUsed"`
}

type LeaveRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type RoomCreatedEvent struct {
	RoomCode string        `json:"roomCode"`
	Room     *RoomSnapshot `json:"room"`
}

type RoomJoinedEvent struct {
	Room *RoomSnapshot `json:"room"`
}

type PlayerJoinedEvent struct {
	Room *RoomSnapshot `json:"room"`
}

type PlayerReadyUpdateEvent struct {
	Room *RoomSnapshot `json:"room"`
}

type GameStartedEvent struct {
	Room *RoomSnapshot `json:"room"`
	// StartTime is the authoritative start timestamp in unix milliseconds.
	StartTime int64 `json:"startTime"`
	// HintFreezeSeconds is the client-side input freeze applied after a
	// hint reveal; the server only advertises the rule.
	HintFreezeSeconds int `json:"hintFreezeSeconds"`
}

type OpponentProgressEvent struct {
	PlayerName string `json:"playerName"`
	Progress   int    `json:"progress"`
}

type PauseRequestedEvent struct {
	PlayerName string `json:"playerName"`
}

type GamePausedEvent struct {
	Room *RoomSnapshot `json:"room"`
}

type GameResumedEvent struct {
	Room *RoomSnapshot `json:"room"`
}

type GameEndedEvent struct {
	Winner     string              `json:"winner"`
	PlayerData GameCompleteRequest `json:"playerData"`
}

type PlayerLeftEvent struct {
	PlayerName string `json:"playerName"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
