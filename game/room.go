package game

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusReady     RoomStatus = "ready"
	RoomStatusPlaying   RoomStatus = "playing"
	RoomStatusCompleted RoomStatus = "completed"
)

// Player is owned exclusively by the room that contains it and mutated only
// by the handler in response to that player's own events.
type Player struct {
	ConnectionID uuid.UUID `json:"-"`
	Name         string    `json:"playerName"`
	Ready        bool      `json:"isReady"`
	Progress     int       `json:"progress"`
}

// Room is one multiplayer match's live state. The registry exclusively owns
// all room instances; the handler re-fetches by code after any asynchronous
// boundary instead of holding a reference across it.
type Room struct {
	Code          string
	Host          *Player
	Guest         *Player
	Difficulty    string
	GridSize      int
	PuzzleID      string
	Status        RoomStatus
	Paused        bool
	PauseRequests map[string]bool
	StartedAt     time.Time

	deleteTimer *time.Timer
}

func (r *Room) playerByName(name string) *Player {
	if r.Host != nil && r.Host.Name == name {
		return r.Host
	}
	if r.Guest != nil && r.Guest.Name == name {
		return r.Guest
	}
	return nil
}

func (r *Room) playerByConnection(connectionID uuid.UUID) *Player {
	if r.Host != nil && r.Host.ConnectionID == connectionID {
		return r.Host
	}
	if r.Guest != nil && r.Guest.ConnectionID == connectionID {
		return r.Guest
	}
	return nil
}

func (r *Room) opponentOf(name string) *Player {
	if r.Host != nil && r.Host.Name != name {
		return r.Host
	}
	if r.Guest != nil && r.Guest.Name != name {
		return r.Guest
	}
	return nil
}

func (r *Room) bothReady() bool {
	return r.Host != nil && r.Guest != nil && r.Host.Ready && r.Guest.Ready
}

// RoomSnapshot is the wire representation of a room.
type RoomSnapshot struct {
	RoomCode   string     `json:"roomCode"`
	Host       *Player    `json:"host"`
	Guest      *Player    `json:"guest"`
	Difficulty string     `json:"difficulty"`
	GridSize   int        `json:"gridSize"`
	PuzzleID   string     `json:"puzzleId"`
	Status     RoomStatus `json:"status"`
	IsPaused   bool       `json:"isPaused"`
}

func (r *Room) Snapshot() *RoomSnapshot {
	snapshot := &RoomSnapshot{
		RoomCode:   r.Code,
		Difficulty: r.Difficulty,
		GridSize:   r.GridSize,
		PuzzleID:   r.PuzzleID,
		Status:     r.Status,
		IsPaused:   r.Paused,
	}
	if r.Host != nil {
		host := *r.Host
		snapshot.Host = &host
	}
	if r.Guest != nil {
		guest := *r.Guest
		snapshot.Guest = &guest
	}
	return snapshot
}
