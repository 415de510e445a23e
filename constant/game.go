package constant

import "time"

// RoomCodeAlphabet drops visually ambiguous symbols: I and O from the
// letters, 0 from the digits. 33 symbols total.
const (
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	RoomCodeLength   = 6
)

const (
	// GenerateAttempts bounds the retry loop for producing a completed grid.
	GenerateAttempts = 100

	// HintCount is the number of precomputed hints attached to a puzzle.
	HintCount = 3

	// CompletedRoomGrace keeps a finished room queryable for trailing
	// broadcasts before the registry drops it.
	CompletedRoomGrace = 30 * time.Second

	// HintFreezeDuration is the input freeze applied client-side after a
	// hint reveal in multiplayer, surfaced to clients on game start.
	HintFreezeDuration = 8 * time.Second
)

const (
	DefaultPoolSize        = 10
	MaxPoolSize            = 50
	PuzzlePoolTTL          = 24 * time.Hour
	LeaderboardTTL         = 5 * time.Minute
	DefaultLeaderboardSize = 10
	DefaultStorePath       = "sudoku.db"
	DefaultAPIListen       = "127.0.0.1:8090"
)
