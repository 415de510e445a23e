package game

import (
	"testing"

	C "github.com/nijks777/sudoku/constant"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueCode(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := registry.GenerateUniqueCode()
		require.Len(t, code, C.RoomCodeLength)
		for _, symbol := range code {
			require.Contains(t, C.RoomCodeAlphabet, string(symbol))
		}
		require.False(t, seen[code])
		seen[code] = true
		registry.Create(&Room{Code: code, Status: RoomStatusWaiting})
	}
	require.Equal(t, 100, registry.Len())
}

func TestCodeAlphabetExcludesAmbiguousSymbols(t *testing.T) {
	t.Parallel()
	require.NotContains(t, C.RoomCodeAlphabet, "I")
	require.NotContains(t, C.RoomCodeAlphabet, "O")
	require.NotContains(t, C.RoomCodeAlphabet, "0")
	require.Len(t, C.RoomCodeAlphabet, 33)
}

func TestConnectionBinding(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	room := &Room{Code: "ABC123", Status: RoomStatusWaiting}
	registry.Create(room)

	connectionID := uuid.Must(uuid.NewV4())
	registry.BindConnection(connectionID, room.Code)
	code, loaded := registry.CodeByConnection(connectionID)
	require.True(t, loaded)
	require.Equal(t, room.Code, code)

	registry.UnbindConnection(connectionID)
	_, loaded = registry.CodeByConnection(connectionID)
	require.False(t, loaded)

	loadedRoom, exists := registry.Get(room.Code)
	require.True(t, exists)
	require.Same(t, room, loadedRoom)

	registry.Delete(room.Code)
	_, exists = registry.Get(room.Code)
	require.False(t, exists)
	require.Zero(t, registry.Len())
}
