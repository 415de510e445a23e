package game

import (
	"math/rand"
	"sync"

	C "github.com/nijks777/sudoku/constant"

	"github.com/gofrs/uuid/v5"
	"github.com/sagernet/sing/common/random"
)

func init() {
	random.InitializeSeed()
}

// Registry is the process-local table of active rooms, keyed by room code,
// with a connection index for transport-level disconnect lookup. Entries
// vanish on process restart; rooms are short-lived live sessions.
type Registry struct {
	access       sync.RWMutex
	rooms        map[string]*Room
	byConnection map[uuid.UUID]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		byConnection: make(map[uuid.UUID]string),
	}
}

func generateRoomCode() string {
	code := make([]byte, C.RoomCodeLength)
	for i := range code {
		code[i] = C.RoomCodeAlphabet[rand.Intn(len(C.RoomCodeAlphabet))]
	}
	return string(code)
}

func (r *Registry) GenerateUniqueCode() string {
	r.access.RLock()
	defer r.access.RUnlock()
	for {
		code := generateRoomCode()
		if _, exists := r.rooms[code]; !exists {
			return code
		}
	}
}

func (r *Registry) Create(room *Room) {
	r.access.Lock()
	defer r.access.Unlock()
	r.rooms[room.Code] = room
}

func (r *Registry) Get(code string) (*Room, bool) {
	r.access.RLock()
	defer r.access.RUnlock()
	room, loaded := r.rooms[code]
	return room, loaded
}

func (r *Registry) Delete(code string) {
	r.access.Lock()
	defer r.access.Unlock()
	delete(r.rooms, code)
}

func (r *Registry) BindConnection(connectionID uuid.UUID, code string) {
	r.access.Lock()
	defer r.access.Unlock()
	r.byConnection[connectionID] = code
}

func (r *Registry) UnbindConnection(connectionID uuid.UUID) {
	r.access.Lock()
	defer r.access.Unlock()
	delete(r.byConnection, connectionID)
}

func (r *Registry) CodeByConnection(connectionID uuid.UUID) (string, bool) {
	r.access.RLock()
	defer r.access.RUnlock()
	code, loaded := r.byConnection[connectionID]
	return code, loaded
}

func (r *Registry) Len() int {
	r.access.RLock()
	defer r.access.RUnlock()
	return len(r.rooms)
}
