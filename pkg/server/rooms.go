package server

import (
	"sync"
)

// RoomKind says where a session currently is.
type RoomKind int

const (
	RoomNone       RoomKind = iota // not tracked
	RoomUnassigned                 // connected, handshake pending
	RoomLobby                      // enrolled, not in a game
	RoomGame                       // in the player set of Room.GameID
)

func (k RoomKind) String() string {
	switch k {
	case RoomUnassigned:
		return "unassigned"
	case RoomLobby:
		return "lobby"
	case RoomGame:
		return "game"
	default:
		return "none"
	}
}

// Room is a session's location. GameID is set only for RoomGame.
type Room struct {
	Kind   RoomKind
	GameID string
}

var (
	unassigned = Room{Kind: RoomUnassigned}
	lobby      = Room{Kind: RoomLobby}
)

func inGame(id string) Room { return Room{Kind: RoomGame, GameID: id} }

// RoomManager maps every tracked session to exactly one room. A session
// cannot be observed in two rooms because it is a single map key.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

// NewRoomManager creates an empty room index.
func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]Room)}
}

// Enter starts tracking a session in room r. It fails if the session is
// already tracked.
func (rm *RoomManager) Enter(sessionID string, r Room) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.rooms[sessionID]; ok {
		return false
	}
	rm.rooms[sessionID] = r
	return true
}

// Move relocates a session from one room to another if it is currently in
// from. The check and the move happen under one lock.
func (rm *RoomManager) Move(sessionID string, from, to Room) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	cur, ok := rm.rooms[sessionID]
	if !ok || cur != from {
		return false
	}
	rm.rooms[sessionID] = to
	return true
}

// Leave stops tracking a session and returns the room it was in.
func (rm *RoomManager) Leave(sessionID string) Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r := rm.rooms[sessionID]
	delete(rm.rooms, sessionID)
	return r
}

// RoomOf returns the room a session is in, or Room{} if untracked.
func (rm *RoomManager) RoomOf(sessionID string) Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[sessionID]
}

// members returns the ids of all sessions in room r.
func (rm *RoomManager) members(r Room) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	var result []string
	for sid, cur := range rm.rooms {
		if cur == r {
			result = append(result, sid)
		}
	}
	return result
}

// Count returns how many sessions are in rooms of the given kind.
func (rm *RoomManager) Count(kind RoomKind) int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	n := 0
	for _, cur := range rm.rooms {
		if cur.Kind == kind {
			n++
		}
	}
	return n
}

// snapshot copies the whole index under one lock.
func (rm *RoomManager) snapshot() map[string]Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	result := make(map[string]Room, len(rm.rooms))
	for sid, r := range rm.rooms {
		result[sid] = r
	}
	return result
}
