package relay

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrUnknownCode = errors.New("unknown game code")
	ErrRoomFull    = errors.New("room is full")
)

type (
	// Room is a snapshot of a game session on this relay instance.
	Room struct {
		Code   string
		Track  string
		Host   string
		Users  []string
		Ingame bool
	}
	RoomManager struct {
		mu       sync.Mutex
		rooms    map[string]*Room
		capacity int
		newCode  func() string
	}
)

func NewRoomManager(capacity int) *RoomManager {
	if capacity <= 0 {
		capacity = 8
	}
	return &RoomManager{
		rooms:    make(map[string]*Room),
		capacity: capacity,
		newCode:  randomCode,
	}
}

func randomCode() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

func (r *Room) snapshot() Room {
	c := *r
	c.Users = slices.Clone(r.Users)
	return c
}

// Create opens a room hosted by username.
func (m *RoomManager) Create(username, track string) Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := m.newCode()
	for m.rooms[code] != nil {
		code = m.newCode()
	}
	room := &Room{Code: code, Track: track, Host: username, Users: []string{username}}
	m.rooms[code] = room
	return room.snapshot()
}

// Join adds username to the room. Joining a room twice is a no-op.
func (m *RoomManager) Join(username, code string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return Room{}, ErrUnknownCode
	}
	if slices.Contains(room.Users, username) {
		return room.snapshot(), nil
	}
	if len(room.Users) >= m.capacity {
		return Room{}, ErrRoomFull
	}
	room.Users = append(room.Users, username)
	return room.snapshot(), nil
}

func (m *RoomManager) Start(code string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return Room{}, ErrUnknownCode
	}
	room.Ingame = true
	return room.snapshot(), nil
}

// Leave removes username from the room. The next member becomes host when
// the host leaves; an empty room is deleted.
func (m *RoomManager) Leave(username, code string) (room Room, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, false
	}
	r.Users = slices.DeleteFunc(r.Users, func(u string) bool { return u == username })
	if len(r.Users) == 0 {
		delete(m.rooms, code)
		return r.snapshot(), true
	}
	if r.Host == username {
		r.Host = r.Users[0]
	}
	return r.snapshot(), false
}

func (m *RoomManager) Get(code string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, false
	}
	return r.snapshot(), true
}

func (m *RoomManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
