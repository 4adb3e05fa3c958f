package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLifecycle(t *testing.T) {
	m := NewRoomManager(2)
	codes := []string{"ABCD", "ABCD", "WXYZ"}
	m.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	room := m.Create("alice", "track3")
	assert.Equal(t, Room{Code: "ABCD", Track: "track3", Host: "alice", Users: []string{"alice"}}, room)

	// a taken code is not handed out twice
	other := m.Create("dave", "track1")
	assert.Equal(t, "WXYZ", other.Code)

	_, err := m.Join("bob", "NOPE")
	assert.ErrorIs(t, err, ErrUnknownCode)

	room, err = m.Join("bob", "ABCD")
	assert.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, room.Users)

	_, err = m.Join("carol", "ABCD")
	assert.ErrorIs(t, err, ErrRoomFull)

	room, err = m.Start("ABCD")
	assert.NoError(t, err)
	assert.True(t, room.Ingame)

	room, deleted := m.Leave("alice", "ABCD")
	assert.False(t, deleted)
	assert.Equal(t, "bob", room.Host)
	assert.Equal(t, []string{"bob"}, room.Users)

	_, deleted = m.Leave("bob", "ABCD")
	assert.True(t, deleted)
	_, ok := m.Get("ABCD")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := randomCode()
		assert.Regexp(t, "^[A-Z]{4}$", code)
	}
}
