//nolint:funlen // ok for tests
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gta "gotest.tools/v3/assert"

	"github.com/kartrace/kartrace-go/pkg/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService(NewMemoryStore())
	_, err := s.Signup(context.Background(), "alice", "secret")
	gta.NilError(t, err)
	return s
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Signup(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = s.Signup(ctx, "", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	p, err := s.Login(ctx, "alice", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.NotEqual(t, "secret", p.Password)
	assert.Len(t, p.PBs, model.NumTracks)
	assert.Equal(t, model.NoPersonalBest, p.PBs["track3"])

	_, err = s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	tests := []struct {
		name  string
		info1 string
		info2 string
		data  string
		want  string
	}{
		{"friends", FieldFriends, "", `["bob","carol"]`, `["bob","carol"]`},
		{"single pb", FieldPBs, "track2", `"1:02.50"`, `"1:02.50"`},
		{"malformed pb", FieldPBs, "track4", `"fast"`, `"--"`},
		{"single keybind", FieldKeybinds, "forward", `38`, `38`},
		{
			"all keybinds", FieldKeybinds, "",
			`{"forward":1,"backward":2,"left":3,"right":4}`,
			`{"forward":1,"backward":2,"left":3,"right":4}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Write(ctx, "alice", tt.info1, tt.info2, json.RawMessage(tt.data))
			assert.NoError(t, err)
			got, err := s.Read(ctx, "alice", tt.info1, tt.info2)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	_, err := s.Read(ctx, "alice", "password", "")
	assert.ErrorIs(t, err, ErrUnknownField)
	err = s.Write(ctx, "alice", FieldKeybinds, "jump", json.RawMessage(`1`))
	assert.ErrorIs(t, err, ErrUnknownField)
	err = s.Write(ctx, "alice", FieldPBs, "", json.RawMessage(`"0:30.00"`))
	assert.ErrorIs(t, err, ErrUnknownField)
	p, err := s.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.NotContains(t, p.PBs, "")
	_, err = s.Read(ctx, "nobody", FieldFriends, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordFinish(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	improved, err := s.RecordFinish(ctx, "alice", "track1", 42170*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, improved)

	improved, err = s.RecordFinish(ctx, "alice", "track1", 50*time.Second)
	assert.NoError(t, err)
	assert.False(t, improved)

	improved, err = s.RecordFinish(ctx, "alice", "track1", 40*time.Second)
	assert.NoError(t, err)
	assert.True(t, improved)

	p, err := s.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, "0:40.00", p.PBs["track1"])

	// the store holds the same value as the cache
	stored, err := s.store.Load(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, "0:40.00", stored.PBs["track1"])
}

func TestConcurrentUpdatesKeepEveryChange(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	var wg sync.WaitGroup
	for i := 1; i <= model.NumTracks; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.RecordFinish(ctx, "alice", model.TrackKey(i), time.Duration(30+i)*time.Second)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			friends := json.RawMessage(fmt.Sprintf(`["friend%d"]`, i))
			assert.NoError(t, s.Write(ctx, "alice", FieldFriends, "", friends))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Write(ctx, "alice", FieldKeybinds, "brake", json.RawMessage(`16`)))
	}()
	wg.Wait()

	stored, err := s.store.Load(ctx, "alice")
	assert.NoError(t, err)
	for i := 1; i <= model.NumTracks; i++ {
		assert.Equal(t, fmt.Sprintf("0:%02d.00", 30+i), stored.PBs[model.TrackKey(i)])
	}
	assert.Len(t, stored.Friends, 1)
	assert.Equal(t, 16, stored.Keybinds.Brake)
	assert.Empty(t, s.locks.locks)
}
