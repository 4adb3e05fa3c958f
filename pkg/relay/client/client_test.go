package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/relay"
)

func TestOpponents(t *testing.T) {
	o := NewOpponents("alice")
	o.Handle(model.Packet{Method: model.MethodRender, Username: "carol", X: 1, Y: 2, Z: 3, RR: 12})
	o.Handle(model.Packet{Method: model.MethodRender, Username: "bob", X: 4})
	o.Handle(model.Packet{Method: model.MethodRender, Username: "alice", X: 99})
	o.Handle(model.Packet{Method: model.MethodChat, Username: "dave", Message: "hi"})

	want := []Marker{
		{Username: "bob", Position: model.Vec3{X: 4}},
		{Username: "carol", Position: model.Vec3{X: 1, Y: 2, Z: 3}, RefreshMs: 12},
	}
	if diff := cmp.Diff(want, o.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	o.Handle(model.Packet{Method: model.MethodRender, Username: "bob", X: 5})
	o.Handle(model.Packet{Method: model.MethodLeave, Username: "carol"})
	assert.Equal(t, []Marker{{Username: "bob", Position: model.Vec3{X: 5}}}, o.Snapshot())
}

func TestLeaderboard(t *testing.T) {
	b := NewLeaderboard()
	b.Handle(model.Packet{Method: model.MethodFinish, Username: "bob", ElapsedTime: 42.5})
	b.Handle(model.Packet{Method: model.MethodFinish, Username: "alice", ElapsedTime: 40})
	b.Handle(model.Packet{Method: model.MethodFinish, Username: "bob", ElapsedTime: 39})
	b.Handle(model.Packet{Method: model.MethodFinish, Username: "carol", ElapsedTime: 40})
	b.Handle(model.Packet{Method: model.MethodFinish, Username: "bob", ElapsedTime: 50})
	b.Handle(model.Packet{Method: model.MethodRender, Username: "dave"})

	assert.Equal(t, []Entry{
		{Username: "bob", Time: 39 * time.Second},
		{Username: "alice", Time: 40 * time.Second},
		{Username: "carol", Time: 40 * time.Second},
	}, b.Entries())

	b.Reset()
	assert.Empty(t, b.Entries())
}

func TestTransportRoundTrip(t *testing.T) {
	srv := relay.NewServer()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	created := make(chan model.Packet, 1)
	opponents := NewOpponents("alice")
	host, err := Dial(context.Background(), url,
		WithHandler(opponents.Handle),
		WithHandler(func(p model.Packet) {
			if p.Method == model.MethodCreate {
				created <- p
			}
		}))
	require.NoError(t, err)
	defer host.Close()

	joined := make(chan model.Packet, 4)
	guest, err := Dial(context.Background(), url, WithHandler(func(p model.Packet) {
		if p.Method == model.MethodJoin {
			joined <- p
		}
	}))
	require.NoError(t, err)
	defer guest.Close()

	host.Send(model.Packet{Method: model.MethodCreate, Username: "alice", Track: "track1"})
	var code string
	select {
	case p := <-created:
		code = p.Code
	case <-time.After(2 * time.Second):
		t.Fatal("no create reply")
	}

	guest.Send(model.Packet{Method: model.MethodJoin, Username: "bob", Code: code})
	select {
	case p := <-joined:
		assert.Equal(t, []string{"alice", "bob"}, p.Users)
	case <-time.After(2 * time.Second):
		t.Fatal("no join reply")
	}

	guest.Send(model.Packet{Method: model.MethodRender, Username: "bob", Code: code, X: 7, RR: 16})
	assert.Eventually(t, func() bool {
		return len(opponents.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "bob", opponents.Snapshot()[0].Username)
}

func TestSendWhenClosed(t *testing.T) {
	srv := relay.NewServer()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	tr, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	require.NoError(t, err)
	assert.True(t, tr.Open())

	require.NoError(t, tr.Close())
	assert.False(t, tr.Open())
	assert.ErrorIs(t, tr.TrySend(model.Packet{Method: model.MethodRender}), ErrNotOpen)
	// must not panic or block
	tr.Send(model.Packet{Method: model.MethodRender})
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws")
	assert.Error(t, err)
}
