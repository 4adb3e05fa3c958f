//nolint:funlen // tests
package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/profile"
)

func startServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	s := NewServer(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts.URL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, p model.Packet) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(p))
}

// expect reads until a packet with the given method arrives.
func expect(t *testing.T, ws *websocket.Conn, method string) model.Packet {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var p model.Packet
		require.NoError(t, ws.ReadJSON(&p))
		if p.Method == method {
			return p
		}
	}
}

// expectSilence must be the last read on ws.
func expectSilence(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var p model.Packet
	err := ws.ReadJSON(&p)
	assert.Error(t, err, "unexpected packet %+v", p)
}

func createRoom(t *testing.T, ws *websocket.Conn, user, track string) string {
	t.Helper()
	send(t, ws, model.Packet{Method: model.MethodCreate, Username: user, Track: track})
	reply := expect(t, ws, model.MethodCreate)
	require.Len(t, reply.Code, 4)
	assert.Equal(t, strings.ToUpper(reply.Code), reply.Code)
	assert.Equal(t, track, reply.Track)
	return reply.Code
}

func TestCreateAndJoin(t *testing.T) {
	_, url := startServer(t)
	host := dial(t, url)
	guest := dial(t, url)

	code := createRoom(t, host, "alice", "track2")

	send(t, guest, model.Packet{Method: model.MethodJoin, Username: "bob", Code: code})
	for _, ws := range []*websocket.Conn{host, guest} {
		joined := expect(t, ws, model.MethodJoin)
		assert.Equal(t, model.Packet{
			Method:   model.MethodJoin,
			Username: "bob",
			Code:     code,
			Users:    []string{"alice", "bob"},
			Track:    "track2",
			Host:     "alice",
		}, joined)
	}

	send(t, host, model.Packet{Method: model.MethodStartMultiplayer, Username: "alice", Code: code})
	expect(t, guest, model.MethodStartMultiplayer)
}

func TestJoinErrors(t *testing.T) {
	s, url := startServer(t, WithRoomCapacity(1), WithRequiredClientVersion("1.2.0"))
	host := dial(t, url)
	guest := dial(t, url)
	code := createRoom(t, host, "alice", "track1")

	tests := []struct {
		name string
		p    model.Packet
		want string
	}{
		{"unknown code", model.Packet{Code: "ZZZZ"}, model.ErrorUnknownCode},
		{"room full", model.Packet{Code: code}, model.ErrorRoomFull},
		{"old client", model.Packet{Code: code, Version: "1.1.9"}, model.ErrorClientVersion},
		{"bad version", model.Packet{Code: code, Version: "banana"}, model.ErrorClientVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			p.Method = model.MethodJoin
			p.Username = "bob"
			send(t, guest, p)
			reply := expect(t, guest, model.MethodJoin)
			assert.Equal(t, tt.want, reply.Track)
		})
	}
	room, ok := s.Rooms().Get(code)
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, room.Users)
}

func TestFanOutStaysInRoom(t *testing.T) {
	_, url := startServer(t)
	a := dial(t, url)
	b := dial(t, url)
	other := dial(t, url)

	code := createRoom(t, a, "alice", "track1")
	createRoom(t, other, "carol", "track1")
	send(t, b, model.Packet{Method: model.MethodJoin, Username: "bob", Code: code})
	expect(t, b, model.MethodJoin)
	expect(t, a, model.MethodJoin)

	send(t, b, model.Packet{
		Method: model.MethodRender, Username: "bob", Code: code,
		X: 1, Y: 2, Z: 3, RR: 16,
	})
	got := expect(t, a, model.MethodRender)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, []float64{1, 2, 3, 16}, []float64{got.X, got.Y, got.Z, got.RR})

	// unknown methods are relayed as they are
	require.NoError(t, b.WriteMessage(websocket.TextMessage,
		[]byte(`{"method":"emote","code":"`+code+`","kind":"wave"}`)))
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := a.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"emote","code":"`+code+`","kind":"wave"}`, string(raw))

	expectSilence(t, other)
}

func TestLobbyChat(t *testing.T) {
	_, url := startServer(t)
	a := dial(t, url)
	b := dial(t, url)
	// make sure both clients are registered before chatting
	createRoom(t, a, "alice", "track1")
	createRoom(t, b, "bob", "track1")

	send(t, a, model.Packet{Method: model.MethodChat, Username: "alice", Message: "hi"})
	got := expect(t, b, model.MethodChat)
	assert.Equal(t, "hi", got.Message)
}

func TestHostLeaves(t *testing.T) {
	s, url := startServer(t)
	host := dial(t, url)
	guest := dial(t, url)
	code := createRoom(t, host, "alice", "track1")
	send(t, guest, model.Packet{Method: model.MethodJoin, Username: "bob", Code: code})
	expect(t, guest, model.MethodJoin)

	require.NoError(t, host.Close())
	left := expect(t, guest, model.MethodLeave)
	assert.Equal(t, "alice", left.Username)
	assert.Equal(t, "bob", left.Host)
	assert.Equal(t, []string{"bob"}, left.Users)

	require.NoError(t, guest.Close())
	assert.Eventually(t, func() bool { return s.Rooms().Len() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestUserReadWrite(t *testing.T) {
	svc := profile.NewService(profile.NewMemoryStore())
	_, err := svc.Signup(context.Background(), "alice", "secret")
	require.NoError(t, err)
	_, url := startServer(t, WithProfiles(svc))
	ws := dial(t, url)

	send(t, ws, model.Packet{
		Method: model.MethodUserWrite, Username: "alice",
		Info1: profile.FieldFriends, Data: json.RawMessage(`["bob"]`),
	})
	assert.Equal(t, "ok", expect(t, ws, model.MethodUserWrite).Message)

	send(t, ws, model.Packet{Method: model.MethodUserRead, Username: "alice", Info1: profile.FieldFriends})
	got := expect(t, ws, model.MethodUserRead)
	assert.JSONEq(t, `["bob"]`, string(got.Data))

	send(t, ws, model.Packet{Method: model.MethodUserRead, Username: "nobody", Info1: profile.FieldFriends})
	assert.NotEmpty(t, expect(t, ws, model.MethodUserRead).Message)
}

func TestFinishRecordsPersonalBest(t *testing.T) {
	svc := profile.NewService(profile.NewMemoryStore())
	_, err := svc.Signup(context.Background(), "alice", "secret")
	require.NoError(t, err)
	_, url := startServer(t, WithProfiles(svc))
	ws := dial(t, url)
	code := createRoom(t, ws, "alice", "track4")

	send(t, ws, model.Packet{Method: model.MethodFinish, Username: "alice", Code: code, ElapsedTime: 61.5})
	expect(t, ws, model.MethodFinish)

	assert.Eventually(t, func() bool {
		p, err := svc.Get(context.Background(), "alice")
		return err == nil && p.PBs["track4"] == "1:01.50"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHTTPRoutes(t *testing.T) {
	_, url := startServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(url + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health["status"])

	resp, err = client.Get(url + "/tracks/track1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(url + "/tracks/track99")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestVersionAccepted(t *testing.T) {
	tests := []struct {
		required string
		got      string
		want     bool
	}{
		{"", "0.1.0", true},
		{"1.0.0", "", true},
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "v1.2.3", true},
		{"v1.3.0", "1.2.9", false},
		{"1.0.0", "latest", false},
	}
	for _, tt := range tests {
		s := &Server{requiredVersion: tt.required}
		assert.Equal(t, tt.want, s.versionAccepted(tt.got), "%s vs %s", tt.required, tt.got)
	}
}

func TestJoinReplyCarriesIngame(t *testing.T) {
	_, url := startServer(t)
	host := dial(t, url)
	guest := dial(t, url)
	code := createRoom(t, host, "alice", "track1")

	send(t, guest, model.Packet{Method: model.MethodJoin, Username: "bob", Code: code})
	require.NoError(t, guest.SetReadDeadline(time.Now().Add(2*time.Second)))
	var fields map[string]any
	for fields["method"] != model.MethodJoin {
		_, raw, err := guest.ReadMessage()
		require.NoError(t, err)
		fields = nil
		require.NoError(t, json.Unmarshal(raw, &fields))
	}
	assert.Equal(t, false, fields["ingame"])
	assert.Equal(t, "alice", fields["host"])
}
