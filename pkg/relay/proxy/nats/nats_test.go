package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	gta "gotest.tools/v3/assert"

	"github.com/kartrace/kartrace-go/pkg/relay/proxy"
	"github.com/kartrace/kartrace-go/testsupport/tcnats"
)

func connect(t *testing.T, url string) *nats.Conn {
	t.Helper()
	conn, err := nats.Connect(url)
	gta.NilError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestSharedRoomAcrossInstances(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	url := tcnats.SetupNats()
	a := NewNatsProxy(connect(t, url), WithSubjectPrefix("test.room"))
	b := NewNatsProxy(connect(t, url), WithSubjectPrefix("test.room"))
	defer a.Close()
	defer b.Close()

	ch, cancel, err := a.Subscribe("ABCD")
	gta.NilError(t, err)
	defer cancel()
	// the subscription must be known to the server before b publishes
	gta.NilError(t, a.conn.Flush())

	gta.NilError(t, b.Publish("ABCD", []byte(`{"method":"render"}`)))
	select {
	case d := <-ch:
		assert.JSONEq(t, `{"method":"render"}`, string(d))
	case <-time.After(5 * time.Second):
		t.Fatal("packet not received")
	}

	a.Release("ABCD")
	_, ok := <-ch
	assert.False(t, ok)

	a.Close()
	assert.ErrorIs(t, a.Publish("ABCD", nil), proxy.ErrClosed)
}
