// Package client is the racing side of the relay: it sends render and
// finish packets and keeps the opponent markers and the leaderboard.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

var ErrNotOpen = errors.New("transport not open")

type (
	Handler   func(model.Packet)
	Option    func(*Transport)
	Transport struct {
		ws       *websocket.Conn
		send     chan []byte
		done     chan struct{}
		once     sync.Once
		handlers []Handler
		l        *log.Logger
	}
)

// WithHandler registers h for every inbound packet. Handlers run on the
// read goroutine.
func WithHandler(h Handler) Option {
	return func(t *Transport) {
		t.handlers = append(t.handlers, h)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Transport) {
		t.l = l
	}
}

// Dial connects to the relay websocket at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Transport, error) {
	t := &Transport{
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		l:    log.Default().Named("relay.client"),
	}
	for _, opt := range opts {
		opt(t)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	t.ws = ws
	go t.readLoop()
	go t.writeLoop()
	return t, nil
}

// Open reports whether packets are currently delivered.
func (t *Transport) Open() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Send queues p. Packets are dropped silently while the transport is not
// open or the queue is full.
func (t *Transport) Send(p model.Packet) {
	if err := t.TrySend(p); err != nil {
		t.l.Debug("packet dropped", log.String("method", p.Method), log.ErrorField(err))
	}
}

// TrySend is Send with the reason a packet was dropped.
func (t *Transport) TrySend(p model.Packet) error {
	if !t.Open() {
		return ErrNotOpen
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return ErrNotOpen
	default:
		return errors.New("send queue full")
	}
}

func (t *Transport) Close() error {
	t.shutdown()
	return nil
}

func (t *Transport) shutdown() {
	t.once.Do(func() {
		close(t.done)
	})
}

func (t *Transport) readLoop() {
	defer t.shutdown()
	for {
		_, data, err := t.ws.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.l.Info("relay connection lost", log.ErrorField(err))
			}
			return
		}
		var p model.Packet
		if err := json.Unmarshal(data, &p); err != nil {
			t.l.Debug("ignoring malformed packet", log.ErrorField(err))
			continue
		}
		for _, h := range t.handlers {
			h(p)
		}
	}
}

func (t *Transport) writeLoop() {
	defer func() { _ = t.ws.Close() }()
	for {
		select {
		case data := <-t.send:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				t.l.Debug("write failed", log.ErrorField(err))
				t.shutdown()
				return
			}
		case <-t.done:
			_ = t.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
