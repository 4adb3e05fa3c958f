package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = 20 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// conn is one websocket client. Outbound packets are queued on send and
// written by writePump; a full queue drops packets.
type conn struct {
	id   string
	srv  *Server
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	l    *log.Logger

	mu       sync.Mutex
	username string
	code     string
	subs     map[string]func()
}

func newConn(s *Server, ws *websocket.Conn) *conn {
	id := uuid.NewString()
	return &conn{
		id:   id,
		srv:  s,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		subs: make(map[string]func()),
		l:    s.l.With(log.String("conn", id)),
	}
}

func (c *conn) subscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[topic]; ok {
		return nil
	}
	ch, cancel, err := c.srv.proxy.Subscribe(topic)
	if err != nil {
		return err
	}
	c.subs[topic] = cancel
	go func() {
		for data := range ch {
			c.enqueue(data)
		}
	}()
	return nil
}

func (c *conn) unsubscribe(topic string) {
	c.mu.Lock()
	cancel, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *conn) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.l.Debug("send queue full, dropping packet")
	}
}

func (c *conn) reply(p *model.Packet) {
	data, err := json.Marshal(p)
	if err != nil {
		c.l.Error("could not encode reply", log.ErrorField(err))
		return
	}
	c.enqueue(data)
}

func (c *conn) identity() (username, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username, c.code
}

func (c *conn) setIdentity(username, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.code = code
}

func (c *conn) readPump() {
	defer c.close()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.l.Debug("read failed", log.ErrorField(err))
			}
			return
		}
		var p model.Packet
		if err := json.Unmarshal(data, &p); err != nil {
			c.l.Debug("ignoring malformed packet", log.ErrorField(err))
			continue
		}
		c.srv.dispatch(c, &p, data)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// close leaves the current room and ends all subscriptions.
func (c *conn) close() {
	c.once.Do(func() {
		c.srv.leaveRoom(c)
		c.mu.Lock()
		subs := c.subs
		c.subs = map[string]func(){}
		c.mu.Unlock()
		for _, cancel := range subs {
			cancel()
		}
		close(c.done)
	})
}
