package nats

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/relay/proxy"
	"github.com/kartrace/kartrace-go/pkg/utils/broadcast"
)

const DefaultSubjectPrefix = "kartrace.room"

type (
	topic struct {
		sub    *nats.Subscription
		source chan []byte
		bcst   broadcast.Server[[]byte]
	}
	// NatsProxy shares rooms between relay instances. Each instance holds one
	// nats subscription per topic and fans out locally.
	NatsProxy struct {
		conn   *nats.Conn
		prefix string
		buffer int
		mu     sync.Mutex
		topics map[string]*topic
		closed bool
		l      *log.Logger
	}
	Option func(*NatsProxy)
)

var _ proxy.Proxy = (*NatsProxy)(nil)

func WithLogger(l *log.Logger) Option {
	return func(n *NatsProxy) {
		n.l = l
	}
}

func WithSubjectPrefix(prefix string) Option {
	return func(n *NatsProxy) {
		n.prefix = prefix
	}
}

func NewNatsProxy(conn *nats.Conn, opts ...Option) *NatsProxy {
	ret := &NatsProxy{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		buffer: 64,
		topics: make(map[string]*topic),
		l:      log.Default().Named("relay.proxy.nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (n *NatsProxy) subject(name string) string {
	return fmt.Sprintf("%s.%s", n.prefix, name)
}

func (n *NatsProxy) Publish(name string, data []byte) error {
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return proxy.ErrClosed
	}
	return n.conn.Publish(n.subject(name), data)
}

func (n *NatsProxy) topic(name string) (*topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, proxy.ErrClosed
	}
	if t, ok := n.topics[name]; ok {
		return t, nil
	}
	src := make(chan []byte, n.buffer)
	sub, err := n.conn.Subscribe(n.subject(name), func(msg *nats.Msg) {
		select {
		case src <- msg.Data:
		default:
			n.l.Debug("topic congested, dropping packet", log.String("topic", name))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}
	t := &topic{
		sub:    sub,
		source: src,
		bcst: broadcast.New(name, src,
			broadcast.WithBufferSize[[]byte](n.buffer),
			broadcast.WithLogger[[]byte](n.l)),
	}
	n.topics[name] = t
	return t, nil
}

func (n *NatsProxy) Subscribe(name string) (<-chan []byte, func(), error) {
	t, err := n.topic(name)
	if err != nil {
		return nil, nil, err
	}
	ch := t.bcst.Subscribe()
	var once sync.Once
	return ch, func() { once.Do(func() { t.bcst.CancelSubscription(ch) }) }, nil
}

func (n *NatsProxy) Release(name string) {
	n.mu.Lock()
	t, ok := n.topics[name]
	delete(n.topics, name)
	n.mu.Unlock()
	if ok {
		n.closeTopic(name, t)
	}
}

func (n *NatsProxy) closeTopic(name string, t *topic) {
	if err := t.sub.Unsubscribe(); err != nil {
		n.l.Warn("could not unsubscribe", log.String("topic", name), log.ErrorField(err))
	}
	t.bcst.Close()
}

// Close releases all topics. The nats connection is owned by the caller.
func (n *NatsProxy) Close() {
	n.mu.Lock()
	topics := n.topics
	n.topics = make(map[string]*topic)
	n.closed = true
	n.mu.Unlock()
	for name, t := range topics {
		n.closeTopic(name, t)
	}
}
