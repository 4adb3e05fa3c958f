package local

import (
	"sync"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/relay/proxy"
	"github.com/kartrace/kartrace-go/pkg/utils/broadcast"
)

type (
	topic struct {
		source chan []byte
		bcst   broadcast.Server[[]byte]
	}
	// LocalProxy fans out within this process.
	LocalProxy struct {
		mu     sync.Mutex
		topics map[string]*topic
		closed bool
		buffer int
		l      *log.Logger
	}
	Option func(*LocalProxy)
)

var _ proxy.Proxy = (*LocalProxy)(nil)

func WithLogger(l *log.Logger) Option {
	return func(p *LocalProxy) {
		p.l = l
	}
}

// WithBufferSize sets the channel size of every subscription.
func WithBufferSize(n int) Option {
	return func(p *LocalProxy) {
		p.buffer = n
	}
}

func NewLocalProxy(opts ...Option) *LocalProxy {
	ret := &LocalProxy{
		topics: make(map[string]*topic),
		buffer: 64,
		l:      log.Default().Named("relay.proxy.local"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *LocalProxy) topic(name string) (*topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, proxy.ErrClosed
	}
	t, ok := p.topics[name]
	if !ok {
		src := make(chan []byte, p.buffer)
		t = &topic{
			source: src,
			bcst: broadcast.New(name, src,
				broadcast.WithBufferSize[[]byte](p.buffer),
				broadcast.WithLogger[[]byte](p.l)),
		}
		p.topics[name] = t
	}
	return t, nil
}

func (p *LocalProxy) Publish(name string, data []byte) error {
	t, err := p.topic(name)
	if err != nil {
		return err
	}
	select {
	case t.source <- data:
	default:
		p.l.Debug("topic congested, dropping packet", log.String("topic", name))
	}
	return nil
}

func (p *LocalProxy) Subscribe(name string) (<-chan []byte, func(), error) {
	t, err := p.topic(name)
	if err != nil {
		return nil, nil, err
	}
	ch := t.bcst.Subscribe()
	var once sync.Once
	return ch, func() { once.Do(func() { t.bcst.CancelSubscription(ch) }) }, nil
}

func (p *LocalProxy) Release(name string) {
	p.mu.Lock()
	t, ok := p.topics[name]
	delete(p.topics, name)
	p.mu.Unlock()
	if ok {
		t.bcst.Close()
	}
}

func (p *LocalProxy) Close() {
	p.mu.Lock()
	topics := p.topics
	p.topics = make(map[string]*topic)
	p.closed = true
	p.mu.Unlock()
	for _, t := range topics {
		t.bcst.Close()
	}
}
