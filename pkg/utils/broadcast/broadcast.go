// Package broadcast fans out values from one source channel to many
// subscribers.
package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kartrace/kartrace-go/log"
)

type Server[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
}

type (
	Option[T any] func(*server[T])
	server[T any] struct {
		name        string
		source      <-chan T
		listeners   []chan T
		add         chan chan T
		remove      chan (<-chan T)
		ctx         context.Context
		cancel      context.CancelFunc
		sendTimeout time.Duration
		bufferSize  int
		numRcv      atomic.Int64
		numSnd      atomic.Int64
		numSkip     atomic.Int64
		numListener atomic.Int64
		reg         metric.Registration
		l           *log.Logger
	}
)

// WithSendTimeout sets how long a slow subscriber may block a message
// before it is skipped for that message.
func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(s *server[T]) {
		s.sendTimeout = d
	}
}

func WithBufferSize[T any](n int) Option[T] {
	return func(s *server[T]) {
		s.bufferSize = n
	}
}

func WithLogger[T any](l *log.Logger) Option[T] {
	return func(s *server[T]) {
		s.l = l
	}
}

func New[T any](name string, source <-chan T, opts ...Option[T]) Server[T] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &server[T]{
		name:        name,
		source:      source,
		add:         make(chan chan T),
		remove:      make(chan (<-chan T)),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: 50 * time.Millisecond,
		l:           log.Default().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMetrics()
	go s.serve()
	return s
}

func (s *server[T]) Subscribe() <-chan T {
	ch := make(chan T, s.bufferSize)
	select {
	case s.add <- ch:
	case <-s.ctx.Done():
		close(ch)
	}
	return ch
}

func (s *server[T]) CancelSubscription(ch <-chan T) {
	select {
	case s.remove <- ch:
	case <-s.ctx.Done():
	}
}

func (s *server[T]) Close() {
	s.l.Debug("closing broadcast server",
		log.String("name", s.name),
		log.Int64("rcv", s.numRcv.Load()),
		log.Int64("snd", s.numSnd.Load()),
		log.Int64("skip", s.numSkip.Load()))
	if s.reg != nil {
		if err := s.reg.Unregister(); err != nil {
			s.l.Warn("could not unregister metrics", log.ErrorField(err))
		}
	}
	s.cancel()
}

func (s *server[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("kartrace.broadcast")
	attrs := metric.WithAttributes(attribute.String("name", s.name))
	gauge := func(name, desc string) metric.Int64ObservableGauge {
		g, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			s.l.Error("failed to create metric",
				log.String("metric", name),
				log.ErrorField(err))
		}
		return g
	}
	rcv := gauge("kartrace.broadcast.rcv", "Number of received messages")
	snd := gauge("kartrace.broadcast.snd", "Number of sent messages")
	skip := gauge("kartrace.broadcast.skip", "Number of skipped messages")
	listener := gauge("kartrace.broadcast.listener", "Number of listeners")
	if rcv == nil || snd == nil || skip == nil || listener == nil {
		return
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(rcv, s.numRcv.Load(), attrs)
		o.ObserveInt64(snd, s.numSnd.Load(), attrs)
		o.ObserveInt64(skip, s.numSkip.Load(), attrs)
		o.ObserveInt64(listener, s.numListener.Load(), attrs)
		return nil
	}, rcv, snd, skip, listener)
	if err != nil {
		s.l.Error("failed to register metric callback", log.ErrorField(err))
		return
	}
	s.reg = reg
}

func (s *server[T]) serve() {
	defer func() {
		for _, listener := range s.listeners {
			close(listener)
		}
		s.listeners = nil
		s.numListener.Store(0)
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ch := <-s.add:
			s.listeners = append(s.listeners, ch)
			s.numListener.Store(int64(len(s.listeners)))
		case ch := <-s.remove:
			for i, listener := range s.listeners {
				if listener == ch {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					close(listener)
					break
				}
			}
			s.numListener.Store(int64(len(s.listeners)))
		case msg, ok := <-s.source:
			if !ok {
				s.l.Debug("source closed", log.String("name", s.name))
				return
			}
			s.numRcv.Add(1)
			s.deliver(msg)
		}
	}
}

func (s *server[T]) deliver(msg T) {
	for _, listener := range s.listeners {
		select {
		case listener <- msg:
			s.numSnd.Add(1)
		case <-time.After(s.sendTimeout):
			s.numSkip.Add(1)
		}
	}
}

func (s *server[T]) String() string {
	return fmt.Sprintf("broadcast(%s, listeners=%d)", s.name, s.numListener.Load())
}
