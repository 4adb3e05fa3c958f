// Package session owns one race: world, track, vehicle, input and progress.
package session

import (
	"context"
	"time"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/input"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
	"github.com/kartrace/kartrace-go/pkg/processing/control"
	"github.com/kartrace/kartrace-go/pkg/processing/progress"
	"github.com/kartrace/kartrace-go/pkg/track"
)

type (
	// Transport sends packets to the relay. Implementations must not block.
	Transport interface {
		Send(p model.Packet)
	}
	Status struct {
		State     progress.State
		Lap       int
		Laps      int
		Elapsed   time.Duration
		Countdown time.Duration
		Speed     float64
	}
	Option      func(*RaceSession)
	RaceSession struct {
		world     physics.World
		track     *track.Track
		machine   *progress.Machine
		vehicle   *control.Vehicle
		input     *input.State
		keys      model.Keybinds
		tuning    control.Tuning
		progress  []progress.Option
		transport Transport
		username  string
		code      string
		lastTick  time.Time
		refreshMs float64
		finished  bool
		onFinish  func(elapsed time.Duration)
		l         *log.Logger
	}
)

func WithKeybinds(k model.Keybinds) Option {
	return func(s *RaceSession) {
		s.keys = k
	}
}

func WithTuning(t control.Tuning) Option {
	return func(s *RaceSession) {
		s.tuning = t
	}
}

func WithProgressConfig(cfg progress.Config) Option {
	return func(s *RaceSession) {
		s.progress = append(s.progress, progress.WithConfig(cfg))
	}
}

// WithMultiplayer enables render and finish packets for the given game code.
func WithMultiplayer(t Transport, username, code string) Option {
	return func(s *RaceSession) {
		s.transport = t
		s.username = username
		s.code = code
	}
}

// WithFinishHandler registers a callback invoked once when the race is
// finished.
func WithFinishHandler(f func(elapsed time.Duration)) Option {
	return func(s *RaceSession) {
		s.onFinish = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *RaceSession) {
		s.l = l
	}
}

func New(world physics.World, t *track.Track, in *input.State, opts ...Option) *RaceSession {
	s := &RaceSession{
		world:  world,
		track:  t,
		input:  in,
		keys:   model.DefaultKeybinds(),
		tuning: control.DefaultTuning(),
		l:      log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.machine = progress.NewMachine(t, world, append(s.progress, progress.WithLogger(s.l))...)
	return s
}

func (s *RaceSession) Machine() *progress.Machine {
	return s.machine
}

func (s *RaceSession) Vehicle() *control.Vehicle {
	return s.vehicle
}

// Begin places the vehicle on the start piece and arms the countdown.
func (s *RaceSession) Begin(now time.Time) {
	pos, yaw := s.machine.SpawnPoint()
	s.vehicle = control.SpawnVehicle(s.world, pos, yaw)
	s.machine.StartCountdown(now)
	s.lastTick = now
	s.l.Info("race session started",
		log.Int("pieces", len(s.track.Pieces)),
		log.Int("laps", s.track.Laps))
}

// Tick advances the race by one physics step of dt seconds.
func (s *RaceSession) Tick(now time.Time, dt float64) progress.Event {
	if s.vehicle == nil {
		return progress.EventNone
	}
	if !s.lastTick.IsZero() {
		s.refreshMs = float64(now.Sub(s.lastTick).Microseconds()) / 1000
	}
	s.lastTick = now

	s.machine.Update(now)
	cmd := control.Command{}
	if s.machine.State() == progress.StateInProgress {
		cmd = s.tuning.Navigate(s.input, s.keys, s.vehicle.Speed(), s.refreshMs, &s.vehicle.Steering)
	}
	s.vehicle.Apply(cmd)
	if s.input.Held(s.keys.Reset) {
		s.machine.Reset(now, s.vehicle, "reset key")
	}

	s.world.Step(dt)

	s.machine.CheckBounds(now, s.vehicle.State().Position.Y, s.vehicle)
	ev := s.machine.Tick(now, s.vehicle.WheelHandles())
	if ev == progress.EventFinished && !s.finished {
		s.finished = true
		s.emitFinish(now)
	}
	return ev
}

// Render emits the position packet of this racer.
func (s *RaceSession) Render() {
	if s.transport == nil || s.vehicle == nil {
		return
	}
	pos := s.vehicle.State().Position
	s.transport.Send(model.Packet{
		Method:   model.MethodRender,
		Username: s.username,
		Code:     s.code,
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
		RR:       s.refreshMs,
	})
}

func (s *RaceSession) emitFinish(now time.Time) {
	elapsed := s.machine.Elapsed(now)
	if s.onFinish != nil {
		s.onFinish(elapsed)
	}
	if s.transport == nil {
		return
	}
	s.transport.Send(model.Packet{
		Method:      model.MethodFinish,
		Username:    s.username,
		Code:        s.code,
		ElapsedTime: elapsed.Seconds(),
	})
}

// Restart puts the racer back on the start and arms a new countdown.
func (s *RaceSession) Restart(now time.Time) {
	if s.vehicle == nil {
		return
	}
	s.finished = false
	s.machine.ResetToBeginning(now, s.vehicle)
}

func (s *RaceSession) Status(now time.Time) Status {
	st := Status{
		State:     s.machine.State(),
		Lap:       min(s.track.CurrLap, s.track.Laps),
		Laps:      s.track.Laps,
		Elapsed:   s.machine.Elapsed(now),
		Countdown: s.machine.Remaining(now),
	}
	if s.vehicle != nil {
		st.Speed = s.vehicle.Speed()
	}
	return st
}

// Run ticks and renders every interval until ctx is done or the race is
// finished.
func (s *RaceSession) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if s.vehicle == nil {
		s.Begin(time.Now())
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			ev := s.Tick(now, interval.Seconds())
			s.Render()
			if ev == progress.EventFinished {
				return nil
			}
		}
	}
}

// Teardown removes the vehicle and all track volumes from the world.
func (s *RaceSession) Teardown() {
	if s.vehicle != nil {
		s.vehicle.Destroy()
		s.vehicle = nil
	}
	s.track.Destroy()
	s.input.Clear()
	s.l.Debug("race session torn down")
}
