// Package progress tracks a single racer through countdown, checkpoints,
// laps and finish.
package progress

import (
	"time"

	"github.com/samber/lo"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
	"github.com/kartrace/kartrace-go/pkg/track"
)

type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInProgress:
		return "in-progress"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Event reports what happened during a Tick.
type Event int

const (
	EventNone Event = iota
	EventCheckpoint
	EventLap
	EventFinished
)

type (
	// Body is what gets repositioned on reset.
	Body interface {
		Respawn(pos model.Vec3, yaw float64)
	}
	Config struct {
		Countdown      time.Duration
		ResetInterval  time.Duration
		MinHeight      float64
		MaxHeight      float64
		SpawnClearance float64
	}
	Option  func(*Machine)
	Machine struct {
		track     *track.Track
		world     physics.World
		cfg       Config
		state     State
		goAt      time.Time
		lastReset time.Time
		onLine    bool // wheels still on the finish volume after a lap
		l         *log.Logger
	}
)

func DefaultConfig() Config {
	return Config{
		Countdown:      3 * time.Second,
		ResetInterval:  500 * time.Millisecond,
		MinHeight:      -20,
		MaxHeight:      400,
		SpawnClearance: 2,
	}
}

func WithConfig(cfg Config) Option {
	return func(m *Machine) {
		m.cfg = cfg
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) {
		m.l = l
	}
}

func NewMachine(t *track.Track, world physics.World, opts ...Option) *Machine {
	m := &Machine{
		track: t,
		world: world,
		cfg:   DefaultConfig(),
		state: StateNotStarted,
		l:     log.Default().Named("progress"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Track() *track.Track {
	return m.track
}

// StartCountdown arms the countdown. The race begins on the first Update at
// or after now+Countdown.
func (m *Machine) StartCountdown(now time.Time) {
	m.goAt = now.Add(m.cfg.Countdown)
	m.state = StateNotStarted
	m.onLine = false
}

// Remaining returns the countdown time left.
func (m *Machine) Remaining(now time.Time) time.Duration {
	if m.state != StateNotStarted || m.goAt.IsZero() {
		return 0
	}
	return max(m.goAt.Sub(now), 0)
}

// Update drives the NotStarted -> InProgress transition.
func (m *Machine) Update(now time.Time) {
	if m.state != StateNotStarted || m.goAt.IsZero() || now.Before(m.goAt) {
		return
	}
	m.state = StateInProgress
	start := now
	m.track.Start = &start
	m.l.Debug("race started")
}

// Tick evaluates checkpoints first and the finish line second.
func (m *Machine) Tick(now time.Time, wheels []physics.Handle) Event {
	if m.state != StateInProgress || len(m.track.Pieces) == 0 {
		return EventNone
	}
	ev := EventNone
	for _, c := range m.track.Checkpoints {
		if c.Checked {
			continue
		}
		if m.world.QueryOverlap(wheels, []physics.Handle{c.Volume}) {
			c.Checked = true
			ev = EventCheckpoint
			m.l.Debug("checkpoint reached", log.Int("piece", c.Index))
		}
	}
	finish := m.track.FinishPiece()
	if finish == nil {
		return ev
	}
	if !m.world.QueryOverlap(wheels, []physics.Handle{finish.Volume}) {
		m.onLine = false
		return ev
	}
	if m.onLine || !m.allChecked() {
		return ev
	}
	if m.track.CurrLap < m.track.Laps {
		m.track.CurrLap++
		m.track.ResetCheckpoints()
		m.onLine = true
		m.l.Debug("lap completed", log.Int("lap", m.track.CurrLap))
		return EventLap
	}
	m.track.CurrLap++
	m.state = StateFinished
	end := now
	m.track.Finish = &end
	m.l.Info("race finished", log.Duration("elapsed", m.Elapsed(now)))
	return EventFinished
}

func (m *Machine) allChecked() bool {
	return lo.EveryBy(m.track.Checkpoints, func(c *track.Piece) bool { return c.Checked })
}

// FinishPiece returns nil when the track has no finish or lap piece.
func (m *Machine) FinishPiece() *track.Piece {
	return m.track.FinishPiece()
}

// RespawnTarget returns the last checkpoint of the unbroken checked prefix,
// the start piece otherwise. It is nil for an empty track.
func (m *Machine) RespawnTarget() *track.Piece {
	var last *track.Piece
	for _, c := range m.track.Checkpoints {
		if !c.Checked {
			break
		}
		last = c
	}
	if last != nil {
		return last
	}
	return m.track.StartPiece()
}

// Reset moves the body back to the respawn target. It returns false when the
// reset is rejected, either because the race is finished or because the
// previous reset was less than ResetInterval ago.
func (m *Machine) Reset(now time.Time, body Body, reason string) bool {
	if m.state == StateFinished {
		return false
	}
	if !m.lastReset.IsZero() && now.Sub(m.lastReset) < m.cfg.ResetInterval {
		return false
	}
	m.lastReset = now
	pos, yaw := m.spawnAt(m.RespawnTarget())
	body.Respawn(pos, yaw)
	m.l.Debug("vehicle reset", log.String("reason", reason))
	return true
}

// ResetToBeginning restarts the race: checkpoints and laps are cleared, the
// body goes back to the start and a new countdown is armed.
func (m *Machine) ResetToBeginning(now time.Time, body Body) {
	m.track.ResetCheckpoints()
	m.track.CurrLap = 1
	m.track.Start = nil
	m.track.Finish = nil
	m.lastReset = now
	pos, yaw := m.spawnAt(m.track.StartPiece())
	body.Respawn(pos, yaw)
	m.StartCountdown(now)
}

// CheckBounds resets the body when y left the allowed band. It reports
// whether the body was out of bounds.
func (m *Machine) CheckBounds(now time.Time, y float64, body Body) bool {
	if y >= m.cfg.MinHeight && y <= m.cfg.MaxHeight {
		return false
	}
	m.Reset(now, body, "out of bounds")
	return true
}

// SpawnPoint is where a vehicle is placed at race start.
func (m *Machine) SpawnPoint() (model.Vec3, float64) {
	return m.spawnAt(m.track.StartPiece())
}

func (m *Machine) spawnAt(p *track.Piece) (model.Vec3, float64) {
	if p == nil {
		return model.Vec3{Y: m.cfg.SpawnClearance}, 0
	}
	return p.SpawnPoint(m.cfg.SpawnClearance), p.Facing.Yaw()
}

// Elapsed returns the race time so far, or the final time once finished.
func (m *Machine) Elapsed(now time.Time) time.Duration {
	if m.track.Start == nil {
		return 0
	}
	if m.track.Finish != nil {
		return m.track.Finish.Sub(*m.track.Start)
	}
	return now.Sub(*m.track.Start)
}
