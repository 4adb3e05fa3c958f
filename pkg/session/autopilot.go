package session

import (
	"math"

	"github.com/kartrace/kartrace-go/pkg/model"
)

const (
	steerDeadband  = 0.05
	coastAngle     = 0.6
	coastMinSpeed  = 12.0
	lookAheadCount = 2
)

// Autopilot drives a session by pressing keys: it follows the piece centers
// in track order. It is used for headless simulation.
type Autopilot struct {
	s      *RaceSession
	cursor int
}

func NewAutopilot(s *RaceSession) *Autopilot {
	return &Autopilot{s: s}
}

// Drive updates the held keys for the next tick.
func (a *Autopilot) Drive() {
	s := a.s
	pieces := s.track.Pieces
	if s.vehicle == nil || len(pieces) < 2 {
		return
	}
	st := s.vehicle.State()
	a.follow(st.Position)

	target := pieces[a.next()].Position
	dx, dz := target.X-st.Position.X, target.Z-st.Position.Z
	diff := wrapAngle(math.Atan2(dx, dz) - st.Yaw)

	keys := s.keys
	s.input.Release(keys.Left)
	s.input.Release(keys.Right)
	switch {
	case diff > steerDeadband:
		s.input.Press(keys.Left)
	case diff < -steerDeadband:
		s.input.Press(keys.Right)
	}
	if math.Abs(diff) > coastAngle && st.Speed > coastMinSpeed {
		s.input.Release(keys.Forward)
	} else {
		s.input.Press(keys.Forward)
	}
}

// next wraps to the first piece only on circuits ending in a lap piece.
func (a *Autopilot) next() int {
	pieces := a.s.track.Pieces
	n := a.cursor + 1
	if n < len(pieces) {
		return n
	}
	if pieces[len(pieces)-1].Kind == model.PieceLap {
		return 0
	}
	return len(pieces) - 1
}

// follow moves the cursor to the closest piece among the current one and
// the next few; a respawn may also move it back by one.
func (a *Autopilot) follow(pos model.Vec3) {
	pieces := a.s.track.Pieces
	n := len(pieces)
	best, bestDist := a.cursor, math.Inf(1)
	for off := -1; off <= lookAheadCount; off++ {
		i := ((a.cursor+off)%n + n) % n
		p := pieces[i].Position
		d := math.Hypot(p.X-pos.X, p.Z-pos.Z)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	a.cursor = best
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
