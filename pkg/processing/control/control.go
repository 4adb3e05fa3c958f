// Package control turns held keys into wheel actuator commands.
package control

import (
	"math"

	"github.com/kartrace/kartrace-go/pkg/input"
	"github.com/kartrace/kartrace-go/pkg/model"
)

const (
	FrontLeft = iota
	FrontRight
	RearLeft
	RearRight
)

type (
	Command struct {
		EngineForce [4]float64
		Brake       [4]float64
		Steering    float64
	}
	// Steering is the persistent steering value owned by the vehicle.
	Steering struct {
		Value float64
	}
	Tuning struct {
		ReferenceMs    float64
		MaxForce       float64
		ForceSlope     float64
		ForwardDiv     float64
		BackwardDiv    float64
		DragDivPos     float64
		DragDivNeg     float64
		BrakeGain      float64
		BrakeFloor     float64
		CoastBrakeGain float64
	}
)

func DefaultTuning() Tuning {
	return Tuning{
		ReferenceMs:    12,
		MaxForce:       1200,
		ForceSlope:     4,
		ForwardDiv:     2,
		BackwardDiv:    4,
		DragDivPos:     8,
		DragDivNeg:     6,
		BrakeGain:      10,
		BrakeFloor:     20,
		CoastBrakeGain: 0.5,
	}
}

// Navigate uses DefaultTuning.
func Navigate(in *input.State, keys model.Keybinds, speed, refreshMs float64, steer *Steering) Command {
	return DefaultTuning().Navigate(in, keys, speed, refreshMs, steer)
}

// Navigate computes the actuator command for one physics tick.
// Negative engine force drives the vehicle forward.
func (t Tuning) Navigate(in *input.State, keys model.Keybinds, speed, refreshMs float64, steer *Steering) Command {
	var cmd Command
	abs := math.Abs(speed)
	force := t.EngineForce(speed) * t.RefreshScale(refreshMs)

	fwd := in.Held(keys.Forward)
	back := in.Held(keys.Backward)
	engine, brake := 0.0, 0.0
	switch {
	case in.Held(keys.Brake):
		brake = max(t.BrakeGain*abs, t.BrakeFloor)
	case fwd && !back:
		engine = -force / t.ForwardDiv
	case back && !fwd:
		engine = force / t.BackwardDiv
	default:
		if speed > 0 {
			engine = force / t.DragDivPos
		} else if speed < 0 {
			engine = -force / t.DragDivNeg
		}
		brake = abs * t.CoastBrakeGain
	}
	cmd.EngineForce[RearLeft] = engine
	cmd.EngineForce[RearRight] = engine
	for i := range cmd.Brake {
		cmd.Brake[i] = brake
	}

	steer.Update(in.Held(keys.Left), in.Held(keys.Right), speed)
	cmd.Steering = steer.Value
	return cmd
}

// RefreshScale normalizes forces to the reference frame time.
func (t Tuning) RefreshScale(refreshMs float64) float64 {
	if refreshMs <= 0 {
		return 1
	}
	return t.ReferenceMs / refreshMs
}

// EngineForce is the unscaled force target for the given speed, within
// [0, MaxForce].
func (t Tuning) EngineForce(speed float64) float64 {
	return math.Min(math.Max(-t.ForceSlope*math.Abs(speed)+t.MaxForce, 0), t.MaxForce)
}

func MaxSteer(speed float64) float64 {
	return math.Pi / (0.2*math.Abs(speed) + 16)
}

func steerIncrement(speed float64) float64 {
	return math.Max(0.006-0.00002*math.Abs(speed), 0.0001)
}

// Update moves the steering value toward the held direction, lets it decay
// when no turn key is held and clamps it to MaxSteer.
func (s *Steering) Update(left, right bool, speed float64) {
	inc := steerIncrement(speed)
	if left {
		s.Value += inc
	}
	if right {
		s.Value -= inc
	}
	if !left && !right {
		s.Value /= 3
	}
	limit := MaxSteer(speed)
	s.Value = math.Min(math.Max(s.Value, -limit), limit)
}
