//nolint:funlen // ok for tests
package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kartrace/kartrace-go/pkg/input"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics/aabb"
)

var keys = model.DefaultKeybinds()

func held(codes ...int) *input.State {
	s := input.NewState()
	for _, c := range codes {
		s.Press(c)
	}
	return s
}

func TestSteeringClampGrid(t *testing.T) {
	combos := [][]int{
		nil,
		{keys.Left},
		{keys.Right},
		{keys.Left, keys.Right},
		{keys.Left, keys.Forward},
		{keys.Right, keys.Brake},
	}
	for speed := -300.0; speed <= 300; speed += 7.5 {
		for _, combo := range combos {
			in := held(combo...)
			steer := &Steering{Value: 1}
			for i := 0; i < 200; i++ {
				cmd := Navigate(in, keys, speed, 12, steer)
				limit := MaxSteer(speed)
				if math.Abs(cmd.Steering) > limit+1e-12 {
					t.Fatalf("speed %v combo %v: steering %v exceeds %v", speed, combo, cmd.Steering, limit)
				}
			}
		}
	}
}

func TestSteeringBehaviour(t *testing.T) {
	steer := &Steering{}
	Navigate(held(keys.Left), keys, 0, 12, steer)
	assert.InDelta(t, 0.006, steer.Value, 1e-12)
	Navigate(held(keys.Left), keys, 0, 12, steer)
	assert.InDelta(t, 0.012, steer.Value, 1e-12)
	Navigate(held(), keys, 0, 12, steer)
	assert.InDelta(t, 0.004, steer.Value, 1e-12)
	Navigate(held(keys.Right), keys, 0, 12, steer)
	assert.InDelta(t, -0.002, steer.Value, 1e-12)

	// the increment bottoms out at high speed
	steer = &Steering{}
	Navigate(held(keys.Left), keys, 300, 12, steer)
	assert.InDelta(t, 0.0001, steer.Value, 1e-12)

	// held long enough, the value sits at the limit
	steer = &Steering{}
	for i := 0; i < 100; i++ {
		Navigate(held(keys.Right), keys, 10, 12, steer)
	}
	assert.InDelta(t, -math.Pi/18, steer.Value, 1e-12)
}

func TestEngineForceBounds(t *testing.T) {
	tuning := DefaultTuning()
	for speed := -1000.0; speed <= 1000; speed += 0.5 {
		f := tuning.EngineForce(speed)
		if f < 0 || f > 1200 {
			t.Fatalf("speed %v: force %v out of range", speed, f)
		}
	}
	assert.Equal(t, 1200.0, tuning.EngineForce(0))
	assert.Equal(t, 0.0, tuning.EngineForce(300))
	assert.Equal(t, 0.0, tuning.EngineForce(-450))
	assert.Equal(t, 800.0, tuning.EngineForce(-100))
}

func TestRefreshScale(t *testing.T) {
	tuning := DefaultTuning()
	assert.Equal(t, 1.0, tuning.RefreshScale(12))
	assert.Equal(t, 2.0, tuning.RefreshScale(6))
	assert.Equal(t, 0.5, tuning.RefreshScale(24))
	assert.Equal(t, 1.0, tuning.RefreshScale(0))
	assert.Equal(t, 1.0, tuning.RefreshScale(-5))
}

func TestNavigateForces(t *testing.T) {
	tests := []struct {
		name       string
		keys       []int
		speed      float64
		refreshMs  float64
		wantEngine float64
		wantBrake  float64
	}{
		{"forward at rest", []int{keys.Forward}, 0, 12, -600, 0},
		{"forward double refresh", []int{keys.Forward}, 0, 6, -1200, 0},
		{"forward at speed", []int{keys.Forward}, 100, 12, -400, 0},
		{"backward at rest", []int{keys.Backward}, 0, 12, 300, 0},
		{"forward and backward coast", []int{keys.Forward, keys.Backward}, 0, 12, 0, 0},
		{"brake overrides", []int{keys.Brake, keys.Forward}, 10, 12, 0, 100},
		{"brake floor", []int{keys.Brake}, 0, 12, 0, 20},
		{"coast forward", nil, 100, 12, 100, 50},
		{"coast reverse", nil, -60, 12, -160, 30},
		{"coast at rest", nil, 0, 12, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Navigate(held(tt.keys...), keys, tt.speed, tt.refreshMs, &Steering{})
			assert.InDelta(t, 0, cmd.EngineForce[FrontLeft], 1e-9)
			assert.InDelta(t, 0, cmd.EngineForce[FrontRight], 1e-9)
			assert.InDelta(t, tt.wantEngine, cmd.EngineForce[RearLeft], 1e-9)
			assert.InDelta(t, tt.wantEngine, cmd.EngineForce[RearRight], 1e-9)
			for i := range cmd.Brake {
				assert.InDelta(t, tt.wantBrake, cmd.Brake[i], 1e-9)
			}
		})
	}
}

func TestVehicleDrivesForward(t *testing.T) {
	w := aabb.New()
	v := SpawnVehicle(w, model.Vec3{Y: 1}, model.East.Yaw())
	in := held(keys.Forward)
	for i := 0; i < 100; i++ {
		v.Apply(Navigate(in, keys, v.Speed(), 12, &v.Steering))
		w.Step(0.012)
	}
	st := v.State()
	assert.Greater(t, v.Speed(), 0.0)
	// facing east means moving toward -x
	assert.Less(t, st.Position.X, 0.0)
	assert.InDelta(t, 0, st.Position.Z, 1e-6)

	v.Respawn(model.Vec3{X: 5, Y: 3}, 0)
	st = v.State()
	assert.Equal(t, 0.0, st.Speed)
	assert.Equal(t, model.Vec3{X: 5, Y: 3}, st.Position)
	assert.Equal(t, Steering{}, v.Steering)
}
