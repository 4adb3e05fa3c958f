package control

import (
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
)

const (
	chassisMass = 150
	wheelRadius = 0.5
)

var (
	chassisHalfExtents = model.Vec3{X: 1.2, Y: 0.4, Z: 2}
	// front left, front right, rear left, rear right; left is +x at yaw 0
	wheelOffsets = []model.Vec3{
		{X: 1.2, Y: -0.4, Z: 1.5},
		{X: -1.2, Y: -0.4, Z: 1.5},
		{X: 1.2, Y: -0.4, Z: -1.5},
		{X: -1.2, Y: -0.4, Z: -1.5},
	}
)

// Vehicle references the chassis and wheel bodies in the physics world. The
// world stays authoritative for position and velocity.
type Vehicle struct {
	Chassis  physics.Handle
	Wheels   [4]physics.Handle
	Steering Steering

	world physics.World
}

func SpawnVehicle(world physics.World, pos model.Vec3, yaw float64) *Vehicle {
	chassis, wheels := world.CreateDynamicBody(physics.BodySpec{
		Position:     pos,
		Yaw:          yaw,
		HalfExtents:  chassisHalfExtents,
		Mass:         chassisMass,
		WheelOffsets: wheelOffsets,
		WheelRadius:  wheelRadius,
	})
	v := &Vehicle{Chassis: chassis, world: world}
	copy(v.Wheels[:], wheels)
	return v
}

func (v *Vehicle) State() physics.BodyState {
	return v.world.State(v.Chassis)
}

func (v *Vehicle) Speed() float64 {
	return v.world.State(v.Chassis).Speed
}

func (v *Vehicle) WheelHandles() []physics.Handle {
	return v.Wheels[:]
}

// Apply writes cmd to the wheel actuators. Steering goes to the front wheels.
func (v *Vehicle) Apply(cmd Command) {
	for i := range v.Wheels {
		v.world.ApplyEngineForce(v.Chassis, cmd.EngineForce[i], i)
		v.world.SetBrake(v.Chassis, cmd.Brake[i], i)
	}
	v.world.SetSteeringValue(v.Chassis, cmd.Steering, FrontLeft)
	v.world.SetSteeringValue(v.Chassis, cmd.Steering, FrontRight)
}

// Respawn clears all actuators and moves the vehicle.
func (v *Vehicle) Respawn(pos model.Vec3, yaw float64) {
	v.Steering = Steering{}
	v.Apply(Command{})
	v.world.Teleport(v.Chassis, pos, yaw)
}

func (v *Vehicle) Destroy() {
	v.world.Remove(v.Chassis)
}
