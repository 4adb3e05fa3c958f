// Package physics describes the contract between the race core and the rigid
// body simulation. The core never owns simulation internals; it creates
// bodies, drives the vehicle actuators, steps the world and asks for overlaps.
package physics

import (
	"github.com/kartrace/kartrace-go/pkg/model"
)

// Handle identifies a body inside a World. The zero value is never issued.
type Handle uint64

// NumWheels is fixed: front left, front right, rear left, rear right.
const NumWheels = 4

type Axis int

const (
	AxisX Axis = iota
	AxisZ
)

type BoxSpec struct {
	Center      model.Vec3
	HalfExtents model.Vec3 // world aligned before tilting
	Tilt        float64    // radians
	TiltAxis    Axis
}

type CylinderSpec struct {
	Center     model.Vec3
	Radius     float64
	HalfHeight float64
}

type BodySpec struct {
	Position    model.Vec3
	Yaw         float64
	HalfExtents model.Vec3
	Mass        float64
	// WheelOffsets are relative to Position in the body frame. A body without
	// wheels is a plain dynamic box.
	WheelOffsets []model.Vec3
	WheelRadius  float64
}

type BodyState struct {
	Position model.Vec3
	Velocity model.Vec3
	Yaw      float64
	// Speed is the signed velocity along the body heading.
	Speed float64
}

type World interface {
	CreateStaticBox(spec BoxSpec) Handle
	CreateStaticCylinder(spec CylinderSpec) Handle
	// CreateDynamicBody returns the body handle followed by one handle per wheel.
	CreateDynamicBody(spec BodySpec) (Handle, []Handle)
	Remove(h Handle)
	Step(dt float64)
	// QueryOverlap reports whether any body of a touches any body of b.
	QueryOverlap(a, b []Handle) bool
	State(h Handle) BodyState
	// Teleport moves a dynamic body and clears its velocity.
	Teleport(h Handle, pos model.Vec3, yaw float64)

	ApplyEngineForce(h Handle, force float64, wheel int)
	SetBrake(h Handle, brake float64, wheel int)
	SetSteeringValue(h Handle, value float64, wheel int)
}
