// Package aabb is a small kinematic world implementing physics.World with
// axis aligned bounds. It is good enough to drive races headless and in
// tests; it does not model friction, suspension or rotation besides yaw.
package aabb

import (
	"math"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
)

const (
	DefaultGravity  = -9.82
	climbTolerance  = 1.0
	contactEpsilon  = 0.05
	defaultWheelRad = 0.5
	wheelBase       = 3.0
)

type (
	bounds struct {
		min, max model.Vec3
	}
	static struct {
		spec     physics.BoxSpec
		bounds   bounds
		cylinder bool
	}
	body struct {
		pos          model.Vec3
		velY         float64
		speed        float64
		yaw          float64
		half         model.Vec3
		mass         float64
		wheelRadius  float64
		wheelOffsets []model.Vec3
		wheels       []physics.Handle
		engine       []float64
		brake        []float64
		steer        []float64
	}
	wheelRef struct {
		body physics.Handle
		idx  int
	}
	World struct {
		gravity float64
		next    physics.Handle
		statics map[physics.Handle]*static
		bodies  map[physics.Handle]*body
		wheels  map[physics.Handle]wheelRef
	}
	Option func(*World)
)

var _ physics.World = (*World)(nil)

func WithGravity(g float64) Option {
	return func(w *World) {
		w.gravity = g
	}
}

func New(opts ...Option) *World {
	w := &World{
		gravity: DefaultGravity,
		statics: make(map[physics.Handle]*static),
		bodies:  make(map[physics.Handle]*body),
		wheels:  make(map[physics.Handle]wheelRef),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) nextHandle() physics.Handle {
	w.next++
	return w.next
}

func (w *World) CreateStaticBox(spec physics.BoxSpec) physics.Handle {
	h := w.nextHandle()
	w.statics[h] = &static{spec: spec, bounds: tiltedBounds(spec)}
	return h
}

func (w *World) CreateStaticCylinder(spec physics.CylinderSpec) physics.Handle {
	h := w.nextHandle()
	half := model.Vec3{X: spec.Radius, Y: spec.HalfHeight, Z: spec.Radius}
	w.statics[h] = &static{
		spec:     physics.BoxSpec{Center: spec.Center, HalfExtents: half},
		bounds:   bounds{min: spec.Center.Sub(half), max: spec.Center.Add(half)},
		cylinder: true,
	}
	return h
}

func (w *World) CreateDynamicBody(spec physics.BodySpec) (physics.Handle, []physics.Handle) {
	h := w.nextHandle()
	mass := spec.Mass
	if mass <= 0 {
		mass = 1
	}
	radius := spec.WheelRadius
	if radius <= 0 {
		radius = defaultWheelRad
	}
	b := &body{
		pos:          spec.Position,
		yaw:          spec.Yaw,
		half:         spec.HalfExtents,
		mass:         mass,
		wheelRadius:  radius,
		wheelOffsets: append([]model.Vec3(nil), spec.WheelOffsets...),
		engine:       make([]float64, len(spec.WheelOffsets)),
		brake:        make([]float64, len(spec.WheelOffsets)),
		steer:        make([]float64, len(spec.WheelOffsets)),
	}
	for i := range spec.WheelOffsets {
		wh := w.nextHandle()
		w.wheels[wh] = wheelRef{body: h, idx: i}
		b.wheels = append(b.wheels, wh)
	}
	w.bodies[h] = b
	return h, append([]physics.Handle(nil), b.wheels...)
}

func (w *World) Remove(h physics.Handle) {
	if b, ok := w.bodies[h]; ok {
		for _, wh := range b.wheels {
			delete(w.wheels, wh)
		}
		delete(w.bodies, h)
		return
	}
	delete(w.statics, h)
}

// NumStatics returns the number of static volumes, mainly for tests.
func (w *World) NumStatics() int {
	return len(w.statics)
}

func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	for _, b := range w.bodies {
		w.stepBody(b, dt)
	}
}

func (w *World) stepBody(b *body, dt float64) {
	engine, brake := 0.0, 0.0
	for i := range b.engine {
		engine += b.engine[i]
		brake += b.brake[i]
	}
	// negative engine force pushes the body forward
	b.speed += -engine / b.mass * dt
	if brake > 0 {
		dec := brake / b.mass * dt
		if math.Abs(b.speed) <= dec {
			b.speed = 0
		} else {
			b.speed -= math.Copysign(dec, b.speed)
		}
	}
	steer := 0.0
	if len(b.steer) >= 2 {
		steer = (b.steer[0] + b.steer[1]) / 2
	}
	b.yaw += b.speed * math.Tan(steer) / wheelBase * dt

	fwd := model.Vec3{X: math.Sin(b.yaw), Z: math.Cos(b.yaw)}
	b.pos = b.pos.Add(fwd.Scale(b.speed * dt))

	feet := b.pos.Y - b.half.Y - b.wheelRadius
	support, ok := w.supportAt(b.pos.X, b.pos.Z, feet)
	b.velY += w.gravity * dt
	next := feet + b.velY*dt
	if ok && next <= support {
		b.pos.Y = support + b.half.Y + b.wheelRadius
		b.velY = 0
		return
	}
	b.pos.Y += b.velY * dt
}

// supportAt returns the highest surface below feet (within climbTolerance).
func (w *World) supportAt(x, z, feet float64) (float64, bool) {
	best, found := 0.0, false
	for _, s := range w.statics {
		if s.cylinder {
			continue
		}
		if x < s.bounds.min.X || x > s.bounds.max.X || z < s.bounds.min.Z || z > s.bounds.max.Z {
			continue
		}
		top := surfaceTop(s.spec, x, z)
		if top > feet+climbTolerance {
			continue
		}
		if !found || top > best {
			best, found = top, true
		}
	}
	return best, found
}

func (w *World) QueryOverlap(a, b []physics.Handle) bool {
	for _, ha := range a {
		ba, okA := w.boundsOf(ha)
		if !okA {
			continue
		}
		for _, hb := range b {
			bb, okB := w.boundsOf(hb)
			if !okB {
				continue
			}
			if !overlaps(ba, bb) {
				continue
			}
			if !w.surfaceContact(ha, bb) || !w.surfaceContact(hb, ba) {
				continue
			}
			return true
		}
	}
	return false
}

// surfaceContact refines the bounding box test when h is a tilted static:
// the other bounds must reach the slab below the sloped surface.
func (w *World) surfaceContact(h physics.Handle, other bounds) bool {
	s, ok := w.statics[h]
	if !ok || s.spec.Tilt == 0 {
		return true
	}
	x := (other.min.X + other.max.X) / 2
	z := (other.min.Z + other.max.Z) / 2
	top := surfaceTop(s.spec, x, z)
	bottom := top - 2*s.spec.HalfExtents.Y/math.Cos(s.spec.Tilt)
	return other.min.Y <= top+contactEpsilon && other.max.Y >= bottom-contactEpsilon
}

func (w *World) boundsOf(h physics.Handle) (bounds, bool) {
	if s, ok := w.statics[h]; ok {
		return s.bounds, true
	}
	if b, ok := w.bodies[h]; ok {
		return bounds{min: b.pos.Sub(b.half), max: b.pos.Add(b.half)}, true
	}
	if ref, ok := w.wheels[h]; ok {
		b := w.bodies[ref.body]
		c := w.wheelCenter(b, ref.idx)
		r := model.Vec3{X: b.wheelRadius, Y: b.wheelRadius, Z: b.wheelRadius}
		return bounds{min: c.Sub(r), max: c.Add(r)}, true
	}
	return bounds{}, false
}

func (w *World) wheelCenter(b *body, idx int) model.Vec3 {
	o := b.wheelOffsets[idx]
	sin, cos := math.Sincos(b.yaw)
	return b.pos.Add(model.Vec3{
		X: o.X*cos + o.Z*sin,
		Y: o.Y,
		Z: -o.X*sin + o.Z*cos,
	})
}

func (w *World) State(h physics.Handle) physics.BodyState {
	if b, ok := w.bodies[h]; ok {
		fwd := model.Vec3{X: math.Sin(b.yaw), Z: math.Cos(b.yaw)}
		vel := fwd.Scale(b.speed)
		vel.Y = b.velY
		return physics.BodyState{Position: b.pos, Velocity: vel, Yaw: b.yaw, Speed: b.speed}
	}
	if ref, ok := w.wheels[h]; ok {
		b := w.bodies[ref.body]
		return physics.BodyState{Position: w.wheelCenter(b, ref.idx), Yaw: b.yaw, Speed: b.speed}
	}
	if s, ok := w.statics[h]; ok {
		return physics.BodyState{Position: s.spec.Center}
	}
	return physics.BodyState{}
}

func (w *World) Teleport(h physics.Handle, pos model.Vec3, yaw float64) {
	b, ok := w.bodies[h]
	if !ok {
		return
	}
	b.pos = pos
	b.yaw = yaw
	b.speed = 0
	b.velY = 0
}

func (w *World) ApplyEngineForce(h physics.Handle, force float64, wheel int) {
	if b, ok := w.bodies[h]; ok && wheel >= 0 && wheel < len(b.engine) {
		b.engine[wheel] = force
	}
}

func (w *World) SetBrake(h physics.Handle, brake float64, wheel int) {
	if b, ok := w.bodies[h]; ok && wheel >= 0 && wheel < len(b.brake) {
		b.brake[wheel] = brake
	}
}

func (w *World) SetSteeringValue(h physics.Handle, value float64, wheel int) {
	if b, ok := w.bodies[h]; ok && wheel >= 0 && wheel < len(b.steer) {
		b.steer[wheel] = value
	}
}

func overlaps(a, b bounds) bool {
	return a.min.X <= b.max.X+contactEpsilon && a.max.X+contactEpsilon >= b.min.X &&
		a.min.Y <= b.max.Y+contactEpsilon && a.max.Y+contactEpsilon >= b.min.Y &&
		a.min.Z <= b.max.Z+contactEpsilon && a.max.Z+contactEpsilon >= b.min.Z
}
