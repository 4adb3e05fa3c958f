package aabb

import (
	"math"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
)

// tiltedBounds returns the axis aligned bounds of a box rotated by its tilt.
func tiltedBounds(spec physics.BoxSpec) bounds {
	h := spec.HalfExtents
	if spec.Tilt != 0 {
		sin, cos := math.Abs(math.Sin(spec.Tilt)), math.Abs(math.Cos(spec.Tilt))
		switch spec.TiltAxis {
		case physics.AxisX:
			h = model.Vec3{X: h.X, Y: h.Z*sin + h.Y*cos, Z: h.Z*cos + h.Y*sin}
		case physics.AxisZ:
			h = model.Vec3{X: h.X*cos + h.Y*sin, Y: h.X*sin + h.Y*cos, Z: h.Z}
		}
	}
	return bounds{min: spec.Center.Sub(h), max: spec.Center.Add(h)}
}

// surfaceTop is the height of the upper face at (x,z). A tilt about the x
// axis raises the surface towards +z, a tilt about the z axis towards -x.
func surfaceTop(spec physics.BoxSpec, x, z float64) float64 {
	if spec.Tilt == 0 {
		return spec.Center.Y + spec.HalfExtents.Y
	}
	base := spec.Center.Y + spec.HalfExtents.Y/math.Cos(spec.Tilt)
	slope := math.Tan(spec.Tilt)
	if spec.TiltAxis == physics.AxisX {
		return base + slope*(z-spec.Center.Z)
	}
	return base - slope*(x-spec.Center.X)
}
