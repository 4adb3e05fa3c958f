package track

import (
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
)

type Piece struct {
	Kind   model.PieceKind
	Index  int
	LineNo int
	Facing model.Direction
	// Position is the center of the piece volume.
	Position model.Vec3
	// HalfExtents holds the horizontal half sizes in piece frame:
	// X across the track, Y height, Z along the facing.
	HalfExtents    model.Vec3
	Incline        float64
	TrueHalfLength float64
	Rise           float64
	Rails          []RailEdge
	Checked        bool

	Volume      physics.Handle
	Attachments []physics.Handle
}

func newPiece(idx int, pl PieceLine, thickness float64) *Piece {
	g := geometries[pl.Kind]
	s := g.shape(pl, thickness)
	return &Piece{
		Kind:           pl.Kind,
		Index:          idx,
		LineNo:         pl.LineNo,
		Facing:         pl.Dir,
		HalfExtents:    model.Vec3{X: s.halfWidth, Y: s.halfHeight, Z: s.halfLength},
		Incline:        s.incline,
		TrueHalfLength: s.trueHalf,
		Rise:           s.rise,
		Rails:          append([]RailEdge(nil), g.rails...),
	}
}

// extentAlong returns the horizontal half size of the piece on the world x
// axis (alongX) or z axis.
func (p *Piece) extentAlong(alongX bool) float64 {
	if p.Facing.AlongX() == alongX {
		return p.HalfExtents.Z
	}
	return p.HalfExtents.X
}

// Top is the height of the driving surface at the piece center.
func (p *Piece) Top() float64 {
	return p.Position.Y + p.HalfExtents.Y
}

func (p *Piece) entryTop() float64 {
	return p.Top() - p.Rise/2
}

func (p *Piece) exitTop() float64 {
	return p.Top() + p.Rise/2
}

// SnapTo positions p next to prev in p's facing direction. The horizontal
// offset is the sum of both extents on that axis; the entry surface of p is
// flush with the exit surface of prev.
func (p *Piece) SnapTo(prev *Piece) {
	alongX := p.Facing.AlongX()
	offset := prev.extentAlong(alongX) + p.extentAlong(alongX)
	pos := prev.Position.Add(p.Facing.Forward().Scale(offset))
	pos.Y = prev.exitTop() - p.HalfExtents.Y + p.Rise/2
	p.Position = pos
}

// boxSpec is the world volume of the piece.
func (p *Piece) boxSpec() physics.BoxSpec {
	half := model.Vec3{X: p.HalfExtents.X, Y: p.HalfExtents.Y, Z: p.TrueHalfLength}
	axis := physics.AxisX
	if p.Facing.AlongX() {
		half = model.Vec3{X: p.TrueHalfLength, Y: p.HalfExtents.Y, Z: p.HalfExtents.X}
		axis = physics.AxisZ
	}
	return physics.BoxSpec{Center: p.Position, HalfExtents: half, Tilt: p.Incline, TiltAxis: axis}
}

func (p *Piece) railSpec(edge RailEdge) physics.BoxSpec {
	out := edge.outward(p.Facing)
	alongX := out.AlongX()
	center := p.Position.Add(out.Forward().Scale(p.extentAlong(alongX) + railHalfThickness))
	center.Y = p.Top() + railHalfHeight
	half := model.Vec3{Y: railHalfHeight}
	if alongX {
		half.X = railHalfThickness
		half.Z = p.extentAlong(false)
	} else {
		half.Z = railHalfThickness
		half.X = p.extentAlong(true)
	}
	return physics.BoxSpec{Center: center, HalfExtents: half}
}

func (p *Piece) markerSpecs() []physics.CylinderSpec {
	ret := make([]physics.CylinderSpec, 0, 2)
	for _, side := range []model.Direction{p.Facing.Left(), p.Facing.Right()} {
		c := p.Position.Add(side.Forward().Scale(p.extentAlong(side.AlongX())))
		c.Y = p.Top() + markerHalfHeight
		ret = append(ret, physics.CylinderSpec{
			Center:     c,
			Radius:     markerRadius,
			HalfHeight: markerHalfHeight,
		})
	}
	return ret
}

// SpawnPoint is the position a vehicle is placed at on this piece.
func (p *Piece) SpawnPoint(clearance float64) model.Vec3 {
	pos := p.Position
	pos.Y = p.Top() + clearance
	return pos
}
