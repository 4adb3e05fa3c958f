package track

import (
	"math"

	"github.com/kartrace/kartrace-go/pkg/model"
)

const (
	blockHalfWidth  = 10.0
	blockHalfLength = 10.0
	baseHalfHeight  = 0.5

	railHalfThickness = 0.25
	railHalfHeight    = 1.0
	markerRadius      = 0.5
	markerHalfHeight  = 3.0
)

type RailEdge int

const (
	RailLeft RailEdge = iota
	RailRight
	RailFront
	RailBack
)

func (e RailEdge) String() string {
	switch e {
	case RailLeft:
		return "left"
	case RailRight:
		return "right"
	case RailFront:
		return "front"
	case RailBack:
		return "back"
	}
	return "unknown"
}

// outward returns the world direction the edge faces for a piece facing d.
func (e RailEdge) outward(d model.Direction) model.Direction {
	switch e {
	case RailLeft:
		return d.Left()
	case RailRight:
		return d.Right()
	case RailBack:
		return d.Right().Right()
	default:
		return d
	}
}

// shape is the piece-local result of a geometry function.
type shape struct {
	halfWidth  float64
	halfLength float64 // horizontal, along facing
	halfHeight float64
	trueHalf   float64 // along the slope; equals halfLength for flat pieces
	incline    float64 // signed radians
	rise       float64 // height gained from entry to exit
}

type geometry struct {
	shape   func(pl PieceLine, thickness float64) shape
	rails   []RailEdge
	markers bool
}

func blockShape(_ PieceLine, thickness float64) shape {
	return shape{
		halfWidth:  blockHalfWidth,
		halfLength: blockHalfLength,
		halfHeight: baseHalfHeight * thickness,
		trueHalf:   blockHalfLength,
	}
}

func straightShape(pl PieceLine, thickness float64) shape {
	s := blockShape(pl, thickness)
	s.halfLength = blockHalfLength * pl.Size
	s.trueHalf = s.halfLength
	return s
}

func rampShape(up bool) func(PieceLine, float64) shape {
	return func(pl PieceLine, thickness float64) shape {
		s := straightShape(pl, thickness)
		theta := pl.Theta * math.Pi / 180
		s.trueHalf = s.halfLength / math.Cos(theta)
		s.rise = 2 * s.halfLength * math.Tan(theta)
		s.incline = theta
		if !up {
			s.rise = -s.rise
			s.incline = -theta
		}
		// tilt is expressed around the world axis, which flips for S and W
		if pl.Dir == model.South || pl.Dir == model.West {
			s.incline = -s.incline
		}
		return s
	}
}

var (
	sideRails = []RailEdge{RailLeft, RailRight}

	geometries = map[model.PieceKind]geometry{
		model.PieceFlat:       {shape: blockShape, rails: sideRails},
		model.PieceStart:      {shape: blockShape, rails: sideRails, markers: true},
		model.PieceFinish:     {shape: blockShape, rails: sideRails, markers: true},
		model.PieceLap:        {shape: blockShape, rails: sideRails, markers: true},
		model.PieceCheckpoint: {shape: blockShape, rails: sideRails, markers: true},
		model.PieceStraight:   {shape: straightShape, rails: sideRails},
		model.PieceLeftTurn:   {shape: blockShape, rails: []RailEdge{RailFront, RailRight}},
		model.PieceRightTurn:  {shape: blockShape, rails: []RailEdge{RailFront, RailLeft}},
		model.PieceRampUp:     {shape: rampShape(true)},
		model.PieceRampDown:   {shape: rampShape(false)},
	}
)
