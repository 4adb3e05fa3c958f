package model

import (
	"fmt"
	"math"
)

// Direction is the facing of a track piece. The axis mapping is
// N -> +z, S -> -z, E -> -x, W -> +x. E and W are mirrored compared to a
// usual compass; rails and markers are placed against this convention.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "N":
		return North, nil
	case "E":
		return East, nil
	case "S":
		return South, nil
	case "W":
		return West, nil
	}
	return North, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Forward returns the unit vector a vehicle moves along when driving in d.
func (d Direction) Forward() Vec3 {
	switch d {
	case East:
		return Vec3{X: -1}
	case South:
		return Vec3{Z: -1}
	case West:
		return Vec3{X: 1}
	default:
		return Vec3{Z: 1}
	}
}

// Right is the next direction clockwise.
func (d Direction) Right() Direction {
	return (d + 1) % 4
}

func (d Direction) Left() Direction {
	return (d + 3) % 4
}

// AlongX reports whether the piece length runs along the x axis.
func (d Direction) AlongX() bool {
	return d == East || d == West
}

// Yaw is the vehicle heading for d, measured so that yaw 0 faces +z and
// the forward vector is (sin yaw, 0, cos yaw).
func (d Direction) Yaw() float64 {
	switch d {
	case East:
		return -math.Pi / 2
	case South:
		return math.Pi
	case West:
		return math.Pi / 2
	default:
		return 0
	}
}
