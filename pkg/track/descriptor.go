package track

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kartrace/kartrace-go/pkg/model"
)

type (
	// Descriptor is the parsed form of a track file. It is not modified after
	// Parse returns.
	Descriptor struct {
		Laps      int
		Thickness float64
		Lines     []PieceLine
	}
	PieceLine struct {
		LineNo int
		Kind   model.PieceKind
		Dir    model.Direction
		Size   float64 // Straight and ramps
		Theta  float64 // ramps, degrees
	}
	ParseError struct {
		Line   int
		Type   string
		Reason string
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Type, e.Reason)
}

// parameter layout per piece kind
var paramLayout = map[model.PieceKind][]string{
	model.PieceFlat:       {"dir"},
	model.PieceStart:      {"dir"},
	model.PieceFinish:     {"dir"},
	model.PieceLap:        {"dir"},
	model.PieceCheckpoint: {"dir"},
	model.PieceLeftTurn:   {"dir"},
	model.PieceRightTurn:  {"dir"},
	model.PieceStraight:   {"size", "dir"},
	model.PieceRampUp:     {"theta", "size", "dir"},
	model.PieceRampDown:   {"theta", "size", "dir"},
}

// Parse reads a track descriptor. The first line holds the lap count, the
// second the thickness multiplier; both fall back to 1. Each further line is
// "<Type> [p1,p2,...]". Parsing stops at the first malformed line; the lines
// read so far are returned together with a *ParseError.
func Parse(text string) (*Descriptor, error) {
	desc := &Descriptor{Laps: 1, Thickness: 1}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	if len(lines) > 0 {
		if laps, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil && laps > 0 {
			desc.Laps = laps
		}
	}
	if len(lines) > 1 {
		if th, err := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64); err == nil && th > 0 {
			desc.Thickness = th
		}
	}
	for i := 2; i < len(lines); i++ {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			continue
		}
		pl, err := parseLine(i+1, raw)
		if err != nil {
			return desc, err
		}
		desc.Lines = append(desc.Lines, pl)
	}
	return desc, nil
}

func parseLine(lineNo int, raw string) (PieceLine, error) {
	typeName, rest, _ := strings.Cut(raw, " ")
	typeName = strings.TrimSpace(typeName)
	rest = strings.TrimSpace(rest)
	perr := func(reason string) error {
		return &ParseError{Line: lineNo, Type: typeName, Reason: reason}
	}
	kind, ok := model.ParsePieceKind(typeName)
	if !ok {
		return PieceLine{}, perr("unknown piece type")
	}
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return PieceLine{}, perr("parameter list must be enclosed in brackets")
	}
	params := strings.Split(strings.TrimSuffix(strings.TrimPrefix(rest, "["), "]"), ",")
	layout := paramLayout[kind]
	if len(params) != len(layout) {
		return PieceLine{}, perr(fmt.Sprintf("expected %d parameters, got %d",
			len(layout), len(params)))
	}
	pl := PieceLine{LineNo: lineNo, Kind: kind}
	for idx, name := range layout {
		value := strings.TrimSpace(params[idx])
		switch name {
		case "dir":
			dir, err := model.ParseDirection(value)
			if err != nil {
				return PieceLine{}, perr(err.Error())
			}
			pl.Dir = dir
		case "size", "theta":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return PieceLine{}, perr(fmt.Sprintf("%s is not numeric: %q", name, value))
			}
			if name == "size" {
				if f <= 0 {
					return PieceLine{}, perr(fmt.Sprintf("size must be positive, got %v", f))
				}
				pl.Size = f
			} else {
				if math.Abs(f) >= 90 {
					return PieceLine{}, perr(fmt.Sprintf("theta must be within (-90,90), got %v", f))
				}
				pl.Theta = f
			}
		}
	}
	return pl, nil
}
