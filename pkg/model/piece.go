package model

import "fmt"

type PieceKind int

const (
	PieceFlat PieceKind = iota
	PieceStart
	PieceFinish
	PieceLap
	PieceCheckpoint
	PieceStraight
	PieceLeftTurn
	PieceRightTurn
	PieceRampUp
	PieceRampDown
)

var pieceKindNames = map[PieceKind]string{
	PieceFlat:       "Flat",
	PieceStart:      "Start",
	PieceFinish:     "Finish",
	PieceLap:        "Lap",
	PieceCheckpoint: "Checkpoint",
	PieceStraight:   "Straight",
	PieceLeftTurn:   "LeftTurn",
	PieceRightTurn:  "RightTurn",
	PieceRampUp:     "RampUp",
	PieceRampDown:   "RampDown",
}

func ParsePieceKind(s string) (PieceKind, bool) {
	for k, v := range pieceKindNames {
		if v == s {
			return k, true
		}
	}
	return PieceFlat, false
}

func (k PieceKind) String() string {
	if s, ok := pieceKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PieceKind(%d)", int(k))
}

// IsRamp reports whether pieces of this kind are tilted.
func (k PieceKind) IsRamp() bool {
	return k == PieceRampUp || k == PieceRampDown
}

// IsFinishLine reports whether crossing a piece of this kind may complete a lap.
func (k PieceKind) IsFinishLine() bool {
	return k == PieceFinish || k == PieceLap
}
