// Package track builds race tracks from text descriptors and registers their
// volumes with a physics world.
package track

import (
	"errors"
	"fmt"
	"time"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics"
)

var (
	ErrNoStart  = errors.New("track has no start piece")
	ErrNoFinish = errors.New("track has no finish or lap piece")
)

type (
	Track struct {
		Pieces      []*Piece
		Checkpoints []*Piece
		Laps        int
		CurrLap     int
		Thickness   float64
		Start       *time.Time
		Finish      *time.Time

		world physics.World
	}
	BuildOption func(*builder)
	builder     struct {
		l *log.Logger
	}
)

func WithLogger(l *log.Logger) BuildOption {
	return func(b *builder) {
		b.l = l
	}
}

// Build parses text and registers every piece with world. When a line cannot
// be parsed, the pieces built so far are kept and returned along with the
// error.
func Build(world physics.World, text string, opts ...BuildOption) (*Track, error) {
	b := &builder{l: log.Default().Named("track")}
	for _, opt := range opts {
		opt(b)
	}
	desc, parseErr := Parse(text)
	t := &Track{
		Laps:      desc.Laps,
		CurrLap:   1,
		Thickness: desc.Thickness,
		world:     world,
	}
	for _, pl := range desc.Lines {
		t.add(pl)
	}
	if parseErr != nil {
		var pe *ParseError
		if errors.As(parseErr, &pe) {
			b.l.Error("could not build track piece",
				log.Int("line", pe.Line),
				log.String("type", pe.Type),
				log.String("reason", pe.Reason))
		}
		return t, fmt.Errorf("build track: %w", parseErr)
	}
	b.l.Debug("track built",
		log.Int("pieces", len(t.Pieces)),
		log.Int("checkpoints", len(t.Checkpoints)),
		log.Int("laps", t.Laps))
	return t, nil
}

func (t *Track) add(pl PieceLine) {
	p := newPiece(len(t.Pieces), pl, t.Thickness)
	if len(t.Pieces) > 0 {
		p.SnapTo(t.Pieces[len(t.Pieces)-1])
	}
	t.register(p)
	t.Pieces = append(t.Pieces, p)
	if p.Kind == model.PieceCheckpoint {
		t.Checkpoints = append(t.Checkpoints, p)
	}
}

func (t *Track) register(p *Piece) {
	if t.world == nil {
		return
	}
	p.Volume = t.world.CreateStaticBox(p.boxSpec())
	for _, edge := range p.Rails {
		p.Attachments = append(p.Attachments, t.world.CreateStaticBox(p.railSpec(edge)))
	}
	if geometries[p.Kind].markers {
		for _, spec := range p.markerSpecs() {
			p.Attachments = append(p.Attachments, t.world.CreateStaticCylinder(spec))
		}
	}
}

// Validate checks the start/finish rules. Build does not enforce them.
func (t *Track) Validate() error {
	starts := 0
	for _, p := range t.Pieces {
		if p.Kind == model.PieceStart {
			starts++
		}
	}
	switch {
	case starts == 0:
		return ErrNoStart
	case starts > 1:
		return fmt.Errorf("track has %d start pieces", starts)
	case t.FinishPiece() == nil:
		return ErrNoFinish
	}
	return nil
}

// StartPiece returns the first Start piece, the first piece when there is
// none, and nil for an empty track.
func (t *Track) StartPiece() *Piece {
	for _, p := range t.Pieces {
		if p.Kind == model.PieceStart {
			return p
		}
	}
	if len(t.Pieces) > 0 {
		return t.Pieces[0]
	}
	return nil
}

// FinishPiece returns the first Finish or Lap piece or nil.
func (t *Track) FinishPiece() *Piece {
	for _, p := range t.Pieces {
		if p.Kind.IsFinishLine() {
			return p
		}
	}
	return nil
}

func (t *Track) ResetCheckpoints() {
	for _, c := range t.Checkpoints {
		c.Checked = false
	}
}

// Volumes returns the driving surfaces of all pieces.
func (t *Track) Volumes() []physics.Handle {
	ret := make([]physics.Handle, 0, len(t.Pieces))
	for _, p := range t.Pieces {
		ret = append(ret, p.Volume)
	}
	return ret
}

// Destroy removes every volume owned by the track from the world.
func (t *Track) Destroy() {
	if t.world == nil {
		return
	}
	for _, p := range t.Pieces {
		t.world.Remove(p.Volume)
		for _, h := range p.Attachments {
			t.world.Remove(h)
		}
		p.Attachments = nil
	}
	t.world = nil
}
