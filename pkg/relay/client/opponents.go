package client

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/kartrace/kartrace-go/pkg/model"
)

type (
	// Marker is the last reported position of an opponent. It is only used
	// for display.
	Marker struct {
		Username  string
		Position  model.Vec3
		RefreshMs float64
	}
	// Opponents tracks the markers of all other players in a room.
	Opponents struct {
		mu      sync.Mutex
		self    string
		markers map[string]Marker
	}
)

func NewOpponents(self string) *Opponents {
	return &Opponents{self: self, markers: make(map[string]Marker)}
}

// Handle consumes render and leave packets; other packets are ignored.
func (o *Opponents) Handle(p model.Packet) {
	if p.Username == "" || p.Username == o.self {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	switch p.Method {
	case model.MethodRender:
		o.markers[p.Username] = Marker{
			Username:  p.Username,
			Position:  model.Vec3{X: p.X, Y: p.Y, Z: p.Z},
			RefreshMs: p.RR,
		}
	case model.MethodLeave:
		delete(o.markers, p.Username)
	}
}

// Snapshot returns the markers sorted by username.
func (o *Opponents) Snapshot() []Marker {
	o.mu.Lock()
	defer o.mu.Unlock()
	ret := lo.Values(o.markers)
	slices.SortFunc(ret, func(a, b Marker) int {
		return strings.Compare(a.Username, b.Username)
	})
	return ret
}

type (
	Entry struct {
		Username string
		Time     time.Duration
	}
	// Leaderboard keeps the best finish per player of a room.
	Leaderboard struct {
		mu   sync.Mutex
		best map[string]time.Duration
	}
)

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{best: make(map[string]time.Duration)}
}

// Handle consumes finish packets.
func (b *Leaderboard) Handle(p model.Packet) {
	if p.Method != model.MethodFinish || p.Username == "" {
		return
	}
	d := time.Duration(p.ElapsedTime * float64(time.Second))
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.best[p.Username]; !ok || d < cur {
		b.best[p.Username] = d
	}
}

// Entries returns the leaderboard, fastest first.
func (b *Leaderboard) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := lo.MapToSlice(b.best, func(u string, d time.Duration) Entry {
		return Entry{Username: u, Time: d}
	})
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Time != ret[j].Time {
			return ret[i].Time < ret[j].Time
		}
		return ret[i].Username < ret[j].Username
	})
	return ret
}

func (b *Leaderboard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.best)
}
