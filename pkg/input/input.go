// Package input keeps the set of held keys.
package input

import "sync"

type (
	Event struct {
		Code int
		Down bool
	}
	// State is written by the dispatcher and read once per tick.
	State struct {
		mu   sync.RWMutex
		held map[int]bool
	}
)

func NewState() *State {
	return &State{held: make(map[int]bool)}
}

func (s *State) Press(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[code] = true
}

func (s *State) Release(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, code)
}

func (s *State) Held(code int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held[code]
}

func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.held)
}

func (s *State) Apply(ev Event) {
	if ev.Down {
		s.Press(ev.Code)
	} else {
		s.Release(ev.Code)
	}
}

// Dispatch applies events from ch until ch is closed or done is closed.
func Dispatch(done <-chan struct{}, ch <-chan Event, s *State) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.Apply(ev)
		}
	}
}
