package model

import "fmt"

// NoPersonalBest is stored for tracks without a recorded time.
const NoPersonalBest = "--"

// NumTracks is the number of catalog tracks a profile keeps bests for.
const NumTracks = 8

type Keybinds struct {
	Forward  int `json:"forward"`
	Backward int `json:"backward"`
	Left     int `json:"left"`
	Right    int `json:"right"`
	Brake    int `json:"brake,omitempty"`
	Reset    int `json:"reset,omitempty"`
}

// DefaultKeybinds uses WASD, space for braking and R to respawn.
func DefaultKeybinds() Keybinds {
	return Keybinds{
		Forward:  87,
		Backward: 83,
		Left:     65,
		Right:    68,
		Brake:    32,
		Reset:    82,
	}
}

type UserProfile struct {
	Username string            `json:"username"`
	Password string            `json:"password"` // bcrypt hash
	Friends  []string          `json:"friends"`
	PBs      map[string]string `json:"pbs"`
	Keybinds Keybinds          `json:"keybinds"`
}

func TrackKey(i int) string {
	return fmt.Sprintf("track%d", i)
}

// NewUserProfile creates a profile without any personal bests.
func NewUserProfile(username, passwordHash string) UserProfile {
	pbs := make(map[string]string, NumTracks)
	for i := 1; i <= NumTracks; i++ {
		pbs[TrackKey(i)] = NoPersonalBest
	}
	return UserProfile{
		Username: username,
		Password: passwordHash,
		Friends:  []string{},
		PBs:      pbs,
		Keybinds: DefaultKeybinds(),
	}
}
