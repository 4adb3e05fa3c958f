// Package catalog holds the built-in tracks.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnknownTrack = errors.New("unknown track")

//go:embed tracks
var trackFS embed.FS

type (
	Entry struct {
		Name  string `yaml:"name"`
		Title string `yaml:"title"`
		File  string `yaml:"file"`
	}
	index struct {
		Tracks []Entry `yaml:"tracks"`
	}
)

var (
	loadOnce sync.Once
	entries  []Entry
	loadErr  error
)

func load() ([]Entry, error) {
	loadOnce.Do(func() {
		data, err := trackFS.ReadFile("tracks/index.yaml")
		if err != nil {
			loadErr = err
			return
		}
		var idx index
		if loadErr = yaml.Unmarshal(data, &idx); loadErr != nil {
			return
		}
		entries = idx.Tracks
	})
	return entries, loadErr
}

// Entries returns the catalog in index order.
func Entries() ([]Entry, error) {
	e, err := load()
	if err != nil {
		return nil, err
	}
	return append([]Entry(nil), e...), nil
}

func Names() []string {
	e, err := load()
	if err != nil {
		return nil
	}
	ret := make([]string, len(e))
	for i := range e {
		ret[i] = e[i].Name
	}
	return ret
}

// Lookup returns the descriptor text of the named track.
func Lookup(name string) (string, error) {
	e, err := load()
	if err != nil {
		return "", err
	}
	for i := range e {
		if e[i].Name != name {
			continue
		}
		data, err := trackFS.ReadFile(path.Join("tracks", e[i].File))
		if err != nil {
			return "", fmt.Errorf("read track %s: %w", name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTrack, name)
}
