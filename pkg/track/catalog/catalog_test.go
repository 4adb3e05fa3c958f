package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/track"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, model.NumTracks)
	assert.Equal(t, "track1", names[0])
	assert.Equal(t, "track8", names[len(names)-1])
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("track99")
	assert.ErrorIs(t, err, ErrUnknownTrack)
}

func TestAllTracksBuildAndValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			text, err := Lookup(name)
			assert.NoError(t, err)
			tr, err := track.Build(nil, text)
			assert.NoError(t, err)
			assert.NoError(t, tr.Validate())
			assert.NotEmpty(t, tr.Checkpoints)
		})
	}
}
