package track

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tr "github.com/kartrace/kartrace-go/pkg/track"
)

func TestCheckCatalogTrack(t *testing.T) {
	text, err := LoadDescriptor("track1")
	require.NoError(t, err)
	var out bytes.Buffer
	assert.NoError(t, check(&out, text))
	assert.Contains(t, out.String(), "Start")
	assert.Contains(t, out.String(), "laps: ")
}

func TestCheckFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mine.txt")
	require.NoError(t, os.WriteFile(file, []byte("1\n1\nStart [N]\nBogus [N]\nFinish [N]"), 0o600))
	text, err := LoadDescriptor(file)
	require.NoError(t, err)

	var out bytes.Buffer
	err = check(&out, text)
	var pe *tr.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 4, pe.Line)
}

func TestCheckWithoutStart(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, check(&out, "1\n1\nStraight [1,N]\nFinish [N]"), tr.ErrNoStart)
}

func TestLoadUnknown(t *testing.T) {
	_, err := LoadDescriptor(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
