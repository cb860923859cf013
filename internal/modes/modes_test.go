package modes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCoversEveryMode(t *testing.T) {
	c := DefaultCatalog()
	entries := c.Entries()
	require.Len(t, entries, len(All))
	for i, m := range All {
		assert.Equal(t, m, entries[i].Mode)
		assert.NotEmpty(t, entries[i].Label, m)
		assert.NotEmpty(t, entries[i].Message, m)
	}
	assert.Equal(t, "Search mode activated. I'll help you find files and information.", c.Message(ModeSearch))
	assert.NotEmpty(t, c.Greeting())
}

func TestParse(t *testing.T) {
	m, err := Parse(" Schedule-Reminder ")
	require.NoError(t, err)
	assert.Equal(t, ModeScheduleReminder, m)

	_, err = Parse("excel_operation")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	data := `greeting: "Hola!"
modes:
  - mode: search
    label: Buscar
    message: "Modo de búsqueda activado."
  - mode: chat
    message: ""
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "Hola!", c.Greeting())
	assert.Equal(t, "Buscar", c.Label(ModeSearch))
	assert.Equal(t, "Modo de búsqueda activado.", c.Message(ModeSearch))
	assert.Equal(t, "General Chat", c.Label(ModeChat))
	assert.Empty(t, c.Message(ModeChat))
	// untouched entries keep the built-in copy
	assert.Equal(t, DefaultCatalog().Message(ModeRunScript), c.Message(ModeRunScript))
}

func TestLoadCatalogRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modes:\n  - mode: teleport\n    label: Beam\n"), 0o600))

	_, err := LoadCatalog(path)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestLoadCatalogEmptyPath(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog().Entries(), c.Entries())
}
