package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.True(t, c.Encoding.CheckContentMarkers)
	assert.True(t, c.Encoding.ValidateUTF8)
	assert.False(t, c.Decoder.StrictTags)
	assert.NotEmpty(t, c.Vault.Root)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.True(t, c.Encoding.ValidateUTF8)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emtar.json")
		body := `{"decoder":{"strict_tags":true},"log_level":"debug"}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.True(t, c.Decoder.StrictTags)
		assert.Equal(t, "debug", c.LogLevel)
		// Untouched sections keep their defaults.
		assert.True(t, c.Encoding.CheckContentMarkers)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emtar.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
