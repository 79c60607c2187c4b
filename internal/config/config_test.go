package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/idstring/internal/core/observability/log"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idstring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, c.Validate())
	assert.Equal(t, log.LevelInfo, c.Level())
}

func TestLoadFile(t *testing.T) {
	c, err := Load(write(t, `
log_level: debug
builtin_tags: false
manifests: [a.yaml, b.json]
store_path: /tmp/tags.db
view:
  prefix: StatusTag
  ignore_hidden: true
`))
	require.NoError(t, err)
	assert.Equal(t, log.LevelDebug, c.Level())
	assert.Equal(t, []string{"a.yaml", "b.json"}, c.Manifests)
	assert.False(t, c.BuiltinTags)
	assert.Equal(t, "StatusTag", c.View.Prefix)
	assert.True(t, c.View.IgnoreHidden)
	assert.Equal(t, 4, c.LoadLimit, "unset fields keep defaults")
}

func TestValidate(t *testing.T) {
	_, err := Load(write(t, "log_level: loud\n"))
	assert.Error(t, err)

	c := Default()
	c.BuiltinTags = false
	c.LoadLimit = -1
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load_limit")
	assert.Contains(t, err.Error(), "no declarations")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
