package configure

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	require.NoError(t, Init([]string{"--config_file", "does-not-exist.yaml"}))
	c, err := Current()
	require.NoError(t, err)

	assert.Equal(t, "info", c.Level)
	assert.Equal(t, ":8090", c.APIAddr)
	assert.Equal(t, 393216, c.StashSize)
	assert.Equal(t, 3145728, c.BufferSize)
	assert.Equal(t, 10*time.Second, ReadTimeout())
	assert.Equal(t, 10*time.Minute, FinishedTTL())
	assert.False(t, c.Strict)
	assert.Empty(t, c.Pull)
	assert.Empty(t, c.JWT.Secret)
}

func TestInitFlags(t *testing.T) {
	require.NoError(t, Init([]string{
		"--config_file", "does-not-exist.yaml",
		"--pull", "http://a.example/live/1.flv",
		"--pull", "http://b.example/live/2.flv",
		"--strict",
		"--read_timeout", "3",
		"--api_addr", "",
	}))
	c, err := Current()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.example/live/1.flv", "http://b.example/live/2.flv"}, c.Pull)
	assert.True(t, c.Strict)
	assert.Equal(t, 3*time.Second, ReadTimeout())
	assert.Empty(t, c.APIAddr)
}

func TestInitBadFlag(t *testing.T) {
	assert.Error(t, Init([]string{"--no-such-flag"}))
}

func TestInitConfigFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "flvpull")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "flvpull.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(`
level: debug
pull:
  - http://c.example/live/3.flv
buffer_size: 1048576
jwt:
  secret: topsecret
  algorithm: HS512
`), 0644))

	require.NoError(t, Init([]string{"--config_file", file, "--buffer_size", "2097152"}))
	c, err := Current()
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Level)
	assert.Equal(t, []string{"http://c.example/live/3.flv"}, c.Pull)
	assert.Equal(t, 2097152, c.BufferSize)
	assert.Equal(t, 393216, c.StashSize)
	assert.Equal(t, "topsecret", Config.GetString("jwt.secret"))
	assert.Equal(t, "HS512", c.JWT.Algorithm)

	require.NoError(t, Init([]string{"--level", "info", "--config_file", "does-not-exist.yaml"}))
}

func TestInitEnvironment(t *testing.T) {
	os.Setenv("JWT_SECRET", "fromenv")
	defer os.Unsetenv("JWT_SECRET")

	require.NoError(t, Init([]string{"--config_file", "does-not-exist.yaml"}))
	assert.Equal(t, "fromenv", Config.GetString("jwt.secret"))
}
