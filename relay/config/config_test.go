package config

import (
	"testing"

	"github.com/Trinoooo/rawd/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.Nil(t, err)

	assert.Equal(t, consts.EngineReactor, cfg.Engine())
	assert.Equal(t, "", cfg.Host())
	assert.Equal(t, consts.DefaultPort, cfg.Port())
	assert.Equal(t, 0, cfg.MaxConns())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RAWD_PORT", "7001")
	t.Setenv("RAWD_ENGINE", consts.EngineGoroutine)

	cfg, err := Load()
	require.Nil(t, err)

	assert.Equal(t, 7001, cfg.Port())
	assert.Equal(t, consts.EngineGoroutine, cfg.Engine())
}

func TestSetWinsOverEnv(t *testing.T) {
	t.Setenv("RAWD_PORT", "7001")

	cfg, err := Load()
	require.Nil(t, err)

	cfg.Set(consts.KeyPort, 7002)
	assert.Equal(t, 7002, cfg.Port())
}
