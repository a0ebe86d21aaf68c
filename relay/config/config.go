package config

import (
	"errors"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/spf13/viper"
)

// Config wraps the merged view of defaults, the optional yaml config file
// under consts.DefaultConfigPath, RAWD_* env vars and CLI overrides.
type Config struct {
	v *viper.Viper
}

func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(consts.DefaultConfigPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RAWD")
	v.AutomaticEnv()

	v.SetDefault(consts.KeyEngine, consts.EngineReactor)
	v.SetDefault(consts.KeyHost, "")
	v.SetDefault(consts.KeyPort, consts.DefaultPort)
	v.SetDefault(consts.KeyMaxConns, 0)
	v.SetDefault(consts.KeyPushGateway, "")

	if err := v.ReadInConfig(); err != nil {
		// the relay runs fine without a config file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errs.NewConfigLoadErr().WithErr(err)
		}
	}

	return &Config{v: v}, nil
}

// Set records a CLI-level override, which wins over file and env values.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) Engine() string {
	return c.v.GetString(consts.KeyEngine)
}

func (c *Config) Host() string {
	return c.v.GetString(consts.KeyHost)
}

func (c *Config) Port() int {
	return c.v.GetInt(consts.KeyPort)
}

// MaxConns is the accepted connection cap, 0 means unbounded.
func (c *Config) MaxConns() int {
	return c.v.GetInt(consts.KeyMaxConns)
}

func (c *Config) PushGateway() string {
	return c.v.GetString(consts.KeyPushGateway)
}
