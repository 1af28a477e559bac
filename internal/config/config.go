package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	Secret          string        `mapstructure:"secret"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxParticipants int           `mapstructure:"max_participants"`
	STUNServer      string        `mapstructure:"stun_server"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8888)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "25s")
	v.SetDefault("request_timeout", "5s")
	v.SetDefault("max_participants", 10)
	v.SetDefault("stun_server", "stun:stun.l.google.com:19302")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
