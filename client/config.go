package client

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddress string `envconfig:"CHAT_SERVER_ADDR" default:"127.0.0.1:8080"`
	// CHAT_IDLE_TIMEOUT disconnects the client when the server stays silent that long
	IdleTimeout time.Duration `envconfig:"CHAT_IDLE_TIMEOUT" default:"5m"`
	DialTimeout time.Duration `envconfig:"CHAT_DIAL_TIMEOUT" default:"5s"`
	// CHAT_COLOURS paints join and leave notices
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
