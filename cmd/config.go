package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                 string        `env:"HOST,default=127.0.0.1"`
	Port                 int           `env:"PORT,default=8080" validate:"gte=0,lte=65535"`
	PoolSize             int           `env:"POOL_SIZE,default=16" validate:"gt=0"`
	SubscriptionCapacity int           `env:"SUBSCRIPTION_CAPACITY,default=4" validate:"gt=0"`
	FrameSize            int           `env:"FRAME_SIZE,default=1024" validate:"gt=0"`
	AcceptPollTimeout    time.Duration `env:"ACCEPT_POLL_TIMEOUT,default=500ms" validate:"gt=0"`
	RestartDelay         time.Duration `env:"RESTART_DELAY,default=200ms" validate:"gte=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=1" validate:"gte=0"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	MetricsAddr          string        `env:"METRICS_ADDR"`
	HealthAddr           string        `env:"HEALTH_ADDR"`
	CensoredDir          string        `env:"CENSORED_DIR"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
