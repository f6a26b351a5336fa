package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis      Redis   `yaml:"redis"`
	Session    Session `yaml:"session"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Session struct {
	// WaitingTimeout reaps sessions that never received a second join.
	WaitingTimeout time.Duration `yaml:"waiting-timeout" env-default:"10m"`
	// AbandonedGrace reaps ongoing sessions after both players vanish.
	AbandonedGrace time.Duration `yaml:"abandoned-grace" env-default:"2m"`
	// FinishedRetention keeps finished sessions around for late result queries.
	FinishedRetention time.Duration `yaml:"finished-retention" env-default:"1m"`
	ReapInterval      time.Duration `yaml:"reap-interval" env-default:"30s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// SlogLevel - maps the configured log level onto slog's scale. Unknown
// values fall back to info.
func (that *Config) SlogLevel() slog.Level {
	switch that.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
