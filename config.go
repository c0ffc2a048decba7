package bunchfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the declarative form of the store options, suitable for YAML
// files:
//
//	bunch_size: 256
//	compression_level: 9
//	log_level: info
//	log_format: json
type Config struct {
	BunchSize        int    `yaml:"bunch_size" validate:"required,min=1,max=1048576"`
	CompressionLevel *int   `yaml:"compression_level" validate:"omitempty,min=-2,max=9"` // nil selects the default level
	LogLevel         string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat        string `yaml:"log_format" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns the configuration Open uses without options.
func DefaultConfig() Config {
	return Config{
		BunchSize: DefaultBunchSize,
	}
}

// ParseConfig decodes and validates a YAML configuration. Fields missing from
// data keep their DefaultConfig values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, newIOError("read config", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the configuration to Open options.
func (c Config) Options() []Option {
	opts := []Option{WithBunchSize(c.BunchSize)}
	if c.CompressionLevel != nil {
		opts = append(opts, WithCompressionLevel(*c.CompressionLevel))
	}
	if c.LogLevel != "" || c.LogFormat != "" {
		level := ParseLogLevel(c.LogLevel)
		if c.LogFormat == "json" {
			opts = append(opts, WithLogger(NewJSONLogger(level)))
		} else {
			opts = append(opts, WithLogger(NewTextLogger(level)))
		}
	}
	return opts
}

// ParseLogLevel maps a Config log level name to a slog level. Unknown and
// empty names select slog.LevelInfo.
func ParseLogLevel(s string) slog.Level {
	switch s {
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
