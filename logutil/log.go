package logutil

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lab0/errors"
)

const (
	// DefaultLogLevel is the level used when none is configured.
	DefaultLogLevel = "info"

	constFieldComponentKey = "component"
)

// Config defines the logging configuration.
type Config struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log filename, leave empty to disable file log.
	File string `toml:"file" json:"file"`
	// Max size for a single file, in MB.
	FileMaxSize int `toml:"max-size" json:"max-size"`
	// Max log keep days, default is never deleting.
	FileMaxDays int `toml:"max-days" json:"max-days"`
	// Maximum number of old log files to retain.
	FileMaxBackups int `toml:"max-backups" json:"max-backups"`
}

// Adjust fills unset fields with defaults.
func (c *Config) Adjust() {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
}

// Validate checks the log level is one zap understands.
func (c *Config) Validate() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return errors.ErrConfigInvalid.GenWithStackByArgs("log.level", c.Level)
	}
	return nil
}

// InitLogger initializes the global pingcap/log logger with cfg.
func InitLogger(cfg *Config) error {
	cfg.Adjust()
	if err := cfg.Validate(); err != nil {
		return err
	}
	lg, props, err := log.InitLogger(&log.Config{
		Level: cfg.Level,
		File: log.FileLogConfig{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSize,
			MaxDays:    cfg.FileMaxDays,
			MaxBackups: cfg.FileMaxBackups,
		},
	})
	if err != nil {
		return errors.WrapError(errors.ErrInitLogger, err)
	}
	log.ReplaceGlobals(lg, props)
	return nil
}

// NewLogger4Component returns a logger tagged with the component name.
func NewLogger4Component(component string) *zap.Logger {
	return log.L().With(zap.String(constFieldComponentKey, component))
}

// ShortError contructs a field which only records the error message without the
// verbose text (i.e. excludes the stack).
func ShortError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}
