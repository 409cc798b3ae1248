package config

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/log"

	"lab0/errors"
	"lab0/logutil"
)

const (
	// DefaultStringLength is the size of the buffer removed values are copied into.
	DefaultStringLength = 1024
	// DefaultErrorLimit is the number of errors after which the console stops.
	DefaultErrorLimit = 5
	// DefaultVerbose is the default console verbosity level.
	DefaultVerbose = 4

	maxVerbose = 5
)

// Config is the configuration of the qtest console.
type Config struct {
	LogConf logutil.Config `toml:"log" json:"log"`

	// Verbose is the console verbosity, 0 (silent) to 5 (everything).
	Verbose int `toml:"verbose" json:"verbose"`
	// FailProbability is the percentage of allocations refused, 0 to 100.
	FailProbability int `toml:"fail-probability" json:"fail-probability"`
	// Seed seeds the allocation failure and RAND string generators.
	Seed uint64 `toml:"seed" json:"seed"`
	// StringLength is the buffer size used by rh, terminator included.
	StringLength int `toml:"string-length" json:"string-length"`
	// ErrorLimit stops the console once that many errors were reported.
	ErrorLimit int `toml:"error-limit" json:"error-limit"`
	// Echo prints each command before executing it.
	Echo bool `toml:"echo" json:"echo"`

	ConfigFile string `toml:"config-file" json:"config-file"`
}

// GetDefaultConfig returns a default console config.
func GetDefaultConfig() *Config {
	return &Config{
		LogConf: logutil.Config{
			Level: "warn",
			File:  "",
		},
		Verbose:         DefaultVerbose,
		FailProbability: 0,
		Seed:            1,
		StringLength:    DefaultStringLength,
		ErrorLimit:      DefaultErrorLimit,
		Echo:            true,
	}
}

func (c *Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		log.L().Error("fail to marshal config to json", logutil.ShortError(err))
	}
	return string(cfg)
}

// Toml returns TOML format representation of config.
func (c *Config) Toml() (string, error) {
	var b bytes.Buffer
	err := toml.NewEncoder(&b).Encode(c)
	if err != nil {
		log.L().Error("fail to marshal config to toml", logutil.ShortError(err))
	}
	return b.String(), err
}

// Adjust fills defaults and validates the config.
func (c *Config) Adjust() error {
	c.LogConf.Adjust()
	if err := c.LogConf.Validate(); err != nil {
		return err
	}
	if c.Verbose < 0 || c.Verbose > maxVerbose {
		return errors.ErrConfigInvalid.GenWithStackByArgs("verbose", c.Verbose)
	}
	if c.FailProbability < 0 || c.FailProbability > 100 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("fail-probability", c.FailProbability)
	}
	if c.StringLength < 1 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("string-length", c.StringLength)
	}
	if c.ErrorLimit < 1 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("error-limit", c.ErrorLimit)
	}
	return nil
}

// ConfigFromFile loads config from file and merges items into Config.
func (c *Config) ConfigFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.WrapError(errors.ErrDecodeConfigFile, err)
	}
	return checkUndecodedItems(metaData)
}

// ConfigFromString loads config from a TOML string and merges items into Config.
func (c *Config) ConfigFromString(data string) error {
	metaData, err := toml.Decode(data, c)
	if err != nil {
		return errors.WrapError(errors.ErrDecodeConfigFile, err)
	}
	return checkUndecodedItems(metaData)
}

func checkUndecodedItems(metaData toml.MetaData) error {
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return errors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(undecodedItems, ","))
	}
	return nil
}
