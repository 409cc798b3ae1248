package console

import (
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"lab0/config"
	"lab0/errors"
	"lab0/logutil"
)

// options defines flags and other configuration parameters for the `qtest` command.
type options struct {
	file       string
	configFile string
	logFile    string
	logLevel   string
	verbose    int
	interact   bool
}

// newOptions creates new options for the `qtest` command.
func newOptions() *options {
	return &options{}
}

// addFlags binds the qtest flags to fs.
func (o *options) addFlags(fs *pflag.FlagSet) {
	if o == nil {
		return
	}
	fs.StringVarP(&o.file, "file", "f", "", "read commands from file")
	fs.StringVar(&o.configFile, "config", "", "path of the configuration file")
	fs.StringVarP(&o.logFile, "log", "l", "", "copy console output to file")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (etc: debug|info|warn|error)")
	fs.IntVarP(&o.verbose, "verbose", "v", config.DefaultVerbose, "verbosity level (0-5)")
	fs.BoolVarP(&o.interact, "interact", "i", false, "read commands with readline after the file, if any")
}

// complete builds the console config from the config file and the flags
// that were explicitly set.
func (o *options) complete(fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.GetDefaultConfig()
	if o.configFile != "" {
		if err := cfg.ConfigFromFile(o.configFile); err != nil {
			return nil, err
		}
		cfg.ConfigFile = o.configFile
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "verbose":
			cfg.Verbose = o.verbose
		case "log-level":
			cfg.LogConf.Level = o.logLevel
		}
	})
	if err := cfg.Adjust(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewCmdQtest creates the `qtest` command.
func NewCmdQtest() *cobra.Command {
	o := newOptions()

	cmd := &cobra.Command{
		Use:          "qtest",
		Short:        "Test the string queue with commands from a file or the terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.complete(cmd.Flags())
			if err != nil {
				return err
			}
			if err := logutil.InitLogger(&cfg.LogConf); err != nil {
				return err
			}
			log.Info("qtest started", zap.Stringer("config", cfg))
			return run(cmd, o, cfg)
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, o *options, cfg *config.Config) error {
	c := New(cfg, cmd.OutOrStdout())
	if o.logFile != "" {
		if err := c.setLogFile(o.logFile); err != nil {
			return err
		}
	}

	if o.file != "" {
		// command errors are counted by the console
		_, err := c.runScript(o.file)
		if err != nil {
			c.reportError(err)
		}
	}
	if o.file == "" || o.interact {
		if err := c.RunInteractive(); err != nil {
			return err
		}
	}

	if err := c.Close(); err != nil {
		c.reportError(err)
	}
	log.Info("qtest finished", zap.Int("errors", c.Errors()))
	if c.Errors() > 0 {
		return errors.ErrConsoleErrors.GenWithStackByArgs(c.Errors())
	}
	return nil
}
