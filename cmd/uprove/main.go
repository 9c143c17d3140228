// Command uprove sets up, serves and exercises anonymous tokens.
//
// Every flag can also be given in the YAML file passed with --config, or as an environment
// variable prefixed with UPROVE_, such as UPROVE_LISTEN.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config is the union of the settings of all commands.
type config struct {
	Group       string        `mapstructure:"group"`
	Params      string        `mapstructure:"params"`
	Key         string        `mapstructure:"key"`
	Role        string        `mapstructure:"role"`
	Out         string        `mapstructure:"out"`
	Listen      string        `mapstructure:"listen"`
	URL         string        `mapstructure:"url"`
	SessionTTL  time.Duration `mapstructure:"session-ttl"`
	MaxSessions int           `mapstructure:"max-sessions"`
	Sessions    int           `mapstructure:"sessions"`
	Workers     int           `mapstructure:"workers"`
	Seed        string        `mapstructure:"seed"`
	LogLevel    string        `mapstructure:"log-level"`
	Pretty      bool          `mapstructure:"pretty"`
}

var (
	v   = viper.New()
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "uprove",
		Short:         "Issue and redeem U-Prove style anonymous tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("pretty", false, "human readable logs")

	root.AddCommand(
		newSetupCmd(),
		newKeygenCmd(),
		newDemoCmd(),
		newServeCmd(),
		newClientCmd(),
	)
	return root
}

// initConfig binds the flags of the running command, and reads the configuration file and the environment.
func initConfig(cmd *cobra.Command, configFile string) error {
	v.SetEnvPrefix("UPROVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	if v.GetBool("pretty") {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log = log.Level(level)
	return nil
}

func loadConfig() (*config, error) {
	var c config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
