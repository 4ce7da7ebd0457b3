// Package cmd is the localnet command line: it parses the harness config,
// starts the nodes and relays their output to stdout.
package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spacemeshos/localnet/config"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"config":       "main.config",
	"data-root":    "main.data-root",
	"nodes":        "main.nodes",
	"profile":      "main.profile",
	"color":        "main.color",
	"binary":       "launch.binary",
	"host":         "launch.host",
	"base-port":    "launch.base-port",
	"node-arg":     "launch.node-args",
	"metrics":      "metrics.enabled",
	"metrics-port": "metrics.port",
	"log-encoder":  "logging.log-encoder",
	"log-level":    "logging.log-level",
}

// bindFlags makes flags visible to vip under their config keys.
// A flag that was set on the command line takes precedence over the config file.
func bindFlags(vip *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %s is not defined", name)
		}
		if err := vip.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// parseConfig returns the default config overwritten by the config file (if any)
// and then by the flags that were set.
func parseConfig(vip *viper.Viper) (*config.Config, error) {
	if file := vip.GetString(flagKeys["config"]); file != "" {
		if err := config.LoadConfig(file, vip); err != nil {
			return nil, err
		}
	}

	conf := config.DefaultConfig()
	if err := vip.Unmarshal(&conf, config.DecodeHook()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &conf, nil
}
