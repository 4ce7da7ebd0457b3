// Package config contains the localnet harness configuration definitions.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spacemeshos/localnet/nodeconfig"
)

const (
	defaultDataRoot = "nodes"
	defaultBinary   = "./target/debug/bazuka"

	// LockFileName is taken in the data root for the lifetime of the harness.
	LockFileName = ".localnet.lock"
	// ManifestFileName describes the running network, it is written to the data root.
	ManifestFileName = "localnet.yaml"
)

// Config defines the top level configuration of the harness.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Launch     LaunchConfig  `mapstructure:"launch"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
	LOGGING    LoggerConfig  `mapstructure:"logging"`
}

// BaseConfig defines the shape of the local network.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	DataRoot string `mapstructure:"data-root"`
	Nodes    int    `mapstructure:"nodes"`
	Profile  string `mapstructure:"profile"`
	Color    bool   `mapstructure:"color"`
}

// LaunchConfig defines how node processes are started.
type LaunchConfig struct {
	Binary   string   `mapstructure:"binary"`
	Host     string   `mapstructure:"host"`
	BasePort int      `mapstructure:"base-port"`
	NodeArgs []string `mapstructure:"node-args"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DefaultConfig returns the default configuration: four nodes bootstrapping from the first one.
func DefaultConfig() Config {
	return Config{
		BaseConfig: BaseConfig{
			DataRoot: defaultDataRoot,
			Nodes:    4,
			Profile:  nodeconfig.NetworkProfile,
		},
		Launch: LaunchConfig{
			Binary:   defaultBinary,
			Host:     "127.0.0.1",
			BasePort: 3030,
		},
		Metrics: MetricsConfig{
			Port: 1010,
		},
		LOGGING: defaultLoggingConfig(),
	}
}

// Params returns the inputs of node config generation.
func (cfg *Config) Params() nodeconfig.Params {
	return nodeconfig.Params{
		DataRoot: cfg.DataRoot,
		Host:     cfg.Launch.Host,
		BasePort: cfg.Launch.BasePort,
	}
}

// ManifestPath returns the path of the run manifest.
func (cfg *Config) ManifestPath() string {
	return filepath.Join(cfg.DataRoot, ManifestFileName)
}

// Validate checks the values that would only fail later, after nodes were started.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.DataRoot == "" {
		errs = append(errs, errors.New("data root is not set"))
	}
	if cfg.Launch.Binary == "" {
		errs = append(errs, errors.New("node binary is not set"))
	}
	if _, err := nodeconfig.Get(cfg.Profile); err != nil {
		errs = append(errs, err)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid metrics port %d", cfg.Metrics.Port))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the config file at fileLocation into vip.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", fileLocation, err)
	}
	return nil
}

// DecodeHook is used when unmarshalling the harness config.
// It accepts comma separated strings for list values such as launch.node-args.
func DecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.StringToSliceHookFunc(","))
}
