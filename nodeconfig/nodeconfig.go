// Package nodeconfig builds the per-node launch configuration of a local network.
package nodeconfig

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
)

// Flags understood by the node binary.
const (
	FlagDB        = "--db"
	FlagListen    = "--listen"
	FlagExternal  = "--external"
	FlagBootstrap = "--bootstrap"
	FlagPort      = "--port"
)

const nodeDirPrefix = "node"

var (
	ErrInvalidNodeCount = errors.New("node count must be positive")
	ErrPortRange        = errors.New("port out of range")
)

// Params are the inputs shared by every node of a run.
type Params struct {
	DataRoot string
	Host     string
	BasePort int
}

// NodeConfig is the launch configuration of a single node.
// Which network fields are set depends on the profile that generated it.
type NodeConfig struct {
	Index   int    `yaml:"index"    json:"index"`
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Listen    string `yaml:"listen,omitempty"    json:"listen,omitempty"`
	External  string `yaml:"external,omitempty"  json:"external,omitempty"`
	Bootstrap string `yaml:"bootstrap,omitempty" json:"bootstrap,omitempty"`

	Port int `yaml:"port,omitempty" json:"port,omitempty"`
}

// Args renders the command line arguments of the node.
func (c NodeConfig) Args() []string {
	args := []string{FlagDB, c.DataDir}
	if c.Listen != "" {
		args = append(args, FlagListen, c.Listen)
	}
	if c.External != "" {
		args = append(args, FlagExternal, c.External)
	}
	if c.Bootstrap != "" {
		args = append(args, FlagBootstrap, c.Bootstrap)
	}
	if c.Port != 0 {
		args = append(args, FlagPort, strconv.Itoa(c.Port))
	}
	return args
}

// DataDir returns the data directory of the node with the given index.
func DataDir(root string, index int) string {
	return filepath.Join(root, nodeDirPrefix+strconv.Itoa(index))
}

// Address returns host:port of the node with the given index.
func (p Params) Address(index int) string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.BasePort+index))
}

func (p Params) validate(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeCount, n)
	}
	if p.BasePort < 1 || p.BasePort+n-1 > 65535 {
		return fmt.Errorf("%w: %d-%d", ErrPortRange, p.BasePort, p.BasePort+n-1)
	}
	return nil
}

// Generate returns the configs of n nodes, ordered by index.
// The result only depends on the arguments.
func Generate(profile Profile, n int, params Params) ([]NodeConfig, error) {
	if err := params.validate(n); err != nil {
		return nil, err
	}
	configs := make([]NodeConfig, 0, n)
	for i := range n {
		cfg := NodeConfig{
			Index:   i,
			DataDir: DataDir(params.DataRoot, i),
		}
		profile.Apply(&cfg, params)
		configs = append(configs, cfg)
	}
	return configs, nil
}
