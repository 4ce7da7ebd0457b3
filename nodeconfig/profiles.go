package nodeconfig

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

const (
	// NetworkProfile passes listen, external and bootstrap addresses to every node.
	NetworkProfile = "network"
	// PortProfile passes only a port and leaves peer discovery to the node's defaults.
	PortProfile = "port"
)

var ErrUnknownProfile = errors.New("unknown profile")

// Profile fills the network parameters of a node config.
type Profile interface {
	Name() string
	Apply(cfg *NodeConfig, params Params)
}

var profiles = map[string]Profile{}

func register(p Profile) {
	if _, exists := profiles[p.Name()]; exists {
		panic(fmt.Sprintf("profile %s registered twice", p.Name()))
	}
	profiles[p.Name()] = p
}

func init() {
	register(networkProfile{})
	register(portProfile{})
}

// Get returns the profile registered under name.
func Get(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, options %v", ErrUnknownProfile, name, Options())
	}
	return p, nil
}

// Options returns the names of all registered profiles.
func Options() []string {
	return slices.Sorted(maps.Keys(profiles))
}

type networkProfile struct{}

func (networkProfile) Name() string { return NetworkProfile }

// Apply sets the node's own address and points it at node 0.
// Node 0 receives its own address as bootstrap target.
func (networkProfile) Apply(cfg *NodeConfig, params Params) {
	addr := params.Address(cfg.Index)
	cfg.Listen = addr
	cfg.External = addr
	cfg.Bootstrap = params.Address(0)
}

type portProfile struct{}

func (portProfile) Name() string { return PortProfile }

func (portProfile) Apply(cfg *NodeConfig, params Params) {
	cfg.Port = params.BasePort + cfg.Index
}
