package supervisor

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/spacemeshos/localnet/nodeconfig"
)

// Manifest describes a running local network.
type Manifest struct {
	RunID     string         `yaml:"run_id"     json:"run_id"`
	StartedAt time.Time      `yaml:"started_at" json:"started_at"`
	Profile   string         `yaml:"profile"    json:"profile"`
	Binary    string         `yaml:"binary"     json:"binary"`
	Nodes     []ManifestNode `yaml:"nodes"      json:"nodes"`
}

type ManifestNode struct {
	nodeconfig.NodeConfig `yaml:",inline"`

	PID  int      `yaml:"pid"  json:"pid"`
	Args []string `yaml:"args" json:"args"`
}

// NewManifest describes the processes of set.
func NewManifest(runID, profile, binary string, startedAt time.Time, set *ActiveSet) Manifest {
	m := Manifest{
		RunID:     runID,
		StartedAt: startedAt.UTC(),
		Profile:   profile,
		Binary:    binary,
		Nodes:     make([]ManifestNode, 0, set.Len()),
	}
	for _, h := range set.handles {
		m.Nodes = append(m.Nodes, ManifestNode{
			NodeConfig: h.Config(),
			PID:        h.PID(),
			Args:       h.Args(),
		})
	}
	return m
}

// WriteManifest validates m and replaces the manifest at path in a single rename.
func WriteManifest(path string, m Manifest) error {
	if err := ValidateManifest(&m); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if err := ValidateManifest(&m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}
