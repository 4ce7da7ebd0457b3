package supervisor

import (
	"context"
	"os/exec"

	"github.com/spacemeshos/localnet/nodeconfig"
)

//go:generate mockgen -typed -package=supervisor -destination=./mocks.go -source=./interface.go

// CommandBuilder creates the unstarted command of a node.
type CommandBuilder interface {
	Build(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd
}
