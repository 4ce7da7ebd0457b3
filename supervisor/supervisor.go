// Package supervisor starts the node processes of a local network.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/localnet/nodeconfig"
)

// CommandBuilderFunc adapts a function to the CommandBuilder interface.
type CommandBuilderFunc func(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd

func (f CommandBuilderFunc) Build(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd {
	return f(ctx, cfg)
}

// BinaryCommand returns a builder that runs the node binary at path with the
// node's arguments followed by extra.
// The process is killed once ctx is done.
func BinaryCommand(path string, extra ...string) CommandBuilder {
	return CommandBuilderFunc(func(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd {
		args := append(cfg.Args(), extra...)
		return exec.CommandContext(ctx, path, args...)
	})
}

type Opt func(*Supervisor)

// WithClock sets the clock used to record start times.
func WithClock(clock clockwork.Clock) Opt {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// WithStderr sets where the stderr of nodes goes. Defaults to the harness' stderr.
func WithStderr(w io.Writer) Opt {
	return func(s *Supervisor) {
		s.stderr = w
	}
}

// Supervisor launches node processes and hands out their output streams.
type Supervisor struct {
	logger  *zap.Logger
	builder CommandBuilder
	clock   clockwork.Clock
	stderr  io.Writer
}

func New(logger *zap.Logger, builder CommandBuilder, opts ...Opt) *Supervisor {
	s := &Supervisor{
		logger:  logger,
		builder: builder,
		clock:   clockwork.NewRealClock(),
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts one process per config, in index order, and returns their handles.
// If any process fails to start, the ones already started are killed and a
// *SpawnError is returned.
func (s *Supervisor) Spawn(ctx context.Context, configs []nodeconfig.NodeConfig) (*ActiveSet, error) {
	for i, cfg := range configs {
		if cfg.Index != i {
			return nil, fmt.Errorf("config at position %d has index %d", i, cfg.Index)
		}
	}
	set := &ActiveSet{handles: make([]*Handle, 0, len(configs))}
	for _, cfg := range configs {
		h, err := s.start(ctx, cfg)
		if err != nil {
			spawnFailures.Inc()
			if err := set.Close(); err != nil {
				s.logger.Warn("failed to stop started nodes", zap.Error(err))
			}
			return nil, err
		}
		set.handles = append(set.handles, h)
	}
	return set, nil
}

func (s *Supervisor) start(ctx context.Context, cfg nodeconfig.NodeConfig) (*Handle, error) {
	cmd := s.builder.Build(ctx, cfg)
	if cmd.Stderr == nil {
		cmd.Stderr = s.stderr
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Index: cfg.Index, Args: cmd.Args, Err: fmt.Errorf("setup stdout pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Index: cfg.Index, Args: cmd.Args, Err: err}
	}
	spawned.Inc()
	s.logger.Info("node started",
		zap.Int("node", cfg.Index),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("cmd", cmd.String()),
	)
	return newProcessHandle(cfg, cmd, stdout, s.clock.Now()), nil
}
