// Package nodetest runs the current test binary as a fake node.
//
// A test package opts in by calling Main at the top of TestMain:
//
//	func TestMain(m *testing.M) {
//		nodetest.Main()
//		os.Exit(m.Run())
//	}
package nodetest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spacemeshos/localnet/nodeconfig"
	"github.com/spacemeshos/localnet/supervisor"
)

// EnvMode selects the fake node behaviour of a child test binary.
const EnvMode = "LOCALNET_FAKE_NODE"

// Fake node behaviours.
const (
	// Ready prints "ready" and stays silent until killed.
	Ready = "ready"
	// ReadyExit prints "ready" and exits.
	ReadyExit = "ready-exit"
	// EchoArgs prints every argument on its own line and exits.
	EchoArgs = "echo-args"
	// RejectArgs complains on stderr and exits with status 2.
	RejectArgs = "reject-args"
	// CloseStdout prints "ready", closes its stdout and stays alive until killed.
	CloseStdout = "close-stdout"
)

// Env returns the environment entry selecting mode.
func Env(mode string) string {
	return EnvMode + "=" + mode
}

// Main runs the fake node and exits if the process was started as one.
// Otherwise it returns immediately.
func Main() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}
	os.Exit(run(mode, os.Args[1:]))
}

func run(mode string, args []string) int {
	switch mode {
	case Ready:
		fmt.Println("ready")
		time.Sleep(time.Hour)
	case ReadyExit:
		fmt.Println("ready")
	case EchoArgs:
		for _, arg := range args {
			fmt.Println(arg)
		}
	case CloseStdout:
		fmt.Println("ready")
		os.Stdout.Close()
		time.Sleep(time.Hour)
	case RejectArgs:
		fmt.Fprintf(os.Stderr, "unexpected arguments %v\n", args)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "unknown fake node mode %q\n", mode)
		return 1
	}
	return 0
}

// Builder starts the running test binary as a fake node in the given mode.
func Builder(mode string) supervisor.CommandBuilder {
	return supervisor.CommandBuilderFunc(func(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd {
		return Command(ctx, mode, cfg.Args()...)
	})
}

// Modes starts node i in modes[i].
func Modes(modes ...string) supervisor.CommandBuilder {
	return supervisor.CommandBuilderFunc(func(ctx context.Context, cfg nodeconfig.NodeConfig) *exec.Cmd {
		return Command(ctx, modes[cfg.Index], cfg.Args()...)
	})
}

// Command returns an unstarted fake node in the given mode.
func Command(ctx context.Context, mode string, args ...string) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Env = append(os.Environ(), Env(mode))
	return cmd
}
