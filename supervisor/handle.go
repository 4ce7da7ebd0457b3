package supervisor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/spacemeshos/localnet/nodeconfig"
)

// Handle owns one node process and the reader bound to its stdout.
type Handle struct {
	config    nodeconfig.NodeConfig
	cmd       *exec.Cmd // nil for streams without a process
	reader    *bufio.Reader
	startedAt time.Time

	waitOnce sync.Once
	waitErr  error
	reapers  sync.WaitGroup
}

// NewHandle returns a handle relaying r as the output of node index.
// It is not bound to a process.
func NewHandle(index int, r io.Reader) *Handle {
	return &Handle{
		config: nodeconfig.NodeConfig{Index: index},
		reader: bufio.NewReader(r),
	}
}

func newProcessHandle(cfg nodeconfig.NodeConfig, cmd *exec.Cmd, stdout io.Reader, startedAt time.Time) *Handle {
	return &Handle{
		config:    cfg,
		cmd:       cmd,
		reader:    bufio.NewReader(stdout),
		startedAt: startedAt,
	}
}

func (h *Handle) Index() int {
	return h.config.Index
}

func (h *Handle) Config() nodeconfig.NodeConfig {
	return h.config
}

// StartedAt is the time the process was started, zero without a process.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// PID returns the process id or 0 if the handle has no process.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Args returns the full command line of the process.
func (h *Handle) Args() []string {
	if h.cmd == nil {
		return nil
	}
	return h.cmd.Args
}

// ReadLine blocks until the next line of output is available and returns it
// without the trailing newline. Any other byte, a carriage return included, is kept.
// At the end of the stream it returns io.EOF together with the last
// unterminated line, which may be empty.
func (h *Handle) ReadLine() ([]byte, error) {
	line, err := h.reader.ReadBytes('\n')
	return bytes.TrimSuffix(line, []byte("\n")), err
}

// Wait reaps the process and returns its exit error.
// It must only be called once the output reached end of stream or the process was killed.
func (h *Handle) Wait() error {
	if h.cmd == nil {
		return nil
	}
	h.waitOnce.Do(func() {
		h.waitErr = h.cmd.Wait()
	})
	return h.waitErr
}

// Reap waits for the process in the background and passes its exit error to onExit.
// A process may outlive its output, so callers that stop reading use Reap instead of Wait.
// ActiveSet.Close returns only after onExit returned. Without a process it does nothing.
func (h *Handle) Reap(onExit func(error)) {
	if h.cmd == nil {
		return
	}
	h.reapers.Add(1)
	go func() {
		defer h.reapers.Done()
		err := h.Wait()
		if onExit != nil {
			onExit(err)
		}
	}()
}

// Kill terminates the process if it is still running.
func (h *Handle) Kill() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill node %d: %w", h.Index(), err)
	}
	return nil
}

// ActiveSet is the fixed, index-ordered collection of node handles.
type ActiveSet struct {
	handles []*Handle
}

// NewActiveSet returns a set of the given handles. Handle i must have index i.
func NewActiveSet(handles ...*Handle) *ActiveSet {
	return &ActiveSet{handles: handles}
}

func (s *ActiveSet) Len() int {
	return len(s.handles)
}

// Handle returns the handle of node i.
func (s *ActiveSet) Handle(i int) *Handle {
	return s.handles[i]
}

// Handles returns a copy of the handles in index order.
func (s *ActiveSet) Handles() []*Handle {
	return append([]*Handle(nil), s.handles...)
}

// Close kills and reaps every process of the set and waits for pending Reap callbacks.
func (s *ActiveSet) Close() error {
	var errs []error
	for _, h := range s.handles {
		if err := h.Kill(); err != nil {
			errs = append(errs, err)
			continue
		}
		// exit status of a killed process is not interesting
		_ = h.Wait()
		h.reapers.Wait()
	}
	return errors.Join(errs...)
}
