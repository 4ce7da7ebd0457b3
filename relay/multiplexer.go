// Package relay multiplexes the output of node processes onto a single reporter.
//
// Streams are read in strict round-robin order: in every pass the multiplexer
// performs one blocking line read per live node, in increasing index order, and
// never reads node i+1 before node i returned a line or reached end of stream.
// A silent node therefore delays the output of all nodes after it.
// A node whose output ended is retired and never read again; its process is
// reaped in the background.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/localnet/supervisor"
)

type Opt func(*Multiplexer)

// WithClock sets the clock used to compute node uptime.
func WithClock(clock clockwork.Clock) Opt {
	return func(m *Multiplexer) {
		m.clock = clock
	}
}

// Multiplexer relays node output line by line.
type Multiplexer struct {
	logger   *zap.Logger
	reporter Reporter
	clock    clockwork.Clock
}

func NewMultiplexer(logger *zap.Logger, reporter Reporter, opts ...Opt) *Multiplexer {
	m := &Multiplexer{
		logger:   logger,
		reporter: reporter,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run relays output until every stream of set ended, ctx is done or an error occurs.
// ctx is checked before every read; a read in progress is not interrupted.
func (m *Multiplexer) Run(ctx context.Context, set *supervisor.ActiveSet) error {
	live := set.Handles()
	liveNodes.Set(float64(len(live)))
	for len(live) > 0 {
		n := 0
		for _, h := range live {
			if err := ctx.Err(); err != nil {
				return err
			}
			open, err := m.relay(h)
			if err != nil {
				return err
			}
			if open {
				live[n] = h
				n++
				continue
			}
			m.retire(h)
		}
		clear(live[n:])
		live = live[:n]
	}
	m.logger.Info("output of all nodes closed")
	return nil
}

// relay reads and reports one line of h. It returns false once the stream ended.
func (m *Multiplexer) relay(h *supervisor.Handle) (bool, error) {
	line, err := h.ReadLine()
	eof := errors.Is(err, io.EOF)
	if err != nil && !eof {
		return false, fmt.Errorf("read output of node %d: %w", h.Index(), err)
	}
	if !eof || len(line) > 0 {
		if err := m.report(h.Index(), line); err != nil {
			return false, err
		}
	}
	return !eof, nil
}

func (m *Multiplexer) report(index int, line []byte) error {
	if !utf8.Valid(line) {
		return &DecodeError{Index: index, Line: line}
	}
	if err := m.reporter.Report(index, string(line)); err != nil {
		return fmt.Errorf("report output of node %d: %w", index, err)
	}
	linesRelayed.WithLabelValues(strconv.Itoa(index)).Inc()
	return nil
}

// retire takes h out of rotation. The process is reaped off the relay path,
// it may keep running after closing its output.
func (m *Multiplexer) retire(h *supervisor.Handle) {
	closedStreams.Inc()
	liveNodes.Dec()

	fields := []zap.Field{zap.Int("node", h.Index())}
	if started := h.StartedAt(); !started.IsZero() {
		fields = append(fields, zap.Duration("uptime", m.clock.Since(started)))
	}
	m.logger.Info("node output closed", fields...)

	h.Reap(func(err error) {
		if err != nil {
			m.logger.Warn("node exited", zap.Int("node", h.Index()), zap.Error(err))
			return
		}
		m.logger.Info("node exited", zap.Int("node", h.Index()))
	})
}
