package relay_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/localnet/log/logtest"
	"github.com/spacemeshos/localnet/nodeconfig"
	"github.com/spacemeshos/localnet/relay"
	"github.com/spacemeshos/localnet/supervisor"
	"github.com/spacemeshos/localnet/supervisor/nodetest"
)

func TestMain(m *testing.M) {
	nodetest.Main()
	os.Exit(m.Run())
}

// lineReader returns one line per Read call, then io.EOF.
type lineReader struct {
	lines  []string
	reads  atomic.Int32
	onRead func()
}

func newLineReader(lines ...string) *lineReader {
	return &lineReader{lines: lines}
}

func (r *lineReader) Read(p []byte) (int, error) {
	r.reads.Add(1)
	if r.onRead != nil {
		r.onRead()
	}
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.lines[0])
	r.lines = r.lines[1:]
	return n, nil
}

type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// recorder collects reported lines.
type recorder struct {
	mu    sync.Mutex
	lines []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 100)}
}

func (r *recorder) Report(index int, line string) error {
	out := fmt.Sprintf("%d : %s", index, line)
	r.mu.Lock()
	r.lines = append(r.lines, out)
	r.mu.Unlock()
	r.ch <- out
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestRun_RoundRobinOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := relay.NewMockReporter(ctrl)

	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, strings.NewReader("a\nd\n")),
		supervisor.NewHandle(1, strings.NewReader("b\n")),
		supervisor.NewHandle(2, strings.NewReader("c\ne\n")),
	)
	gomock.InOrder(
		reporter.EXPECT().Report(0, "a"),
		reporter.EXPECT().Report(1, "b"),
		reporter.EXPECT().Report(2, "c"),
		reporter.EXPECT().Report(0, "d"),
		reporter.EXPECT().Report(2, "e"),
	)

	mux := relay.NewMultiplexer(logtest.New(t), reporter)
	require.NoError(t, mux.Run(context.Background(), set))
	require.Equal(t, 3, set.Len())
}

func TestRun_ReadyScenario(t *testing.T) {
	const n = 4
	var reading atomic.Int32
	reading.Store(-1)

	writers := make([]*io.PipeWriter, n)
	handles := make([]*supervisor.Handle, n)
	for i := range n {
		pr, pw := io.Pipe()
		writers[i] = pw
		r := &trackingReader{r: pr, index: int32(i), current: &reading}
		handles[i] = supervisor.NewHandle(i, r)
		go func() { _, _ = pw.Write([]byte("ready\n")) }()
	}

	rec := newRecorder()
	mux := relay.NewMultiplexer(logtest.New(t), rec)
	done := make(chan error, 1)
	go func() { done <- mux.Run(context.Background(), supervisor.NewActiveSet(handles...)) }()

	for i := range n {
		select {
		case line := <-rec.ch:
			require.Equal(t, fmt.Sprintf("%d : ready", i), line)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timed out waiting for output", "node %d", i)
		}
	}

	// the next pass blocks on node 0 and nothing else is reported
	require.Eventually(t, func() bool { return reading.Load() == 0 }, time.Second, 10*time.Millisecond)
	require.Never(t, func() bool { return len(rec.all()) > n }, 100*time.Millisecond, 10*time.Millisecond)

	for _, pw := range writers {
		require.NoError(t, pw.Close())
	}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "multiplexer did not return after all streams closed")
	}
	require.Len(t, rec.all(), n)
}

type trackingReader struct {
	r       io.Reader
	index   int32
	current *atomic.Int32
}

func (r *trackingReader) Read(p []byte) (int, error) {
	r.current.Store(r.index)
	return r.r.Read(p)
}

func TestRun_ReportsBeforeNextRead(t *testing.T) {
	var events []string
	record := func(event string) { events = append(events, event) }

	const n = 3
	handles := make([]*supervisor.Handle, n)
	for i := range n {
		r := newLineReader(fmt.Sprintf("x%d\n", i), fmt.Sprintf("y%d\n", i))
		r.onRead = func() { record(fmt.Sprintf("read %d", i)) }
		handles[i] = supervisor.NewHandle(i, r)
	}

	ctrl := gomock.NewController(t)
	reporter := relay.NewMockReporter(ctrl)
	reporter.EXPECT().Report(gomock.Any(), gomock.Any()).DoAndReturn(func(index int, line string) error {
		record(fmt.Sprintf("report %d %s", index, line))
		return nil
	}).Times(2 * n)

	mux := relay.NewMultiplexer(logtest.New(t), reporter)
	require.NoError(t, mux.Run(context.Background(), supervisor.NewActiveSet(handles...)))

	require.Equal(t, []string{
		"read 0", "report 0 x0",
		"read 1", "report 1 x1",
		"read 2", "report 2 x2",
		"read 0", "report 0 y0",
		"read 1", "report 1 y1",
		"read 2", "report 2 y2",
		"read 0",
		"read 1",
		"read 2",
	}, events)
}

func TestRun_Reconstruction(t *testing.T) {
	outputs := [][]string{
		{"Lub dub! (Height: 1, Network Timestamp: 1650000000, Peers: 3)", "", "  spaced  "},
		{"héllo wörld", "日本語", "emoji 🚀"},
		{"127.0.0.1:3030 has a longer chain!"},
	}
	handles := make([]*supervisor.Handle, len(outputs))
	for i, lines := range outputs {
		handles[i] = supervisor.NewHandle(i, strings.NewReader(strings.Join(lines, "\n")+"\n"))
	}

	var buf bytes.Buffer
	mux := relay.NewMultiplexer(logtest.New(t), relay.NewTextReporter(&buf))
	require.NoError(t, mux.Run(context.Background(), supervisor.NewActiveSet(handles...)))

	perNode := make([][]string, len(outputs))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		prefix, text, found := strings.Cut(line, " : ")
		require.True(t, found, line)
		index, err := strconv.Atoi(prefix)
		require.NoError(t, err)
		perNode[index] = append(perNode[index], text)
	}
	require.Equal(t, outputs, perNode)
}

func TestRun_SingleNode(t *testing.T) {
	var buf bytes.Buffer
	set := supervisor.NewActiveSet(supervisor.NewHandle(0, strings.NewReader("one\ntwo\nthree")))
	mux := relay.NewMultiplexer(logtest.New(t), relay.NewTextReporter(&buf))
	require.NoError(t, mux.Run(context.Background(), set))
	require.Equal(t, "0 : one\n0 : two\n0 : three\n", buf.String())
}

func TestRun_KeepsCarriageReturn(t *testing.T) {
	var buf bytes.Buffer
	set := supervisor.NewActiveSet(supervisor.NewHandle(0, strings.NewReader("dos\r\nunix\n")))
	mux := relay.NewMultiplexer(logtest.New(t), relay.NewTextReporter(&buf))
	require.NoError(t, mux.Run(context.Background(), set))
	require.Equal(t, "0 : dos\r\n0 : unix\n", buf.String())
}

func TestRun_ExitedNodeIsNotReadAgain(t *testing.T) {
	observer, observedLogs := observer.New(zapcore.InfoLevel)

	busy := []string{"1\n", "2\n", "3\n", "4\n", "5\n"}
	first := newLineReader(busy...)
	exited := newLineReader("ready\n")
	last := newLineReader(busy...)

	rec := newRecorder()
	mux := relay.NewMultiplexer(zap.New(observer), rec)
	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, first),
		supervisor.NewHandle(1, exited),
		supervisor.NewHandle(2, last),
	)
	require.NoError(t, mux.Run(context.Background(), set))

	// one read for the line, one observing end of stream, none after
	require.EqualValues(t, 2, exited.reads.Load())
	require.EqualValues(t, len(busy)+1, first.reads.Load())
	require.EqualValues(t, len(busy)+1, last.reads.Load())

	reported := rec.all()
	require.Len(t, reported, 2*len(busy)+1)
	require.Equal(t, []string{"0 : 1", "1 : ready", "2 : 1", "0 : 2", "2 : 2"}, reported[:5])

	closed := observedLogs.FilterMessage("node output closed").All()
	require.Len(t, closed, 3)
	require.EqualValues(t, 1, closed[0].ContextMap()["node"])
	require.Equal(t, 1, observedLogs.FilterMessage("output of all nodes closed").Len())
}

func TestRun_DecodeError(t *testing.T) {
	rec := newRecorder()
	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, strings.NewReader("fine\nfine\n")),
		supervisor.NewHandle(1, strings.NewReader("ok\n\xff\xfe\n")),
	)
	mux := relay.NewMultiplexer(logtest.New(t), rec)
	err := mux.Run(context.Background(), set)

	var decodeErr *relay.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, 1, decodeErr.Index)
	require.Equal(t, []byte("\xff\xfe"), decodeErr.Line)
	require.Equal(t, []string{"0 : fine", "1 : ok", "0 : fine"}, rec.all())
}

func TestRun_ReporterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := relay.NewMockReporter(ctrl)
	failure := errors.New("stdout closed")
	reporter.EXPECT().Report(0, "ready").Return(failure)

	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, strings.NewReader("ready\n")),
		supervisor.NewHandle(1, strings.NewReader("ready\n")),
	)
	mux := relay.NewMultiplexer(logtest.New(t), reporter)
	err := mux.Run(context.Background(), set)
	require.ErrorIs(t, err, failure)
	require.ErrorContains(t, err, "node 0")
}

func TestRun_ReadError(t *testing.T) {
	failure := errors.New("broken pipe")
	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, strings.NewReader("ready\n")),
		supervisor.NewHandle(1, errReader{err: failure}),
	)
	rec := newRecorder()
	mux := relay.NewMultiplexer(logtest.New(t), rec)
	err := mux.Run(context.Background(), set)
	require.ErrorIs(t, err, failure)
	require.ErrorContains(t, err, "node 1")
	require.Equal(t, []string{"0 : ready"}, rec.all())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newLineReader("ready\n")
	mux := relay.NewMultiplexer(logtest.New(t), newRecorder())
	err := mux.Run(ctx, supervisor.NewActiveSet(supervisor.NewHandle(0, r)))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, r.reads.Load())
}

func TestRun_CancelledBetweenReads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	reporter := relay.NewMockReporter(ctrl)
	reporter.EXPECT().Report(0, "ready").DoAndReturn(func(int, string) error {
		cancel()
		return nil
	})

	second := newLineReader("ready\n")
	set := supervisor.NewActiveSet(
		supervisor.NewHandle(0, newLineReader("ready\n")),
		supervisor.NewHandle(1, second),
	)
	mux := relay.NewMultiplexer(logtest.New(t), reporter)
	require.ErrorIs(t, mux.Run(ctx, set), context.Canceled)
	require.Zero(t, second.reads.Load())
}

func spawn(tb testing.TB, ctx context.Context, mode string, n int, opts ...supervisor.Opt) *supervisor.ActiveSet {
	tb.Helper()
	return spawnWith(tb, ctx, nodetest.Builder(mode), n, opts...)
}

func spawnWith(
	tb testing.TB,
	ctx context.Context,
	builder supervisor.CommandBuilder,
	n int,
	opts ...supervisor.Opt,
) *supervisor.ActiveSet {
	tb.Helper()
	profile, err := nodeconfig.Get(nodeconfig.NetworkProfile)
	require.NoError(tb, err)
	configs, err := nodeconfig.Generate(profile, n, nodeconfig.Params{
		DataRoot: filepath.Join(tb.TempDir(), "nodes"),
		Host:     "127.0.0.1",
		BasePort: 3030,
	})
	require.NoError(tb, err)

	sup := supervisor.New(zaptest.NewLogger(tb), builder, opts...)
	set, err := sup.Spawn(ctx, configs)
	require.NoError(tb, err)
	tb.Cleanup(func() { require.NoError(tb, set.Close()) })
	return set
}

func TestRun_Processes(t *testing.T) {
	observer, observedLogs := observer.New(zapcore.InfoLevel)
	clock := clockwork.NewFakeClock()

	set := spawn(t, context.Background(), nodetest.ReadyExit, 4, supervisor.WithClock(clock))
	clock.Advance(time.Minute)

	var buf bytes.Buffer
	mux := relay.NewMultiplexer(zap.New(observer), relay.NewTextReporter(&buf), relay.WithClock(clock))
	require.NoError(t, mux.Run(context.Background(), set))
	require.Equal(t, "0 : ready\n1 : ready\n2 : ready\n3 : ready\n", buf.String())

	closed := observedLogs.FilterMessage("node output closed").All()
	require.Len(t, closed, 4)
	for i, entry := range closed {
		require.EqualValues(t, i, entry.ContextMap()["node"])
		require.Equal(t, time.Minute, entry.ContextMap()["uptime"])
	}
}

func TestRun_ProcessesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	set := spawn(t, ctx, nodetest.Ready, 4)

	rec := newRecorder()
	mux := relay.NewMultiplexer(logtest.New(t), rec)
	done := make(chan error, 1)
	go func() { done <- mux.Run(ctx, set) }()

	for i := range 4 {
		select {
		case line := <-rec.ch:
			require.Equal(t, fmt.Sprintf("%d : ready", i), line)
		case <-time.After(10 * time.Second):
			require.FailNow(t, "timed out waiting for output", "node %d", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "multiplexer did not stop after cancellation")
	}
}

func TestRun_ClosedOutputDoesNotStall(t *testing.T) {
	core, observedLogs := observer.New(zapcore.InfoLevel)
	set := spawnWith(t, context.Background(), nodetest.Modes(nodetest.CloseStdout, nodetest.EchoArgs), 2)

	rec := newRecorder()
	mux := relay.NewMultiplexer(zap.New(core), rec)
	done := make(chan error, 1)
	go func() { done <- mux.Run(context.Background(), set) }()

	// node 0 keeps running after closing its output
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "relay is stuck on a node that closed its output")
	}
	expected := []string{"0 : ready"}
	for _, arg := range set.Handle(1).Config().Args() {
		expected = append(expected, "1 : "+arg)
	}
	require.Equal(t, expected, rec.all())
	require.Equal(t, 2, observedLogs.FilterMessage("node output closed").Len())

	exited := func(node int) []observer.LoggedEntry {
		return observedLogs.FilterMessage("node exited").FilterField(zap.Int("node", node)).All()
	}
	require.Eventually(t, func() bool { return len(exited(1)) == 1 }, 10*time.Second, 10*time.Millisecond)
	require.Equal(t, zapcore.InfoLevel, exited(1)[0].Level)
	require.Empty(t, exited(0))

	require.NoError(t, set.Close())
	require.Len(t, exited(0), 1)
	require.Equal(t, zapcore.WarnLevel, exited(0)[0].Level)
}
