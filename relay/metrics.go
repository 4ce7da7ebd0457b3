package relay

import "github.com/spacemeshos/localnet/metrics"

const subsystem = "relay"

var (
	linesRelayed = metrics.NewCounter(
		"lines_total",
		subsystem,
		"number of output lines relayed per node",
		[]string{"node"},
	)

	closedStreams = metrics.NewCounter(
		"closed_streams_total",
		subsystem,
		"number of node outputs that reached end of stream",
		[]string{},
	).WithLabelValues()

	liveNodes = metrics.NewGauge(
		"live_nodes",
		subsystem,
		"number of nodes whose output is still relayed",
		[]string{},
	).WithLabelValues()
)
