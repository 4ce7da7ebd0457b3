package supervisor

import "github.com/spacemeshos/localnet/metrics"

const subsystem = "supervisor"

var (
	spawned = metrics.NewCounter(
		"spawned_total",
		subsystem,
		"number of node processes started",
		[]string{},
	).WithLabelValues()

	spawnFailures = metrics.NewCounter(
		"spawn_failures_total",
		subsystem,
		"number of node processes that failed to start",
		[]string{},
	).WithLabelValues()
)
