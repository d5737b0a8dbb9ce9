// Package metrics wires a handful of prometheus counters/gauges that
// the pool and graph store call into directly, rather than building a
// metrics subsystem in-repo.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TasksDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polymer",
		Subsystem: "pool",
		Name:      "tasks_dispatched_total",
		Help:      "Shard tasks dispatched to the thread pool.",
	})
	ReducerInvocations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polymer",
		Subsystem: "pool",
		Name:      "reducer_invocations_total",
		Help:      "Reducer closures executed across all task groups.",
	})
	ShardsFrozen = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "polymer",
		Subsystem: "graph",
		Name:      "shards_frozen_total",
		Help:      "FileBuffers transitioned from appending to frozen.",
	})
	ActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "polymer",
		Subsystem: "pool",
		Name:      "active_workers",
		Help:      "Pool workers currently executing a shard task.",
	})
)

func init() {
	prometheus.MustRegister(TasksDispatched, ReducerInvocations, ShardsFrozen, ActiveWorkers)
}
