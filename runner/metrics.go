//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Entry point outcomes, used as the "outcome" label.
const (
	OutcomeOK      = "ok"
	OutcomeBudget  = "budget"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

// Metrics are the Prometheus collectors of a run.
type Metrics struct {
	EntryPoints    *prometheus.CounterVec
	Triggers       prometheus.Counter
	SystemSpecific prometheus.Counter
	Visits         prometheus.Counter
	InProgress     prometheus.Gauge
	Duration       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntryPoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confdroid_entry_points_total",
				Help: "Entry points analyzed, by outcome",
			},
			[]string{"outcome"},
		),
		Triggers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "confdroid_trigger_records_total",
				Help: "Trigger records produced",
			},
		),
		SystemSpecific: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "confdroid_system_specific_records_total",
				Help: "Trigger records guarded by a system-specific precondition",
			},
		),
		Visits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "confdroid_points_visited_total",
				Help: "Program points visited by all walks",
			},
		),
		InProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "confdroid_entry_points_in_progress",
				Help: "Entry points currently being analyzed",
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confdroid_entry_point_duration_seconds",
				Help:    "Time spent analyzing one entry point",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
	reg.MustRegister(m.EntryPoints, m.Triggers, m.SystemSpecific, m.Visits, m.InProgress, m.Duration)
	return m
}
