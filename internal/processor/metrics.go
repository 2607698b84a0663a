// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package processor

import "github.com/prometheus/client_golang/prometheus"

var (
	compositionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compositor_compositions",
			Help: "Counts composition requests by outcome (success, failure or error).",
		},
		[]string{"result"},
	)
	compositionErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compositor_composition_errors",
			Help: "Counts errors reported in failed compositions by source (composition or graphql).",
		},
		[]string{"source"},
	)
	compositionDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compositor_composition_duration_seconds",
			Help:    "Time taken to compose a supergraph, including parsing of the subgraph schemas.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(compositionsCounter)
	prometheus.MustRegister(compositionErrorsCounter)
	prometheus.MustRegister(compositionDurationHistogram)
}
