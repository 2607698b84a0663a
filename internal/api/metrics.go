// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// recoveredPanicsCounter is a prometheus.Counter.
	recoveredPanicsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compositor_recovered_panics",
			Help: "Counts panics in request handlers that were recovered and answered with a 500 response.",
		},
	)
)

func init() {
	prometheus.MustRegister(recoveredPanicsCounter)
}
