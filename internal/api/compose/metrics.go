// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package composeapi

import "github.com/prometheus/client_golang/prometheus"

var rejectedRequestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "compositor_rejected_requests",
		Help: "Counts composition requests that were rejected before composition, by reason (signature or malformed).",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(rejectedRequestsCounter)
}
