// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package processor

import dto "github.com/prometheus/client_model/go"

// ObservedCompositionDurations reads the sample count and sum of the
// composition duration histogram.
func ObservedCompositionDurations() (count uint64, sumSeconds float64) {
	var m dto.Metric
	err := compositionDurationHistogram.Write(&m)
	if err != nil {
		panic(err.Error())
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}
