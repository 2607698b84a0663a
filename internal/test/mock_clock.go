// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"sync"
	"time"
)

// Clock is a deterministic clock for unit tests. It starts at the Unix epoch
// and only advances when Clock.Step() or Clock.StepBy() is called.
type Clock struct {
	mutex       sync.Mutex
	currentTime time.Duration
}

// Now reads the clock.
func (c *Clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return time.Unix(0, 0).UTC().Add(c.currentTime)
}

// Step advances the clock by one second.
func (c *Clock) Step() {
	c.StepBy(time.Second)
}

// StepBy advances the clock by the given duration.
func (c *Clock) StepBy(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.currentTime += d
}
