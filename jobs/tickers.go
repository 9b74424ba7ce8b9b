package jobs

import (
	"time"

	"mastermind/services"
)

// StartRoundScheduler drives the classic round streams on a 1s tick.
func StartRoundScheduler(s *services.Scheduler) {
	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for {
			<-ticker.C
			s.Advance(time.Now())
		}
	}()
}

// StartCrashTicker advances the crash engine every 120ms, matching the
// granularity the live display polls at.
func StartCrashTicker(c *services.Crash) {
	ticker := time.NewTicker(120 * time.Millisecond)
	go func() {
		for {
			<-ticker.C
			c.Advance(time.Now())
		}
	}()
}
