package models

import "time"

// clock supplies "now" for booking validation and overdue detection.
// Tests swap it with a fixed time via SetClock.
var clock = time.Now

func SetClock(now func() time.Time) {
	if now == nil {
		clock = time.Now
		return
	}
	clock = now
}

func Now() time.Time {
	return clock()
}
