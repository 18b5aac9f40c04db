package vm

import (
	"log/slog"
	"time"
)

// TimerFrequency is the rate the delay and sound timers count down at on
// real hardware.
const TimerFrequency = 60

const timerPeriod = time.Second / TimerFrequency

type timers struct {
	delay uint8 // Delay timer
	sound uint8 // Sound timer
}

func (t *timers) tick() {
	if t.delay > 0 {
		t.delay--
	}

	if t.sound > 0 {
		if t.sound == 1 {
			slog.Debug("sound off")
		}
		t.sound--
	}
}

// timerSchedule converts elapsed wall-clock time into a number of timer ticks.
type timerSchedule struct {
	last time.Time
}

func newTimerSchedule(now time.Time) *timerSchedule {
	return &timerSchedule{last: now}
}

// due returns how many ticks elapsed since the previous call. Fractions of a
// period carry over to the next call.
func (s *timerSchedule) due(now time.Time) int {
	elapsed := now.Sub(s.last)
	if elapsed < timerPeriod {
		return 0
	}

	n := int(elapsed / timerPeriod)
	s.last = s.last.Add(time.Duration(n) * timerPeriod)
	return n
}
