package sim

import "time"

// wallClock is the indirection point for wall-clock reads, so tests can
// substitute a fake clock without the scheduler depending on real time.
var wallClock = time.Now

// wallSleep is the indirection point for pacing sleeps, for the same
// reason.
var wallSleep = time.Sleep

// RunRealTimeUntil behaves like RunUntil, but paces the virtual clock
// against the wall clock: whenever the scheduler is about to jump forward
// to a timer's deadline, it first sleeps for the wall-clock-scaled
// equivalent of that jump so that a millisecond of virtual time takes
// approximately one millisecond (scaled by rate) of real time to elapse.
// rate is virtual-milliseconds-per-wall-millisecond; a rate of 1.0 runs at
// real speed, 2.0 runs twice as fast as real time, and 0.5 runs at half
// speed. A rate <= 0 is treated as 1.0.
//
// Ready-queue work (zero-simulated-time computation) is never paced: only
// timer-driven jumps borrow wall-clock time, matching the reference
// scheduler's real-time mode, which only throttles the timer-advance path.
func (s *Scheduler) RunRealTimeUntil(deadline TimePoint, rate float64) {
	if rate <= 0 {
		rate = 1.0
	}

	start := wallClock()
	origin := s.now

	for s.now < deadline && (len(s.ready) > 0 || s.timers.len() > 0) {
		for len(s.ready) > 0 {
			item := s.ready[0]
			s.ready = s.ready[1:]
			s.step(item)
		}

		if len(s.ready) == 0 && s.timers.len() > 0 {
			next := s.timers.peek().deadline
			if next > deadline {
				next = deadline
			}

			s.paceTo(next, origin, start, rate)

			if next >= deadline {
				s.now = deadline
				break
			}
			s.drainDueTimers()
		}
	}
	if s.now < deadline {
		s.paceTo(deadline, origin, start, rate)
		s.now = deadline
	}
}

// paceTo sleeps, if necessary, so that by the time it returns, the elapsed
// wall-clock time since start is at least the elapsed virtual time since
// origin through target, scaled by rate.
func (s *Scheduler) paceTo(target TimePoint, origin TimePoint, start time.Time, rate float64) {
	virtualElapsed := target.Sub(origin)
	if virtualElapsed <= 0 {
		return
	}

	wantWall := time.Duration(float64(virtualElapsed.Milliseconds()) / rate * float64(time.Millisecond))
	haveWall := wallClock().Sub(start)
	if gap := wantWall - haveWall; gap > 0 {
		wallSleep(gap)
	}
}
