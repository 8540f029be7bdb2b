// Package pacing reveals chunks one at a time at a target reading rate.
//
// Each chunk gets a time budget derived from the rate and its word count.
// The renderer's reveal animation is paid out of that budget and only the
// remainder is waited explicitly, so the total time per chunk tracks the
// rate however long the animation takes.
package pacing

import "time"

// MsPerWord is the time one word takes at rate words per minute.
func MsPerWord(rate float64) float64 {
	return 60000 / rate
}

// BufferMultiplier stretches a chunk's budget to leave reading room.
func BufferMultiplier(rate float64) float64 {
	switch {
	case rate <= 100:
		return 1.15
	case rate >= 300:
		return 1.05
	default:
		return 1.2
	}
}

// TargetDuration is the total time a chunk of words should occupy,
// reveal included.
func TargetDuration(rate float64, words int) time.Duration {
	ms := MsPerWord(rate) * float64(words) * BufferMultiplier(rate)
	return time.Duration(ms * float64(time.Millisecond))
}

// RemainingWait is what is left of target after the reveal took elapsed.
// When the chunk wrapped a line the renderer already paused for
// lineBreakPause, so that much less is waited. Never negative.
func RemainingWait(target, elapsed time.Duration, lineBreak bool, lineBreakPause time.Duration) time.Duration {
	wait := max(0, target-elapsed)
	if lineBreak {
		wait = max(0, wait-lineBreakPause)
	}
	return wait
}
