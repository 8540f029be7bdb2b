package pacing

import "time"

// EventKind names a scheduler event.
type EventKind string

const (
	// EventReveal: the safety timeout is armed and the chunk's reveal started.
	EventReveal EventKind = "reveal"
	// EventWait: the reveal settled and the post-reveal wait is armed.
	EventWait EventKind = "wait"
	// EventPause: a pause interrupted a wait; Wait holds what is left of it.
	EventPause EventKind = "pause"
	// EventResume: the wait was re-armed for the time left.
	EventResume EventKind = "resume"
	// EventRetry: no chunks yet, another look is scheduled after Wait.
	EventRetry EventKind = "retry"
	// EventExpire: a revealed chunk outlived Config.ChunkLifetime and should
	// leave the screen.
	EventExpire EventKind = "expire"
	// EventSettle: the last wait ran out and Config.SettleDelay is armed.
	EventSettle EventKind = "settle"
	// EventComplete: every chunk played; OnComplete runs right after.
	EventComplete EventKind = "complete"
	// EventCancel: playback stopped early, by Cancel or a failed start.
	EventCancel EventKind = "cancel"
)

// Event describes one step of playback. Fields not relevant to Kind are zero.
type Event struct {
	Kind      EventKind
	Index     int
	Rate      float64
	Words     int
	Target    time.Duration
	Elapsed   time.Duration
	Wait      time.Duration
	LineBreak bool
	TimedOut  bool
	At        time.Time
}
