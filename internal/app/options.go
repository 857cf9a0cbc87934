package app

import "time"

// Options carries the hub tuning knobs so the app layer stays testable
// without the config package.
type Options struct {
	// Pomodoro defaults for newly created study rooms.
	FocusSecs   int
	BreakSecs   int
	CycleTarget int

	// QuestionLimit applies when a question carries no per-question limit.
	QuestionLimit time.Duration

	// RingTimeout ends unanswered call attempts.
	RingTimeout time.Duration

	// QuizIdleEvict is how long an empty quiz room keeps its scoreboard
	// before the sweep reaps it.
	QuizIdleEvict time.Duration

	// SweepInterval paces the eviction sweep.
	SweepInterval time.Duration

	// EventBuffer sizes the hub's inbound queue.
	EventBuffer int
}

func (o Options) withDefaults() Options {
	if o.FocusSecs <= 0 {
		o.FocusSecs = 25 * 60
	}
	if o.BreakSecs <= 0 {
		o.BreakSecs = 5 * 60
	}
	if o.CycleTarget <= 0 {
		o.CycleTarget = 4
	}
	if o.QuestionLimit <= 0 {
		o.QuestionLimit = 30 * time.Second
	}
	if o.RingTimeout <= 0 {
		o.RingTimeout = 45 * time.Second
	}
	if o.QuizIdleEvict <= 0 {
		o.QuizIdleEvict = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 1024
	}
	return o
}
