package core

// Timer is the per-room Pomodoro state machine. It holds no clock of its
// own: the hub drives it with one Tick per wall-clock second and
// broadcasts the returned state in the same turn, so no participant ever
// observes a stale remaining-seconds value.
type Timer struct {
	running   bool
	onBreak   bool
	remaining int
	cycle     int

	focusSecs   int
	breakSecs   int
	cycleTarget int
}

// TimerState is the full broadcast form; running+remaining fully determine
// what clients render, no client-local copy is authoritative.
type TimerState struct {
	Running   bool `json:"running"`
	IsBreak   bool `json:"isBreak"`
	Remaining int  `json:"remainingSeconds"`
	Cycle     int  `json:"cycle"`
	Target    int  `json:"cycleTarget"`
}

func NewTimer(focusSecs, breakSecs, cycleTarget int) *Timer {
	return &Timer{
		remaining:   focusSecs,
		focusSecs:   focusSecs,
		breakSecs:   breakSecs,
		cycleTarget: cycleTarget,
	}
}

func (t *Timer) State() TimerState {
	return TimerState{
		Running:   t.running,
		IsBreak:   t.onBreak,
		Remaining: t.remaining,
		Cycle:     t.cycle,
		Target:    t.cycleTarget,
	}
}

func (t *Timer) Running() bool { return t.running }

// Start moves Idle/Paused to Running. Starting a running timer changes
// nothing and reports changed=false.
func (t *Timer) Start() (TimerState, bool) {
	if t.running {
		return t.State(), false
	}
	t.running = true
	return t.State(), true
}

func (t *Timer) Pause() (TimerState, bool) {
	if !t.running {
		return t.State(), false
	}
	t.running = false
	return t.State(), true
}

// Reset returns to Idle in the focus phase from any state.
func (t *Timer) Reset() (TimerState, bool) {
	t.running = false
	t.onBreak = false
	t.remaining = t.focusSecs
	t.cycle = 0
	return t.State(), true
}

// Tick advances one second of wall-clock time. At zero the phase flips;
// completing a focus phase increments the cycle count. A tick on a paused
// timer is a late timer-task firing and changes nothing.
func (t *Timer) Tick() (TimerState, bool) {
	if !t.running {
		return t.State(), false
	}
	t.remaining--
	if t.remaining > 0 {
		return t.State(), true
	}
	if t.onBreak {
		t.onBreak = false
		t.remaining = t.focusSecs
	} else {
		t.cycle++
		t.onBreak = true
		t.remaining = t.breakSecs
		if t.cycleTarget > 0 && t.cycle >= t.cycleTarget {
			t.running = false
			t.onBreak = false
			t.remaining = t.focusSecs
		}
	}
	return t.State(), true
}
