package app

import (
	"sync"
	"time"
)

// TaskArena tracks the hub's periodic and one-shot timer tasks by key so
// they can be cancelled explicitly when a room leaves Running or is
// evicted. Without the arena a tick goroutine would keep referencing a
// dead room forever.
type TaskArena struct {
	mu    sync.Mutex
	stops map[string]func()
}

func NewTaskArena() *TaskArena {
	return &TaskArena{stops: make(map[string]func())}
}

// Ticker starts a periodic task firing every interval until stopped.
// Starting a key that is already running replaces the old task.
func (a *TaskArena) Ticker(key string, every time.Duration, fire func()) {
	done := make(chan struct{})
	a.set(key, func() { close(done) })
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fire()
			}
		}
	}()
}

// After starts a one-shot task. It removes itself from the arena when it
// fires.
func (a *TaskArena) After(key string, d time.Duration, fire func()) {
	t := time.AfterFunc(d, func() {
		a.mu.Lock()
		delete(a.stops, key)
		a.mu.Unlock()
		fire()
	})
	a.set(key, func() { t.Stop() })
}

// Stop cancels the task for key, if any.
func (a *TaskArena) Stop(key string) {
	a.mu.Lock()
	stop, ok := a.stops[key]
	delete(a.stops, key)
	a.mu.Unlock()
	if ok {
		stop()
	}
}

// StopAll cancels everything; used on hub shutdown.
func (a *TaskArena) StopAll() {
	a.mu.Lock()
	stops := a.stops
	a.stops = make(map[string]func())
	a.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func (a *TaskArena) set(key string, stop func()) {
	a.mu.Lock()
	old, ok := a.stops[key]
	a.stops[key] = stop
	a.mu.Unlock()
	if ok {
		old()
	}
}
