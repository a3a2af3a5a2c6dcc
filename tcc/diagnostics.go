package tcc

import (
	"log/slog"
	"sync"
)

// Observer receives each diagnostic as the engine emits it, before the
// failing call returns. It runs while the session is busy and must not call
// back into the session.
type Observer func(msg string)

// sink is the engine's error function target. It has its own lock because
// the engine calls it re-entrantly while the session lock is held.
type sink struct {
	mu       sync.Mutex
	entries  []string
	observer Observer
	logger   *slog.Logger
}

func newSink(logger *slog.Logger, observer Observer) *sink {
	return &sink{logger: logger, observer: observer}
}

func (k *sink) record(msg string) {
	k.mu.Lock()
	k.entries = append(k.entries, msg)
	obs := k.observer
	k.mu.Unlock()

	k.logger.Debug("engine diagnostic", "message", msg)

	if obs != nil {
		k.notify(obs, msg)
	}
}

func (k *sink) notify(obs Observer, msg string) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Warn("diagnostic observer panicked", "panic", r)
		}
	}()
	obs(msg)
}

// setObserver installs obs unless one is already present.
func (k *sink) setObserver(obs Observer) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.observer != nil {
		return false
	}
	k.observer = obs
	return true
}

func (k *sink) snapshot() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.entries...)
}

// lastSince returns the newest entry appended at or after index mark.
func (k *sink) lastSince(mark int) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.entries) <= mark {
		return "", false
	}
	return k.entries[len(k.entries)-1], true
}

func (k *sink) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
