// Package notify is the client-side notification queue. Stores and transfer
// operations push short, user-facing notes here and subscribers (the command
// layer) decide how to present them; data layers never print directly.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a note for presentation.
type Level string

const (
	LevelInfo     Level = "info"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelProgress Level = "progress"
)

// Note is one queued notification.
type Note struct {
	ID      string
	Level   Level
	Message string
	At      time.Time

	// Percent is set on progress notes only, 0-100.
	Percent int
}

// Queue is a bounded FIFO of notes with optional live subscribers. Safe for
// concurrent use; batch uploads push from multiple goroutines.
type Queue struct {
	mu    sync.Mutex
	notes []Note
	max   int
	subs  []func(Note)
}

const defaultMax = 100

// NewQueue creates a queue retaining at most max notes (oldest dropped).
// max <= 0 uses a default of 100.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = defaultMax
	}
	return &Queue{max: max}
}

// Subscribe registers fn to be called synchronously for every pushed note.
func (q *Queue) Subscribe(fn func(Note)) {
	q.mu.Lock()
	q.subs = append(q.subs, fn)
	q.mu.Unlock()
}

func (q *Queue) push(n Note) {
	q.mu.Lock()
	q.notes = append(q.notes, n)
	if len(q.notes) > q.max {
		q.notes = q.notes[len(q.notes)-q.max:]
	}
	subs := make([]func(Note), len(q.subs))
	copy(subs, q.subs)
	q.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Push queues a note at the given level.
func (q *Queue) Push(level Level, format string, args ...any) {
	q.push(Note{
		ID:      uuid.New().String(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now(),
	})
}

// Info, Success, Warning and Error are convenience wrappers around Push.
func (q *Queue) Info(format string, args ...any)    { q.Push(LevelInfo, format, args...) }
func (q *Queue) Success(format string, args ...any) { q.Push(LevelSuccess, format, args...) }
func (q *Queue) Warning(format string, args ...any) { q.Push(LevelWarning, format, args...) }
func (q *Queue) Error(format string, args ...any)   { q.Push(LevelError, format, args...) }

// Notes returns a copy of the retained notes, oldest first.
func (q *Queue) Notes() []Note {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Note, len(q.notes))
	copy(out, q.notes)
	return out
}

// Progress returns a transfer progress callback for the labeled operation.
// It emits a note per whole-percent step (and always at 100), so a slow
// transfer reports steadily without flooding the queue. When the total is
// unknown (<= 0) it reports bytes instead of a percentage.
func (q *Queue) Progress(label string) func(written, total int64) {
	id := uuid.New().String()
	lastPct := -1
	return func(written, total int64) {
		if total <= 0 {
			q.push(Note{
				ID:      id,
				Level:   LevelProgress,
				Message: fmt.Sprintf("%s: %d bytes", label, written),
				At:      time.Now(),
			})
			return
		}
		pct := int(written * 100 / total)
		if pct > 100 {
			pct = 100
		}
		if pct == lastPct {
			return
		}
		lastPct = pct
		q.push(Note{
			ID:      id,
			Level:   LevelProgress,
			Message: fmt.Sprintf("%s: %d%%", label, pct),
			At:      time.Now(),
			Percent: pct,
		})
	}
}
