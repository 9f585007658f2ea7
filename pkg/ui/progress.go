package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StageTracker follows a run through a fixed number of stages. It is safe
// for concurrent use; concurrent runs share one bar.
type StageTracker struct {
	Total     int
	Completed int
	Current   string
	StartTime time.Time

	mu    sync.Mutex
	phase string
}

// NewStageTracker creates a tracker for total stages
func NewStageTracker(total int) *StageTracker {
	return &StageTracker{
		Total:     total,
		StartTime: time.Now(),
	}
}

// Advance records that the stage described by label has started. Earlier
// stages count as completed.
func (st *StageTracker) Advance(label string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.advance(label)
}

func (st *StageTracker) advance(label string) {
	if st.Current != "" && st.Completed < st.Total {
		st.Completed++
	}
	st.Current = label
}

// Reset starts the tracker over, for a second pass in the other direction
func (st *StageTracker) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.reset()
}

func (st *StageTracker) reset() {
	st.Completed = 0
	st.Current = ""
	st.StartTime = time.Now()
}

// Step advances the tracker within phase and returns the new status line.
// The tracker starts over when phase changes or first is set.
func (st *StageTracker) Step(phase, label string, first bool) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	if first || phase != st.phase {
		st.reset()
		st.phase = phase
	}
	st.advance(label)
	return st.status()
}

// GetProgress returns a formatted progress bar
func (st *StageTracker) GetProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.progress()
}

func (st *StageTracker) progress() string {
	const width = 16
	filled := 0
	if st.Total > 0 {
		filled = st.Completed * width / st.Total
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Completed, st.Total)
}

// GetStatus returns the progress bar followed by the current stage
func (st *StageTracker) GetStatus() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status()
}

func (st *StageTracker) status() string {
	if st.Current == "" {
		return st.progress()
	}
	return fmt.Sprintf("%s %s", st.progress(), st.Current)
}

// PrintStatus writes the current status line to stderr
func (st *StageTracker) PrintStatus() {
	PrintStage(st.GetStatus())
}

// PrintStage writes one stage status line to stderr
func PrintStage(status string) {
	emit(stderr, false, Dim(status)+"\n")
}
