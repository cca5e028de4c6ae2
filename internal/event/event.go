package event

import "time"

// Event kinds, matching the reporter wire vocabulary.
const (
	KindBegin     = "onBegin"
	KindEnd       = "onEnd"
	KindTestBegin = "onTestBegin"
	KindTestEnd   = "onTestEnd"
	KindStepBegin = "onStepBegin"
	KindStepEnd   = "onStepEnd"
	KindError     = "onError"
)

// Event is the envelope for one reporter message. Kind, Timestamp, and RunID
// are present on every event; exactly the payload fields relevant to the
// kind are set. Events are immutable after construction.
type Event struct {
	Kind      string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	RunID     string `json:"runId"`

	Run    *Run    `json:"run,omitempty"`
	Test   *Test   `json:"test,omitempty"`
	Result *Result `json:"result,omitempty"`
	Step   *Step   `json:"step,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Run describes the whole session: emitted once at the start (RootDir, Args)
// and once at the end (ExitStatus, counts).
type Run struct {
	RootDir    string   `json:"rootdir,omitempty"`
	Args       []string `json:"args,omitempty"`
	ExitStatus int      `json:"exitstatus,omitempty"`
	Failed     int      `json:"testsfailed,omitempty"`
	Collected  int      `json:"testscollected,omitempty"`
}

// Test identifies one test case.
type Test struct {
	ID       string    `json:"id"`
	Location *Location `json:"location,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
	Duration float64   `json:"duration,omitempty"`
}

// Location is the source position of a test.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Name string `json:"name"`
}

// Result is the per-test outcome attached to onTestEnd.
type Result struct {
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
}

// Step describes one instrumented action inside a test.
type Step struct {
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// now is the envelope clock, injectable for deterministic tests.
var now = func() int64 { return time.Now().UnixMilli() }

// Begin returns the session-start event.
func Begin(runID, rootDir string, args []string) Event {
	return Event{
		Kind:      KindBegin,
		Timestamp: now(),
		RunID:     runID,
		Run:       &Run{RootDir: rootDir, Args: args},
	}
}

// End returns the session-end event.
func End(runID string, exitStatus, failed, collected int) Event {
	return Event{
		Kind:      KindEnd,
		Timestamp: now(),
		RunID:     runID,
		Run:       &Run{ExitStatus: exitStatus, Failed: failed, Collected: collected},
	}
}

// TestBegin returns the event emitted when a test starts.
func TestBegin(runID, testID, file string, line int, name string) Event {
	return Event{
		Kind:      KindTestBegin,
		Timestamp: now(),
		RunID:     runID,
		Test: &Test{
			ID:       testID,
			Location: &Location{File: file, Line: line, Name: name},
		},
	}
}

// TestEnd returns the event emitted when a test finishes.
func TestEnd(runID, testID, outcome string, durationSec float64) Event {
	return Event{
		Kind:      KindTestEnd,
		Timestamp: now(),
		RunID:     runID,
		Test:      &Test{ID: testID, Outcome: outcome, Duration: durationSec},
		Result:    &Result{Status: outcome, Duration: durationSec},
	}
}

// StepBegin returns the event emitted when an instrumented step starts.
func StepBegin(runID, title, category string) Event {
	return Event{
		Kind:      KindStepBegin,
		Timestamp: now(),
		RunID:     runID,
		Step:      &Step{Title: title, Category: category},
	}
}

// StepEnd returns the event emitted when an instrumented step finishes.
// stepErr is empty when the step succeeded.
func StepEnd(runID, title, category string, durationMS float64, stepErr string) Event {
	return Event{
		Kind:      KindStepEnd,
		Timestamp: now(),
		RunID:     runID,
		Step:      &Step{Title: title, Category: category, Duration: durationMS, Error: stepErr},
	}
}

// Error returns the event emitted when a test fails with an error report.
func Error(runID, message string) Event {
	return Event{
		Kind:      KindError,
		Timestamp: now(),
		RunID:     runID,
		Error:     message,
	}
}
