package workflow

import (
	"sync"
	"time"
)

// Outcome is the terminal result for one identifier.
type Outcome int

const (
	Succeeded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// MarshalText renders the outcome by name in YAML and JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Phase is the batch lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseNavigating Phase = "navigating"
	PhaseRunning    Phase = "running"
	PhaseStopping   Phase = "stopping"
)

// ItemOutcome records how one identifier ended.
type ItemOutcome struct {
	ID      string        `yaml:"id"               json:"id"`
	Outcome Outcome       `yaml:"outcome"          json:"outcome"`
	Reason  string        `yaml:"reason,omitempty" json:"reason,omitempty"`
	Elapsed time.Duration `yaml:"elapsed"          json:"elapsed"`
}

// Progress is the state of the current or most recent batch. Values handed
// out by the Orchestrator are copies and never change afterwards.
type Progress struct {
	RunID         string        `yaml:"run_id,omitempty"      json:"run_id,omitempty"`
	Targets       []string      `yaml:"targets"               json:"targets"`
	Total         int           `yaml:"total"                 json:"total"`
	Succeeded     int           `yaml:"succeeded"             json:"succeeded"`
	Skipped       int           `yaml:"skipped"               json:"skipped"`
	Failed        int           `yaml:"failed"                json:"failed"`
	SucceededIDs  []string      `yaml:"succeeded_ids"         json:"succeeded_ids"`
	SkippedIDs    []string      `yaml:"skipped_ids"           json:"skipped_ids"`
	FailedIDs     []string      `yaml:"failed_ids"            json:"failed_ids"`
	Outcomes      []ItemOutcome `yaml:"outcomes"              json:"outcomes"`
	Running       bool          `yaml:"running"               json:"running"`
	StopRequested bool          `yaml:"stop_requested"        json:"stop_requested"`
	Phase         Phase         `yaml:"phase"                 json:"phase"`
	Current       string        `yaml:"current,omitempty"     json:"current,omitempty"`
	Stopped       bool          `yaml:"stopped"               json:"stopped"`
	Err           string        `yaml:"error,omitempty"       json:"error,omitempty"`
	StartedAt     time.Time     `yaml:"started_at,omitempty"  json:"started_at,omitempty"`
	FinishedAt    time.Time     `yaml:"finished_at,omitempty" json:"finished_at,omitempty"`
	// Seq increases with every published change; a larger Seq is newer.
	Seq uint64 `yaml:"seq" json:"seq"`
}

// Processed is the number of identifiers that reached an outcome.
func (p Progress) Processed() int {
	return p.Succeeded + p.Skipped + p.Failed
}

func (p *Progress) record(item ItemOutcome) {
	switch item.Outcome {
	case Succeeded:
		p.Succeeded++
		p.SucceededIDs = append(p.SucceededIDs, item.ID)
	case Skipped:
		p.Skipped++
		p.SkippedIDs = append(p.SkippedIDs, item.ID)
	default:
		p.Failed++
		p.FailedIDs = append(p.FailedIDs, item.ID)
	}
	p.Outcomes = append(p.Outcomes, item)
}

func (p Progress) clone() Progress {
	p.Targets = cloneSlice(p.Targets)
	p.SucceededIDs = cloneSlice(p.SucceededIDs)
	p.SkippedIDs = cloneSlice(p.SkippedIDs)
	p.FailedIDs = cloneSlice(p.FailedIDs)
	p.Outcomes = cloneSlice(p.Outcomes)
	return p
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}

// Observer receives a snapshot after every progress change. Deliveries are
// serialised and arrive in Seq order, though a snapshot overtaken by a newer
// one is dropped. It may be called from any goroutine, must not block for
// long and must not call back into the Orchestrator's Start or Stop.
type Observer interface {
	ProgressChanged(p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p Progress)

// ProgressChanged calls f(p).
func (f ObserverFunc) ProgressChanged(p Progress) { f(p) }

// StopToken is a one-shot cooperative cancellation request. The batch
// loop checks it between identifiers only.
type StopToken struct {
	once sync.Once
	ch   chan struct{}
}

func newStopToken() *StopToken {
	return &StopToken{ch: make(chan struct{})}
}

// Stop requests cancellation. Only the first call has an effect.
func (t *StopToken) Stop() {
	t.once.Do(func() { close(t.ch) })
}

// Stopped reports whether Stop was called.
func (t *StopToken) Stopped() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}
