package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/list-import/internal/workflow"
	"gopkg.in/yaml.v3"
)

func finished() workflow.Progress {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return workflow.Progress{
		RunID:        "run-1",
		Targets:      []string{"alice", "bob", "carol"},
		Total:        3,
		Succeeded:    1,
		Skipped:      1,
		Failed:       1,
		SucceededIDs: []string{"alice"},
		SkippedIDs:   []string{"bob"},
		FailedIDs:    []string{"carol"},
		Outcomes: []workflow.ItemOutcome{
			{ID: "alice", Outcome: workflow.Succeeded, Elapsed: time.Second},
			{ID: "bob", Outcome: workflow.Skipped, Reason: "already present"},
			{ID: "carol", Outcome: workflow.Failed, Reason: "add was not confirmed"},
		},
		Phase:      workflow.PhaseIdle,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
}

func TestFprintYAML(t *testing.T) {
	OutputFormat = FormatYAML
	var buf bytes.Buffer
	if err := Fprint(&buf, NewBatchResult(finished())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["status"] != "completed" {
		t.Errorf("status: got %v, want %q", decoded["status"], "completed")
	}
	if decoded["elapsed"] != "1.5s" {
		t.Errorf("elapsed: got %v, want %q", decoded["elapsed"], "1.5s")
	}
	if !strings.Contains(out, "outcome: skipped") {
		t.Errorf("outcomes should render by name, got:\n%s", out)
	}
}

func TestFprintJSON(t *testing.T) {
	defer func() { OutputFormat, PrettyOutput = FormatYAML, false }()
	OutputFormat = FormatJSON

	for _, pretty := range []bool{false, true} {
		PrettyOutput = pretty
		var buf bytes.Buffer
		if err := Fprint(&buf, NewBatchResult(finished())); err != nil {
			t.Fatal(err)
		}
		lines := strings.Count(buf.String(), "\n")
		if pretty && lines <= 1 {
			t.Errorf("pretty output should be multi-line, got:\n%s", buf.String())
		}
		if !pretty && lines != 1 {
			t.Errorf("compact output should be one line, got %d", lines)
		}
		var decoded struct {
			Failed []string `json:"failed"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Failed) != 1 || decoded.Failed[0] != "carol" {
			t.Errorf("failed: got %q, want [carol]", decoded.Failed)
		}
	}
}

func TestFprint_UnsupportedFormat(t *testing.T) {
	defer func() { OutputFormat = FormatYAML }()
	OutputFormat = "xml"
	if err := Fprint(&bytes.Buffer{}, 1); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected ParseFormat to reject xml")
	}
}

func TestNewBatchResult_Status(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *workflow.Progress)
		want   string
	}{
		{"completed", func(p *workflow.Progress) {}, "completed"},
		{"stopped", func(p *workflow.Progress) { p.Stopped = true }, "stopped"},
		{"aborted", func(p *workflow.Progress) { p.Err = "navigation failed" }, "aborted"},
		{"running", func(p *workflow.Progress) { p.Running = true }, "running"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := finished()
			tt.modify(&p)
			if got := NewBatchResult(p).Status; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	empty := NewBatchResult(workflow.Progress{})
	if empty.Succeeded == nil || empty.Outcomes == nil {
		t.Error("lists should be empty, not null")
	}
}

func TestStatusText(t *testing.T) {
	stopped := finished()
	stopped.Stopped = true

	running := finished()
	running.Running = true
	running.Phase = workflow.PhaseRunning
	running.Current = "dave"

	navigating := workflow.Progress{Total: 2, Running: true, Phase: workflow.PhaseNavigating}

	tests := []struct {
		name string
		p    workflow.Progress
		want string
	}{
		{"ready", workflow.Progress{}, "Ready to add users"},
		{"completed", finished(), "Completed: 1 added, 1 skipped, 1 failed\nAlready in list: bob\nFailed users: carol"},
		{"stopped", stopped, "Stopped by request: 1 added, 1 skipped, 1 failed\nAlready in list: bob\nFailed users: carol"},
		{"running", running, "Adding users... 1/3 added, 1 skipped, 1 failed (dave)\nAlready in list: bob\nFailed users: carol"},
		{"navigating", navigating, "Opening list... 0/2"},
		{"empty input", workflow.Progress{Err: workflow.ErrEmptyInput.Error()}, "Error: no identifiers to process"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusText(tt.p); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(finished())
	for _, want := range []string{"list-import", "1 added", "Failed users: carol"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered status missing %q:\n%s", want, out)
		}
	}
}
