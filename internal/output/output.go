package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mj1618/list-import/internal/classify"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/workflow"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// BatchResult is the top-level output of the `run` command.
type BatchResult struct {
	RunID     string                 `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Status    string                 `yaml:"status"           json:"status"`
	Total     int                    `yaml:"total"            json:"total"`
	Succeeded []string               `yaml:"succeeded"        json:"succeeded"`
	Skipped   []string               `yaml:"skipped"          json:"skipped"`
	Failed    []string               `yaml:"failed"           json:"failed"`
	Outcomes  []workflow.ItemOutcome `yaml:"outcomes"         json:"outcomes"`
	Stopped   bool                   `yaml:"stopped"          json:"stopped"`
	Error     string                 `yaml:"error,omitempty"  json:"error,omitempty"`
	Elapsed   string                 `yaml:"elapsed"          json:"elapsed"`
}

// NewBatchResult summarises a finished batch.
func NewBatchResult(p workflow.Progress) BatchResult {
	r := BatchResult{
		RunID:     p.RunID,
		Status:    "completed",
		Total:     p.Total,
		Succeeded: nonNil(p.SucceededIDs),
		Skipped:   nonNil(p.SkippedIDs),
		Failed:    nonNil(p.FailedIDs),
		Outcomes:  p.Outcomes,
		Stopped:   p.Stopped,
		Error:     p.Err,
	}
	if r.Outcomes == nil {
		r.Outcomes = []workflow.ItemOutcome{}
	}
	switch {
	case p.Running:
		r.Status = "running"
	case p.Err != "":
		r.Status = "aborted"
	case p.Stopped:
		r.Status = "stopped"
	}
	if !p.StartedAt.IsZero() {
		end := p.FinishedAt
		if end.IsZero() {
			end = time.Now()
		}
		r.Elapsed = end.Sub(p.StartedAt).Round(time.Millisecond).String()
	}
	return r
}

// LocateResult is the output of the `locate` command.
type LocateResult struct {
	Role       string        `yaml:"role"        json:"role"`
	Descriptor string        `yaml:"descriptors" json:"descriptors"`
	Element    model.Element `yaml:"element"     json:"element"`
	Elapsed    string        `yaml:"elapsed"     json:"elapsed"`
}

// ClassifyResult is the output of the `classify` command.
type ClassifyResult struct {
	ID    string         `yaml:"id"                json:"id"`
	State classify.State `yaml:"state"             json:"state"`
	Entry *model.Element `yaml:"entry,omitempty"   json:"entry,omitempty"`
	Error string         `yaml:"error,omitempty"   json:"error,omitempty"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return writeJSON(w, v, PrettyOutput)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (want yaml or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
