package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	iapp "github.com/mj1618/list-import/internal/app"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/output"
	"github.com/mj1618/list-import/internal/workflow"
	"gopkg.in/yaml.v3"
)

// statusResult is the YAML body of batch tool responses.
type statusResult struct {
	OK     bool                `yaml:"ok"`
	Action string              `yaml:"action"`
	Status string              `yaml:"status_line"`
	Error  string              `yaml:"error,omitempty"`
	Batch  *output.BatchResult `yaml:"batch,omitempty"`
}

func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func (s *Server) statusResponse(action string, p workflow.Progress, err error) *mcp.CallToolResult {
	batch := output.NewBatchResult(p)
	res := statusResult{OK: err == nil, Action: action, Status: output.StatusText(p), Batch: &batch}
	if err != nil {
		res.Error = err.Error()
		return mcp.NewToolResultError(toText(res))
	}
	return mcp.NewToolResultText(toText(res))
}

func (s *Server) handleStartBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	ids, err := identifiersParam(params, "identifiers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	done, err := s.app.Orchestrator.Start(s.ctx, ids)
	if err != nil {
		return s.statusResponse("start_batch", s.app.Orchestrator.Snapshot(), err), nil
	}
	if boolParam(params, "wait", false) {
		select {
		case <-done:
		case <-ctx.Done():
			return mcp.NewToolResultError("request cancelled; the batch keeps running"), nil
		}
	}
	return s.statusResponse("start_batch", s.app.Orchestrator.Snapshot(), nil), nil
}

func (s *Server) handleStopBatch(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var err error
	if !s.app.Orchestrator.Stop() {
		err = errors.New("no batch is running")
	}
	return s.statusResponse("stop_batch", s.app.Orchestrator.Snapshot(), err), nil
}

func (s *Server) handleBatchStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.statusResponse("batch_status", s.app.Orchestrator.Snapshot(), nil), nil
}

func (s *Server) handleLocate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	role := stringParam(params, "role", "")
	descs, err := iapp.Role(s.app.Config, role)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := s.app.Config.Timings.NavTimeout
	if ms := intParam(params, "timeout-ms", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	start := time.Now()
	var el model.Element
	err = s.app.Orchestrator.Exclusive(func() error {
		var lerr error
		el, lerr = s.app.Locator.Locate(ctx, descs, timeout)
		return lerr
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(toText(output.LocateResult{
		Role:       role,
		Descriptor: descs.String(),
		Element:    el,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
	})), nil
}
