package server

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/list-import/internal/app"
	"github.com/mj1618/list-import/internal/config"
	"github.com/mj1618/list-import/internal/metrics"
	"github.com/mj1618/list-import/internal/output"
	"github.com/mj1618/list-import/internal/testutil/listapp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestServer(t *testing.T, opts listapp.Options) (*Server, *listapp.App, *prometheus.Registry) {
	t.Helper()
	sim, err := listapp.New(opts)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Timings = config.Timings{
		PollInterval:    time.Millisecond,
		NavTimeout:      200 * time.Millisecond,
		InputTimeout:    200 * time.Millisecond,
		ClassifyTimeout: 40 * time.Millisecond,
		VerifyTimeout:   40 * time.Millisecond,
	}
	a, err := app.New(cfg, sim.Page.Provider(), nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, nil)
	return New(context.Background(), a, collector, nil), sim, reg
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return res, text.Text
}

// statusView is the decoded subset of a batch tool response.
type statusView struct {
	OK     bool   `yaml:"ok"`
	Status string `yaml:"status_line"`
	Error  string `yaml:"error"`
	Batch  *struct {
		Status    string   `yaml:"status"`
		Succeeded []string `yaml:"succeeded"`
		Skipped   []string `yaml:"skipped"`
		Failed    []string `yaml:"failed"`
	} `yaml:"batch"`
}

func decodeStatus(t *testing.T, text string) statusView {
	t.Helper()
	var sr statusView
	require.NoError(t, yaml.Unmarshal([]byte(text), &sr))
	return sr
}

func TestStartBatch_WaitReturnsFinalResult(t *testing.T) {
	s, sim, reg := newTestServer(t, listapp.Options{
		Accounts: []string{"alice", "bob"},
		Members:  []string{"bob"},
	})

	res, text := call(t, s.handleStartBatch, map[string]interface{}{
		"identifiers": "@alice, @bob\nghost",
		"wait":        true,
	})
	require.False(t, res.IsError, text)

	sr := decodeStatus(t, text)
	require.NotNil(t, sr.Batch)
	assert.Equal(t, "completed", sr.Batch.Status)
	assert.Equal(t, []string{"alice"}, sr.Batch.Succeeded)
	assert.Equal(t, []string{"bob"}, sr.Batch.Skipped)
	assert.Equal(t, []string{"ghost"}, sr.Batch.Failed)
	assert.Contains(t, sr.Status, "Completed")
	assert.Equal(t, []string{"alice", "bob"}, sim.Members())

	n, err := testutil.GatherAndCount(reg, "test_items_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per outcome")
}

func TestStartBatch_AcceptsArray(t *testing.T) {
	s, sim, _ := newTestServer(t, listapp.Options{Accounts: []string{"alice", "carol"}})

	res, text := call(t, s.handleStartBatch, map[string]interface{}{
		"identifiers": []interface{}{"@alice", "carol"},
		"wait":        true,
	})
	require.False(t, res.IsError, text)
	assert.Equal(t, []string{"alice", "carol"}, sim.Members())
}

func TestStartBatch_Errors(t *testing.T) {
	s, _, _ := newTestServer(t, listapp.Options{Accounts: []string{"alice"}})

	res, _ := call(t, s.handleStartBatch, map[string]interface{}{})
	assert.True(t, res.IsError, "missing identifiers")

	res, _ = call(t, s.handleStartBatch, map[string]interface{}{"identifiers": []interface{}{"alice", 3}})
	assert.True(t, res.IsError, "non-string element")

	res, text := call(t, s.handleStartBatch, map[string]interface{}{"identifiers": " , @ ,"})
	assert.True(t, res.IsError)
	assert.Contains(t, decodeStatus(t, text).Error, "no identifiers")
}

func TestStartBatch_RejectsSecondBatch(t *testing.T) {
	s, sim, _ := newTestServer(t, listapp.Options{Accounts: []string{"alice", "bob"}})
	searching := make(chan struct{}, 1)
	release := make(chan struct{})
	sim.OnSearch = func(string) {
		select {
		case searching <- struct{}{}:
		default:
		}
		<-release
	}

	res, text := call(t, s.handleStartBatch, map[string]interface{}{"identifiers": "alice,bob"})
	require.False(t, res.IsError, text)
	select {
	case <-searching:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never searched")
	}

	res, text = call(t, s.handleStartBatch, map[string]interface{}{"identifiers": "carol"})
	assert.True(t, res.IsError)
	assert.Contains(t, decodeStatus(t, text).Error, "already running")

	res, text = call(t, s.handleStopBatch, nil)
	assert.False(t, res.IsError, text)
	close(release)

	require.Eventually(t, func() bool {
		return !s.app.Orchestrator.Snapshot().Running
	}, 2*time.Second, 5*time.Millisecond)

	_, text = call(t, s.handleBatchStatus, nil)
	sr := decodeStatus(t, text)
	assert.Equal(t, "stopped", sr.Batch.Status)
	assert.Equal(t, []string{"alice"}, sr.Batch.Succeeded)
}

func TestStopBatch_NothingRunning(t *testing.T) {
	s, _, _ := newTestServer(t, listapp.Options{})
	res, text := call(t, s.handleStopBatch, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "no batch is running")
}

func TestBatchStatus_Idle(t *testing.T) {
	s, _, _ := newTestServer(t, listapp.Options{})
	res, text := call(t, s.handleBatchStatus, nil)
	require.False(t, res.IsError)
	sr := decodeStatus(t, text)
	assert.True(t, sr.OK)
	assert.Equal(t, output.StatusText(s.app.Orchestrator.Snapshot()), sr.Status)
}

func TestLocate(t *testing.T) {
	s, _, _ := newTestServer(t, listapp.Options{})

	res, text := call(t, s.handleLocate, map[string]interface{}{"role": "edit_list", "timeout-ms": float64(100)})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, "role: edit_list")
	assert.Contains(t, text, "Edit List")

	res, text = call(t, s.handleLocate, map[string]interface{}{"role": "search_input", "timeout-ms": float64(20)})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "no visible element")

	res, text = call(t, s.handleLocate, map[string]interface{}{"role": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "unknown role")
}

func TestLocate_RefusedWhileBatchRuns(t *testing.T) {
	s, sim, _ := newTestServer(t, listapp.Options{Accounts: []string{"alice", "bob"}})
	searching := make(chan struct{}, 1)
	release := make(chan struct{})
	sim.OnSearch = func(string) {
		select {
		case searching <- struct{}{}:
		default:
		}
		<-release
	}

	res, text := call(t, s.handleStartBatch, map[string]interface{}{"identifiers": "alice,bob"})
	require.False(t, res.IsError, text)
	select {
	case <-searching:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never searched")
	}

	res, text = call(t, s.handleLocate, map[string]interface{}{"role": "search_input"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "already running")
	close(release)

	require.Eventually(t, func() bool {
		return !s.app.Orchestrator.Snapshot().Running
	}, 2*time.Second, 5*time.Millisecond)
	_, text = call(t, s.handleBatchStatus, nil)
	sr := decodeStatus(t, text)
	assert.Equal(t, []string{"alice", "bob"}, sr.Batch.Succeeded)
	assert.Empty(t, sr.Batch.Failed)
}

func TestIdentifiersParam(t *testing.T) {
	ids, err := identifiersParam(map[string]interface{}{"ids": "a,b\nc"}, "ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	_, err = identifiersParam(map[string]interface{}{"ids": 4.0}, "ids")
	assert.Error(t, err)
}

func TestServe_UnknownTransport(t *testing.T) {
	s, _, _ := newTestServer(t, listapp.Options{})
	err := s.Serve(Config{Transport: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unsupported transport")
}
