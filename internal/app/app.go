// Package app assembles the engine from a configuration and a document
// backend.
package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/mj1618/list-import/internal/artifact"
	"github.com/mj1618/list-import/internal/classify"
	"github.com/mj1618/list-import/internal/config"
	"github.com/mj1618/list-import/internal/dispatch"
	"github.com/mj1618/list-import/internal/locator"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"github.com/mj1618/list-import/internal/workflow"
	"go.uber.org/zap"
)

// App is a wired engine bound to one provider.
type App struct {
	Config       config.Config
	Provider     *platform.Provider
	Locator      *locator.Locator
	Dispatcher   *dispatch.Dispatcher
	Classifier   *classify.Classifier
	Orchestrator *workflow.Orchestrator
	// Recorder is nil unless failure artifacts are enabled.
	Recorder *artifact.Recorder
}

// New wires every component.
func New(cfg config.Config, p *platform.Provider, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil || p.Document == nil || p.Inputter == nil || p.ValueSetter == nil {
		return nil, fmt.Errorf("provider lacks document, input or value support")
	}
	t := cfg.Timings
	a := &App{Config: cfg, Provider: p}
	a.Locator = locator.New(p.Document, t.PollInterval, logger)
	a.Dispatcher = dispatch.New(p.Inputter, p.ValueSetter, t.ClearPause, logger)
	a.Classifier = classify.New(a.Locator, ClassifySelectors(cfg), logger)

	deps := workflow.Deps{
		Locator:    a.Locator,
		Classifier: a.Classifier,
		Dispatcher: a.Dispatcher,
		Navigator:  p.Navigator,
	}
	if cfg.Artifacts.Enabled && p.Screenshotter != nil {
		a.Recorder = artifact.NewRecorder(p.Screenshotter, cfg.Artifacts.Dir, logger)
		deps.OnFailure = a.saveFailure(logger)
	}
	a.Orchestrator = workflow.New(deps, WorkflowConfig(cfg), logger)
	return a, nil
}

// saveFailure marks the first visible result entry, if any, on the
// screenshot. Artifact errors are logged and never fail the batch.
func (a *App) saveFailure(logger *zap.Logger) func(ctx context.Context, id string, err error) {
	return func(ctx context.Context, id string, cause error) {
		var marks []model.Element
		if entry, ok, err := a.Locator.Probe(ctx, a.Config.Selectors.ResultEntry); err == nil && ok {
			marks = append(marks, entry)
		}
		if _, err := a.Recorder.Save(ctx, id, cause, marks); err != nil {
			logger.Warn("failure screenshot not saved", zap.String("id", id), zap.Error(err))
		}
	}
}

// ClassifySelectors extracts the classifier's descriptors.
func ClassifySelectors(cfg config.Config) classify.Selectors {
	s := cfg.Selectors
	return classify.Selectors{
		Entries:       s.ResultEntry,
		IdentityLink:  s.IdentityLink,
		AddControl:    s.AddButton,
		RemoveControl: s.RemoveButton,
	}
}

// WorkflowConfig maps the configuration onto the navigation plan: edit
// list, optional pivot, suggested tab, then focus the search field.
func WorkflowConfig(cfg config.Config) workflow.Config {
	t := cfg.Timings
	s := cfg.Selectors
	steps := []workflow.NavStep{
		{Name: "edit list", Descriptors: s.EditList, Settle: t.NavSettle},
	}
	if len(s.Pivot) > 0 {
		steps = append(steps, workflow.NavStep{Name: "pivot", Descriptors: s.Pivot, Optional: true, Settle: t.NavSettle})
	}
	steps = append(steps,
		workflow.NavStep{Name: "suggested tab", Descriptors: s.SuggestedTab, Settle: t.TabSettle},
		workflow.NavStep{Name: "search field", Descriptors: s.SearchInput, Action: workflow.ActionFocus},
	)
	return workflow.Config{
		ListURL:     cfg.ListURL,
		Marker:      cfg.Marker,
		ClickOffset: cfg.ClickOffset,
		Steps:       steps,
		SearchInput: s.SearchInput,
		Timings: workflow.Timings{
			NavTimeout:       t.NavTimeout,
			InputTimeout:     t.InputTimeout,
			ClassifyTimeout:  t.ClassifyTimeout,
			VerifyTimeout:    t.VerifyTimeout,
			NavSettle:        t.NavSettle,
			SearchDelay:      t.SearchDelay,
			ActionDelay:      t.ActionDelay,
			ActionsPerMinute: t.ActionsPerMinute,
		},
	}
}

// Roles names every configured descriptor set, for the locate command and
// tool.
func Roles(cfg config.Config) map[string]model.Descriptors {
	s := cfg.Selectors
	return map[string]model.Descriptors{
		"edit_list":     s.EditList,
		"pivot":         s.Pivot,
		"suggested_tab": s.SuggestedTab,
		"search_input":  s.SearchInput,
		"result_entry":  s.ResultEntry,
		"identity_link": s.IdentityLink,
		"add_button":    s.AddButton,
		"remove_button": s.RemoveButton,
	}
}

// RoleNames lists the role names in order.
func RoleNames() []string {
	names := make([]string, 0, 8)
	for name := range Roles(config.Default()) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Role returns the descriptors for name.
func Role(cfg config.Config, name string) (model.Descriptors, error) {
	descs, ok := Roles(cfg)[name]
	if !ok {
		return nil, fmt.Errorf("unknown role %q (available: %v)", name, RoleNames())
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("role %q has no descriptors configured", name)
	}
	return descs, nil
}

// Close releases the provider.
func (a *App) Close() error {
	return a.Provider.Close()
}
