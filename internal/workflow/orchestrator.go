// Package workflow sequences a batch: navigate to the search surface, then
// for each identifier search, classify, add and verify, recording exactly
// one outcome per processed identifier.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/list-import/internal/classify"
	"github.com/mj1618/list-import/internal/dispatch"
	"github.com/mj1618/list-import/internal/locator"
	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StepAction is what a navigation step does with its located element.
type StepAction string

const (
	ActionActivate StepAction = "activate"
	ActionFocus    StepAction = "focus"
)

// NavStep is one navigation control to reach before searching.
type NavStep struct {
	Name        string
	Descriptors model.Descriptors
	// Timeout bounds the locate; zero means Timings.NavTimeout.
	Timeout time.Duration
	// Optional steps are probed once without waiting and skipped if absent.
	Optional bool
	Action   StepAction
	// Settle is the pause after the step.
	Settle time.Duration
}

// Timings are the per-step bounds and pauses of a batch.
type Timings struct {
	NavTimeout      time.Duration
	InputTimeout    time.Duration
	ClassifyTimeout time.Duration
	VerifyTimeout   time.Duration
	NavSettle       time.Duration // after opening ListURL
	SearchDelay     time.Duration // after typing the identifier
	ActionDelay     time.Duration // after pressing add
	// ActionsPerMinute caps add presses; zero disables the cap.
	ActionsPerMinute float64
}

// Config describes the target surface.
type Config struct {
	// ListURL is opened before the navigation steps when set.
	ListURL     string
	Marker      string
	ClickOffset dispatch.Offset
	Steps       []NavStep
	SearchInput model.Descriptors
	Timings     Timings
}

// Deps are the components a batch drives.
type Deps struct {
	Locator    *locator.Locator
	Classifier *classify.Classifier
	Dispatcher *dispatch.Dispatcher
	// Navigator opens ListURL; optional.
	Navigator platform.Navigator
	// OnFailure runs after an identifier fails, before the next starts.
	OnFailure func(ctx context.Context, id string, err error)
}

// Orchestrator owns the batch progress. At most one batch runs at a time.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	mu        sync.Mutex
	progress  Progress
	token     *StopToken
	busy      bool // an exclusive operation holds the page
	seq       uint64
	observers map[int]Observer
	nextObs   int

	// notifyMu serialises delivery; delivered is the newest Seq handed out.
	notifyMu  sync.Mutex
	delivered uint64
}

// New returns an idle Orchestrator.
func New(deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Timings.ActionsPerMinute > 0 {
		limit = rate.Limit(cfg.Timings.ActionsPerMinute / 60)
	}
	return &Orchestrator{
		deps:      deps,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With(zap.String("component", "workflow")),
		progress:  Progress{Phase: PhaseIdle},
		observers: make(map[int]Observer),
	}
}

// Snapshot returns a copy of the current progress.
func (o *Orchestrator) Snapshot() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress.clone()
}

// Subscribe registers obs for progress notifications and returns a
// function that removes it.
func (o *Orchestrator) Subscribe(obs Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = obs
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.observers, id)
	}
}

// Start validates identifiers and launches a batch in the background. The
// returned channel closes when the batch ends. A running batch or an input
// with nothing left after normalisation is rejected before any navigation.
func (o *Orchestrator) Start(ctx context.Context, identifiers []string) (<-chan struct{}, error) {
	r, err := o.start(ctx, identifiers)
	if err != nil {
		return nil, err
	}
	return r.done, nil
}

// Run executes a batch and waits for it. It returns the final progress and
// the error that aborted the batch, if any. Per-identifier failures are
// outcomes, not errors.
func (o *Orchestrator) Run(ctx context.Context, identifiers []string) (Progress, error) {
	r, err := o.start(ctx, identifiers)
	if err != nil {
		return o.Snapshot(), err
	}
	<-r.done
	return r.final, r.err
}

// Stop asks the running batch to end after its current identifier. It
// reports whether a batch was running. Repeated calls are harmless.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	if !o.progress.Running {
		o.mu.Unlock()
		return false
	}
	o.token.Stop()
	o.progress.StopRequested = true
	o.progress.Phase = PhaseStopping
	snap, obs := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("stop requested", zap.String("run_id", snap.RunID))
	o.publish(obs, snap)
	return true
}

type run struct {
	done  chan struct{}
	final Progress
	err   error
}

func (o *Orchestrator) start(ctx context.Context, identifiers []string) (*run, error) {
	ids := NormalizeAll(identifiers, o.cfg.Marker)

	o.mu.Lock()
	if o.progress.Running || o.busy {
		o.mu.Unlock()
		return nil, ErrBatchAlreadyRunning
	}
	if len(ids) == 0 {
		o.progress = Progress{Phase: PhaseIdle, Err: ErrEmptyInput.Error()}
		snap, obs := o.snapshotLocked()
		o.mu.Unlock()
		o.publish(obs, snap)
		return nil, ErrEmptyInput
	}
	token := newStopToken()
	o.token = token
	o.progress = Progress{
		RunID:     uuid.NewString(),
		Targets:   ids,
		Total:     len(ids),
		Running:   true,
		Phase:     PhaseNavigating,
		StartedAt: time.Now(),
	}
	snap, obs := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("batch started", zap.String("run_id", snap.RunID), zap.Int("total", snap.Total))
	o.publish(obs, snap)

	r := &run{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		stopped, err := o.execute(ctx, ids, token)
		r.final, r.err = o.finish(stopped, err), err
	}()
	return r, nil
}

func (o *Orchestrator) execute(ctx context.Context, ids []string, token *StopToken) (bool, error) {
	if err := o.navigate(ctx); err != nil {
		return false, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	o.update(func(p *Progress) {
		if p.Phase == PhaseNavigating {
			p.Phase = PhaseRunning
		}
	})

	for _, id := range ids {
		if token.Stopped() {
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		o.update(func(p *Progress) { p.Current = id })

		began := time.Now()
		outcome, err := o.process(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		item := ItemOutcome{ID: id, Outcome: outcome, Elapsed: time.Since(began)}
		switch {
		case err != nil:
			item.Reason = err.Error()
		case outcome == Skipped:
			item.Reason = "already present"
		}
		o.logger.Info("item done",
			zap.String("id", id),
			zap.Stringer("outcome", outcome),
			zap.String("reason", item.Reason),
			zap.Duration("elapsed", item.Elapsed))
		if outcome == Failed && o.deps.OnFailure != nil {
			o.deps.OnFailure(ctx, id, err)
		}
		o.update(func(p *Progress) { p.record(item) })
	}
	return false, nil
}

// navigate opens ListURL and walks the navigation steps. Without a
// ListURL, a search field already on screen means the steps are done.
func (o *Orchestrator) navigate(ctx context.Context) error {
	t := o.cfg.Timings
	if o.cfg.ListURL == "" || o.deps.Navigator == nil {
		if _, ok, err := o.deps.Locator.Probe(ctx, o.cfg.SearchInput); err == nil && ok {
			o.logger.Info("search field already visible, skipping navigation steps")
			return nil
		}
	} else {
		if err := o.deps.Navigator.Navigate(ctx, o.cfg.ListURL); err != nil {
			return err
		}
		if err := sleep(ctx, t.NavSettle); err != nil {
			return err
		}
	}
	for _, step := range o.cfg.Steps {
		var el model.Element
		if step.Optional {
			found, ok, err := o.deps.Locator.Probe(ctx, step.Descriptors)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil || !ok {
				o.logger.Debug("optional step absent", zap.String("step", step.Name))
				continue
			}
			el = found
		} else {
			timeout := step.Timeout
			if timeout <= 0 {
				timeout = t.NavTimeout
			}
			found, err := o.deps.Locator.Locate(ctx, step.Descriptors, timeout)
			if err != nil {
				return fmt.Errorf("%s: %w", step.Name, err)
			}
			el = found
		}

		var err error
		if step.Action == ActionFocus {
			err = o.deps.Dispatcher.Focus(ctx, el)
		} else {
			err = o.deps.Dispatcher.Activate(ctx, el, o.cfg.ClickOffset)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		o.logger.Debug("navigation step done", zap.String("step", step.Name))
		if err := sleep(ctx, step.Settle); err != nil {
			return err
		}
	}
	return nil
}

// Exclusive runs fn while holding the page, so no batch can start until it
// returns. It fails with ErrBatchAlreadyRunning while a batch or another
// exclusive operation is in progress. Read-only queries from outside a
// batch go through here because every document-wide query invalidates the
// element handles a running batch holds.
func (o *Orchestrator) Exclusive(fn func() error) error {
	if err := o.claim(); err != nil {
		return err
	}
	defer o.release()
	return fn()
}

func (o *Orchestrator) claim() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress.Running || o.busy {
		return ErrBatchAlreadyRunning
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

// Inspect navigates, searches for one identifier and classifies it without
// acting on the result. It holds the page for its whole duration.
func (o *Orchestrator) Inspect(ctx context.Context, raw string) (string, classify.Result, error) {
	id, ok := Normalize(raw, o.cfg.Marker)
	if !ok {
		return "", classify.Result{}, ErrEmptyInput
	}
	if err := o.claim(); err != nil {
		return id, classify.Result{}, err
	}
	defer o.release()

	if err := o.navigate(ctx); err != nil {
		return id, classify.Result{}, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	if err := o.search(ctx, id); err != nil {
		return id, classify.Result{}, err
	}
	res, err := o.deps.Classifier.Classify(ctx, id, o.cfg.Timings.ClassifyTimeout)
	if err != nil {
		return id, res, fmt.Errorf("classify: %w", err)
	}
	o.logger.Info("inspected", zap.String("id", id), zap.Stringer("state", res.State))
	return id, res, nil
}

// search types id into a freshly located search field and waits for
// results to start rendering.
func (o *Orchestrator) search(ctx context.Context, id string) error {
	t := o.cfg.Timings
	field, err := o.deps.Locator.Locate(ctx, o.cfg.SearchInput, t.InputTimeout)
	if err != nil {
		return fmt.Errorf("search field: %w", err)
	}
	err = o.deps.Dispatcher.SetFieldValue(ctx, field, id)
	if errors.Is(err, platform.ErrStaleHandle) {
		// The field re-rendered between locate and input.
		o.logger.Debug("search field went stale, relocating", zap.String("id", id))
		field, err = o.deps.Locator.Locate(ctx, o.cfg.SearchInput, t.InputTimeout)
		if err != nil {
			return fmt.Errorf("search field: %w", err)
		}
		err = o.deps.Dispatcher.SetFieldValue(ctx, field, id)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return sleep(ctx, t.SearchDelay)
}

// process runs one identifier from search to verification.
func (o *Orchestrator) process(ctx context.Context, id string) (Outcome, error) {
	t := o.cfg.Timings

	if err := o.search(ctx, id); err != nil {
		return Failed, err
	}

	res, err := o.deps.Classifier.Classify(ctx, id, t.ClassifyTimeout)
	if err != nil {
		return Failed, fmt.Errorf("classify: %w", err)
	}
	switch res.State {
	case classify.AlreadyPresent:
		return Skipped, nil
	case classify.Indeterminate:
		return Failed, ErrClassifyIndeterminate
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return Failed, err
	}
	err = o.deps.Dispatcher.Activate(ctx, res.Button, o.cfg.ClickOffset)
	if errors.Is(err, platform.ErrStaleHandle) {
		// The entry re-rendered between classify and click.
		o.logger.Debug("add control went stale, reclassifying", zap.String("id", id))
		res, err = o.deps.Classifier.Classify(ctx, id, t.ClassifyTimeout)
		switch {
		case err != nil:
		case res.State == classify.AlreadyPresent:
			return Skipped, nil
		case res.State != classify.Addable:
			return Failed, ErrClassifyIndeterminate
		default:
			err = o.deps.Dispatcher.Activate(ctx, res.Button, o.cfg.ClickOffset)
		}
	}
	if err != nil {
		return Failed, fmt.Errorf("add: %w", err)
	}
	if err := sleep(ctx, t.ActionDelay); err != nil {
		return Failed, err
	}

	if !o.deps.Classifier.VerifyTransition(ctx, id, t.VerifyTimeout) {
		return Failed, ErrVerificationTimeout
	}
	return Succeeded, nil
}

func (o *Orchestrator) finish(stopped bool, err error) Progress {
	o.mu.Lock()
	p := &o.progress
	p.Running = false
	p.StopRequested = false
	p.Phase = PhaseIdle
	p.Current = ""
	p.Stopped = stopped
	p.FinishedAt = time.Now()
	if err != nil {
		p.Err = err.Error()
	}
	snap, obs := o.snapshotLocked()
	o.mu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", snap.RunID),
		zap.Int("succeeded", snap.Succeeded),
		zap.Int("skipped", snap.Skipped),
		zap.Int("failed", snap.Failed),
		zap.Bool("stopped", stopped),
	}
	if err != nil {
		o.logger.Error("batch aborted", append(fields, zap.Error(err))...)
	} else {
		o.logger.Info("batch finished", fields...)
	}
	o.publish(obs, snap)
	return snap
}

func (o *Orchestrator) update(fn func(p *Progress)) {
	o.mu.Lock()
	fn(&o.progress)
	snap, obs := o.snapshotLocked()
	o.mu.Unlock()
	o.publish(obs, snap)
}

// snapshotLocked stamps progress with the next sequence number and copies
// it with the observer set, for publish. Caller holds o.mu.
func (o *Orchestrator) snapshotLocked() (Progress, []Observer) {
	o.seq++
	o.progress.Seq = o.seq
	obs := make([]Observer, 0, len(o.observers))
	for _, ob := range o.observers {
		obs = append(obs, ob)
	}
	return o.progress.clone(), obs
}

// publish delivers p unless a newer snapshot has already gone out, so
// observers never see progress move backwards when Stop races the end of
// a batch.
func (o *Orchestrator) publish(obs []Observer, p Progress) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if p.Seq <= o.delivered {
		return
	}
	o.delivered = p.Seq
	for _, ob := range obs {
		ob.ProgressChanged(p.clone())
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
