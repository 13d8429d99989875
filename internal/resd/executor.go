package resd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/hydronet-sim/reservoir-core/internal/engine"
	"github.com/hydronet-sim/reservoir-core/pkg/config"
	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/models"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

// SubmitRequest describes a run to execute. The HTTP layer resolves
// by-path submissions to YAML text before it gets here.
type SubmitRequest struct {
	ID            string
	Title         string
	ModelYAML     string
	WebhookURL    string
	WebhookSecret string
}

type webhookTarget struct {
	url    string
	secret string
}

// Executor drives submitted models asynchronously, one goroutine per run,
// with per-run cancellation. Terminal transitions fire the webhook
// notifier when a target is configured.
type Executor struct {
	store    *RunStore
	notifier *Notifier

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	webhooks map[string]webhookTarget

	defaultWebhook webhookTarget
}

func NewExecutor(store *RunStore, notifier *Notifier) *Executor {
	return &Executor{
		store:    store,
		notifier: notifier,
		cancels:  make(map[string]context.CancelFunc),
		webhooks: make(map[string]webhookTarget),
	}
}

// SetDefaultWebhook sets the webhook used by runs that do not carry their
// own. Configured once at daemon startup, before any run is submitted.
func (e *Executor) SetDefaultWebhook(url, secret string) {
	e.defaultWebhook = webhookTarget{url: url, secret: secret}
}

// Submit validates the model, registers the run and starts executing it.
// Configuration errors come back synchronously; nothing is recorded for a
// model that cannot be built.
func (e *Executor) Submit(req SubmitRequest) (*models.Run, error) {
	cfg, err := config.ParseModelYAMLString(req.ModelYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}
	m, err := engine.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}

	meta := map[string]string{
		"nodes":     strconv.Itoa(len(m.Network().Nodes())),
		"timesteps": strconv.Itoa(m.Timestepper().Count()),
		"scenarios": strconv.Itoa(m.Scenarios().Size()),
	}
	run, err := e.store.Create(req.ID, req.Title, req.ModelYAML, meta)
	if err != nil {
		return nil, err
	}

	target := webhookTarget{url: req.WebhookURL, secret: req.WebhookSecret}
	if target.url == "" {
		target = e.defaultWebhook
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[run.ID] = cancel
	if target.url != "" {
		e.webhooks[run.ID] = target
	}
	e.mu.Unlock()

	logger.Info("run submitted", "run_id", run.ID, "title", run.Title,
		"nodes", meta["nodes"], "timesteps", meta["timesteps"], "scenarios", meta["scenarios"])

	go e.execute(ctx, run.ID, m)
	return run, nil
}

// Cancel stops a run. The status flips before the context is canceled so
// the executor goroutine always observes the terminal record.
func (e *Executor) Cancel(id string) (*models.Run, error) {
	run, err := e.store.MarkCanceled(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	logger.Info("run canceled", "run_id", id)
	return run, nil
}

// Shutdown cancels every in-flight run. Called by the daemon on exit.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Cancel(id); err != nil &&
			!errors.Is(err, ErrRunTerminal) && !errors.Is(err, ErrRunNotFound) {
			logger.Warn("canceling run at shutdown", "run_id", id, "error", err)
		}
	}
}

func (e *Executor) cleanup(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	delete(e.webhooks, id)
	e.mu.Unlock()
}

// execute runs the model to completion. Every submitted run reaches a
// terminal status through this goroutine or through Cancel, and the
// webhook fires exactly once, from here.
func (e *Executor) execute(ctx context.Context, id string, m *engine.Model) {
	defer e.cleanup(id)

	if _, err := e.store.MarkRunning(id); err != nil {
		// Canceled before the goroutine got scheduled.
		logger.Warn("run not started", "run_id", id, "error", err)
		e.notifyTerminal(id)
		return
	}

	if _, err := m.Run(ctx); err != nil {
		if ctx.Err() != nil {
			// Cancel already flipped the status.
			e.notifyTerminal(id)
			return
		}
		if _, serr := e.store.MarkFailed(id, err.Error()); serr != nil {
			logger.Error("recording run failure", "run_id", id, "error", serr)
		}
		logger.Error("run failed", "run_id", id, "error", err)
		e.notifyTerminal(id)
		return
	}

	run, err := e.store.MarkCompleted(id, m.Results(true))
	if err != nil {
		// The run finished but a cancellation won the status race.
		logger.Warn("run finished after cancellation", "run_id", id)
		e.notifyTerminal(id)
		return
	}
	logger.Info("run completed", "run_id", id, "duration", utils.FormatDuration(run.Duration))
	e.notifyTerminal(id)
}

func (e *Executor) notifyTerminal(id string) {
	if e.notifier == nil {
		return
	}
	e.mu.Lock()
	target, ok := e.webhooks[id]
	e.mu.Unlock()
	if !ok || target.url == "" {
		return
	}

	run, err := e.store.Get(id)
	if err != nil {
		logger.Error("webhook lookup failed", "run_id", id, "error", err)
		return
	}
	e.notifier.Notify(target.url, target.secret, run)
}
