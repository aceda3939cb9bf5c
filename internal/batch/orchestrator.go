// Package batch runs the login engine over a client sheet, one account at a
// time, and reports every outcome to the record store, the webhook and the
// run history.
package batch

import (
	"context"
	"fmt"
	"time"

	"anefwatch/internal/browser"
	"anefwatch/internal/classify"
	"anefwatch/internal/dashboard"
	"anefwatch/internal/metrics"
	"anefwatch/internal/types"
	"anefwatch/internal/webhook"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authenticator performs one isolated login attempt.
type Authenticator interface {
	Authenticate(ctx context.Context, rec types.CredentialRecord, sessionID string) (browser.Result, error)
}

// Notifier delivers the per-account webhook payload. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, p webhook.Payload)
}

// StatusSink receives the status message of every processed record.
type StatusSink interface {
	SetStatus(rec types.CredentialRecord, message string)
}

// HistorySink persists attempts across runs.
type HistorySink interface {
	Record(ctx context.Context, runID string, a types.Attempt) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// OrchestratorConfig holds the collaborators and knobs of a run.
type OrchestratorConfig struct {
	Driver   Authenticator
	Notifier Notifier
	Status   StatusSink  // optional
	History  HistorySink // optional
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	MaxAccounts int           // 0 processes every account
	Delay       time.Duration // pause after every account but the last
	Sleep       SleepFunc     // defaults to browser.Sleep
	RunID       string        // defaults to a fresh uuid
}

// Orchestrator sequences accounts through driver, classifier and extractor.
// Accounts are never processed concurrently.
type Orchestrator struct {
	cfg    OrchestratorConfig
	logger *zap.Logger
	sleep  SleepFunc
	runID  string
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{cfg: cfg, logger: cfg.Logger, sleep: cfg.Sleep, runID: cfg.RunID}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.sleep == nil {
		o.sleep = browser.Sleep
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return o
}

// RunID identifies this orchestrator's run in logs and history.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// SessionID names the browser session of the account at index.
func SessionID(index int) string {
	return fmt.Sprintf("anef_session_%d", index)
}

// Filter keeps records carrying both a username and a password, in order, and
// returns how many were dropped.
func Filter(records []types.CredentialRecord) ([]types.CredentialRecord, int) {
	kept := make([]types.CredentialRecord, 0, len(records))
	for _, rec := range records {
		if rec.Complete() {
			kept = append(kept, rec)
		}
	}
	return kept, len(records) - len(kept)
}

// Run processes records sequentially in input order. A driver failure is
// recorded as Indeterminate{driver-error} for that account and the run goes
// on. When ctx is cancelled the run stops between accounts and the partial
// result is returned with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, records []types.CredentialRecord) (*Result, error) {
	kept, skipped := Filter(records)
	if o.cfg.MaxAccounts > 0 && len(kept) > o.cfg.MaxAccounts {
		kept = kept[:o.cfg.MaxAccounts]
	}
	o.cfg.Metrics.AddSkipped(skipped)

	result := &Result{
		RunID:     o.runID,
		Skipped:   skipped,
		StartedAt: time.Now(),
		Entries:   make([]types.Attempt, 0, len(kept)),
	}
	o.logger.Info("Batch started",
		zap.String("run_id", o.runID),
		zap.Int("accounts", len(kept)),
		zap.Int("skipped", skipped))

	var runErr error
	for i, rec := range kept {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		o.logger.Info("Processing account",
			zap.Int("position", i+1),
			zap.Int("total", len(kept)),
			zap.String("account", rec.Label()))

		attempt := o.process(ctx, i, rec)
		result.Entries = append(result.Entries, attempt)
		o.report(ctx, attempt)

		if i < len(kept)-1 && o.cfg.Delay > 0 {
			if err := o.sleep(ctx, o.cfg.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	result.FinishedAt = time.Now()
	o.logger.Info("Batch finished",
		zap.String("run_id", o.runID),
		zap.Int("processed", len(result.Entries)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, runErr
}

// process runs driver, classifier and extractor for one account.
func (o *Orchestrator) process(ctx context.Context, index int, rec types.CredentialRecord) types.Attempt {
	sessionID := SessionID(index)
	start := time.Now()

	res, err := o.cfg.Driver.Authenticate(ctx, rec, sessionID)
	var outcome types.Outcome
	path := string(res.Path)
	if err != nil {
		path = types.ReasonDriverError
		o.logger.Warn("Login attempt failed",
			zap.String("session", sessionID),
			zap.String("account", rec.Label()),
			zap.Error(err))
		outcome = types.Indeterminate(types.ReasonDriverError)
	} else {
		outcome = Evaluate(res.Markup, res.ReachedDashboard())
	}

	elapsed := time.Since(start)
	o.cfg.Metrics.ObserveAccount(path, elapsed)
	o.cfg.Metrics.ObserveOutcome(outcome.Tag.String())

	return types.Attempt{
		Record:    rec,
		Outcome:   outcome,
		Message:   outcome.Message(),
		SessionID: sessionID,
		Duration:  elapsed,
	}
}

// Evaluate classifies markup and, for authenticated pages, reads the
// notification table.
func Evaluate(markup string, reachedDashboard bool) types.Outcome {
	outcome := classify.Classify(markup, reachedDashboard)
	if !outcome.Authenticated() {
		return outcome
	}
	if n := dashboard.ExtractNotifications(markup); n.HasUnread {
		return types.AuthenticatedWithNotification(n.FirstType)
	}
	return outcome
}

// report writes the attempt back to the sheet, notifies and records history.
func (o *Orchestrator) report(ctx context.Context, a types.Attempt) {
	if o.cfg.Status != nil {
		status := a.Message
		if a.Succeeded() {
			status = ""
		}
		o.cfg.Status.SetStatus(a.Record, status)
	}

	o.logger.Info("Account classified",
		zap.String("session", a.SessionID),
		zap.String("account", a.Record.Label()),
		zap.Stringer("outcome", a.Outcome),
		zap.String("case", string(a.Outcome.Case())))

	if o.cfg.Notifier != nil {
		o.cfg.Notifier.Notify(ctx, webhook.PayloadFor(a.Record, a.Outcome))
	}

	if o.cfg.History != nil {
		if err := o.cfg.History.Record(ctx, o.runID, a); err != nil {
			o.logger.Warn("Failed to record history", zap.String("session", a.SessionID), zap.Error(err))
		}
	}
}
