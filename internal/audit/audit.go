// Package audit implements the audit sink: an async, buffered writer that
// persists audit event rows and, for high-risk or terminal-failure events,
// posts a best-effort summary to Slack.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event kinds recorded by the sink.
const (
	EventPlanCreated      = "plan.created"
	EventPlanDenied       = "plan.denied"
	EventPlanApproved     = "plan.approved"
	EventApplyStarted     = "apply.started"
	EventDeviceSucceeded  = "apply.device.succeeded"
	EventDeviceFailed     = "apply.device.failed"
	EventDeviceRolledBack = "apply.device.rolled_back"
	EventPlanCompleted    = "plan.completed"
	EventPlanFailed       = "plan.failed"
	EventPlanRolledBack   = "plan.rolled_back"
)

// Event is a single audit log entry to be written.
type Event struct {
	PlanID    *uuid.UUID
	DeviceID  *uuid.UUID
	Actor     string
	Action    string
	RiskLevel string
	Detail    json.RawMessage
}

// Notifier is the subset of SlackNotifier (slacknotifier.go) the sink needs.
// Pass nil to disable the side-channel entirely.
type Notifier interface {
	PostText(ctx context.Context, text string) error
}

// Writer is an async, buffered audit log writer: writes never block the
// caller and never fail the request path, and a Slack side-channel delivers
// best-effort notifications for high-risk and terminal-failure events.
// Write failures are logged and also tallied per plan so a caller (the
// Apply Executor) can surface them in a job's result_summary instead of
// letting them vanish into the log only.
type Writer struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	notifier Notifier
	entries  chan Event
	wg       sync.WaitGroup

	mu       sync.Mutex
	failures map[uuid.UUID]*planFailures
}

type planFailures struct {
	count     int
	lastError string
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger, notifier Notifier) *Writer {
	return &Writer{
		pool:     pool,
		logger:   logger,
		notifier: notifier,
		entries:  make(chan Event, bufferSize),
		failures: make(map[uuid.UUID]*planFailures),
	}
}

// FailuresForPlan reports how many audit writes have failed for planID
// since the last ClearPlanFailures, and the most recent error.
func (w *Writer) FailuresForPlan(planID uuid.UUID) (count int, lastError string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.failures[planID]
	if !ok {
		return 0, ""
	}
	return f.count, f.lastError
}

// ClearPlanFailures discards the tracked failure count for planID, once a
// caller has consumed it (e.g. into a job's result_summary).
func (w *Writer) ClearPlanFailures(planID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.failures, planID)
}

func (w *Writer) recordFailure(planID *uuid.UUID, err error) {
	if planID == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.failures[*planID]
	if !ok {
		f = &planFailures{}
		w.failures[*planID] = f
	}
	f.count++
	f.lastError = err.Error()
}

// Start launches the background flush goroutine and returns immediately.
// The goroutine exits once ctx is cancelled or Close is called, after
// flushing the entries it has received.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Record enqueues an audit event for async writing. It never blocks the
// caller; if the buffer is full the entry is dropped and a warning logged.
func (w *Writer) Record(evt Event) {
	select {
	case w.entries <- evt:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "action", evt.Action)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, flushBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case evt, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, evt)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case evt, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, evt)
				default:
					flush()
					return
				}
			}
		}
	}
}

const highRisk = "high"

func isTerminalFailure(action string) bool {
	return action == EventDeviceFailed || action == EventDeviceRolledBack ||
		action == EventPlanFailed || action == EventPlanRolledBack
}

const insertAuditEvent = `
	INSERT INTO audit_events (id, plan_id, device_id, actor, action, risk_level, detail, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,now())`

func (w *Writer) flush(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, evt := range batch {
		detail := evt.Detail
		if detail == nil {
			detail = json.RawMessage("{}")
		}
		if _, err := w.pool.Exec(ctx, insertAuditEvent,
			uuid.New(), evt.PlanID, evt.DeviceID, evt.Actor, evt.Action, evt.RiskLevel, detail,
		); err != nil {
			w.logger.Error("writing audit event", "error", err, "action", evt.Action)
			w.recordFailure(evt.PlanID, err)
		}

		w.maybeNotify(ctx, evt)
	}
}

// maybeNotify posts a Slack side-channel message for a plan.created event at
// high risk, or any terminal failure event. Delivery failure never fails the
// underlying audit write.
func (w *Writer) maybeNotify(ctx context.Context, evt Event) {
	if w.notifier == nil {
		return
	}
	highRiskCreate := evt.Action == EventPlanCreated && evt.RiskLevel == highRisk
	if !highRiskCreate && !isTerminalFailure(evt.Action) {
		return
	}

	text := fmt.Sprintf("[netguard] %s", evt.Action)
	if evt.PlanID != nil {
		text += fmt.Sprintf(" plan=%s", evt.PlanID)
	}
	if evt.DeviceID != nil {
		text += fmt.Sprintf(" device=%s", evt.DeviceID)
	}
	if evt.RiskLevel != "" {
		text += fmt.Sprintf(" risk=%s", evt.RiskLevel)
	}

	if err := w.notifier.PostText(ctx, text); err != nil {
		w.logger.Warn("posting audit slack notification", "error", err, "action", evt.Action)
	}
}
