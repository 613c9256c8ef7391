package apply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wisbric/netguard/internal/audit"
	"github.com/wisbric/netguard/pkg/credential"
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/plan"
	"github.com/wisbric/netguard/pkg/riskengine"
	"github.com/wisbric/netguard/pkg/transport"
)

// Executor implements the Apply Executor: validates the approval token,
// transitions the plan to executing, and fans out batch_size concurrent
// per-device workers with a timed pause between batches, merging outcomes
// into the plan's device_statuses and a polled Job record.
type Executor struct {
	plans       *plan.Service
	planStore   *plan.Store
	devices     *device.Service
	snapshots   *SnapshotStore
	jobs        *JobStore
	auditWriter *audit.Writer
	logger      *slog.Logger

	worker worker
}

// Config bundles the apply executor's runtime knobs as configuration options.
type Config struct {
	DeviceTimeout    time.Duration
	TransportTimeout time.Duration
	CredentialKind   credential.Kind
}

// NewExecutor wires an Executor.
func NewExecutor(
	plans *plan.Service,
	planStore *plan.Store,
	devices *device.Service,
	credentials *credential.Service,
	transports *transport.Factory,
	snapshots *SnapshotStore,
	jobs *JobStore,
	auditWriter *audit.Writer,
	logger *slog.Logger,
	cfg Config,
) *Executor {
	kind := cfg.CredentialKind
	if kind == "" {
		kind = credential.KindREST
	}
	return &Executor{
		plans:       plans,
		planStore:   planStore,
		devices:     devices,
		snapshots:   snapshots,
		jobs:        jobs,
		auditWriter: auditWriter,
		logger:      logger,
		worker: worker{
			devices:        devices,
			credentials:    credentials,
			transports:     transports,
			snapshots:      snapshots,
			deviceTimeout:  cfg.DeviceTimeout,
			credentialKind: kind,
		},
	}
}

// Result is the apply call's response shape.
type Result struct {
	PlanID         uuid.UUID
	SuccessfulCount int
	FailedCount     int
	FinalStatus     plan.Status
	DeviceResults   []DeviceResult
}

// DeviceResult is one entry of Result.DeviceResults.
type DeviceResult struct {
	DeviceID uuid.UUID
	Status   string
	Error    string
	Rollback bool
}

// Execute runs the full pre-flight + batched apply protocol for one plan.
func (e *Executor) Execute(ctx context.Context, planID uuid.UUID, presentedToken string) (Result, error) {
	p, err := e.plans.ValidateToken(ctx, planID, presentedToken)
	if err != nil {
		return Result{}, err
	}

	// Presenting a valid token for a pending plan approves it on the way to
	// executing.
	if p.Status == plan.StatusPending {
		p, err = e.plans.UpdateStatus(ctx, planID, plan.StatusApproved, p.CreatedBy)
		if err != nil {
			return Result{}, err
		}
		if e.auditWriter != nil {
			e.auditWriter.Record(audit.Event{PlanID: &planID, Actor: p.CreatedBy, Action: audit.EventPlanApproved, RiskLevel: string(p.RiskLevel)})
		}
	}

	p, err = e.plans.UpdateStatus(ctx, planID, plan.StatusExecuting, p.CreatedBy)
	if err != nil {
		return Result{}, err
	}

	if e.auditWriter != nil {
		e.auditWriter.Record(audit.Event{PlanID: &planID, Actor: p.CreatedBy, Action: audit.EventApplyStarted, RiskLevel: string(p.RiskLevel)})
	}

	job, err := e.jobs.Create(ctx, planID, "apply", p.DeviceIDs)
	if err != nil {
		return Result{}, fmt.Errorf("creating job: %w", err)
	}

	family := device.Family(p.Changes.Family)
	op := p.Changes.Operation
	params := p.Changes.Params

	outcomes := make(map[string]plan.DeviceOutcome, len(p.DeviceIDs))
	done := 0

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	var persistErr error

	for start := 0; start < len(p.DeviceIDs); start += batchSize {
		end := start + batchSize
		if end > len(p.DeviceIDs) {
			end = len(p.DeviceIDs)
		}
		batch := p.DeviceIDs[start:end]

		results := make([]deviceOutcome, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, deviceID := range batch {
			i, deviceID := i, deviceID
			g.Go(func() error {
				results[i] = e.worker.apply(gctx, planID, deviceID, family, op, params, p.RollbackOnFailure)
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			outcomes[r.DeviceID.String()] = r.Outcome
			done++
			e.recordDeviceAudit(planID, r)
		}

		var lastDeviceID *uuid.UUID
		if len(batch) > 0 {
			last := batch[len(batch)-1]
			lastDeviceID = &last
		}
		if _, err := e.jobs.Advance(ctx, job.ID, done, len(p.DeviceIDs), lastDeviceID); err != nil {
			e.logger.Error("advancing job progress", "error", err, "job_id", job.ID)
		}

		if err := e.planStore.UpdateDeviceStatuses(ctx, planID, outcomes); err != nil {
			e.logger.Error("persisting device statuses, aborting apply", "error", err, "plan_id", planID)
			persistErr = err

			// The just-applied batch's outcomes never durably landed in
			// plan.device_statuses, so they cannot be trusted as completed
			// or rolled_back; force them (and everything not yet attempted)
			// to failed rather than let the plan terminate as if this batch
			// had succeeded.
			for _, deviceID := range batch {
				outcome := plan.DeviceOutcome{Status: "failed", Error: fmt.Sprintf("device status persistence failed: %v", err)}
				outcomes[deviceID.String()] = outcome
				e.recordDeviceAudit(planID, deviceOutcome{DeviceID: deviceID, Outcome: outcome})
			}
			for _, deviceID := range p.DeviceIDs[end:] {
				outcome := plan.DeviceOutcome{Status: "failed", Error: "apply aborted before this device was attempted: device status persistence failed"}
				outcomes[deviceID.String()] = outcome
				e.recordDeviceAudit(planID, deviceOutcome{DeviceID: deviceID, Outcome: outcome})
			}
			break
		}

		if end < len(p.DeviceIDs) && p.PauseSecondsBetweenBatches > 0 {
			select {
			case <-time.After(time.Duration(p.PauseSecondsBetweenBatches) * time.Second):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
	}

	finalStatus := plan.StatusFailed
	if persistErr == nil {
		finalStatus = plan.TerminalStatusFromOutcomes(outcomes)
	}
	if _, err := e.plans.UpdateStatus(ctx, planID, finalStatus, p.CreatedBy); err != nil {
		e.logger.Error("transitioning plan to terminal status", "error", err, "plan_id", planID, "status", finalStatus)
	}

	jobStatus := JobStatusCompleted
	errorMessage := ""
	if finalStatus != plan.StatusCompleted {
		jobStatus = JobStatusFailed
	}
	if persistErr != nil {
		errorMessage = persistErr.Error()
	}
	resultSummary := map[string]any{
		"successful_count": countByStatus(outcomes, "completed"),
		"failed_count":     len(outcomes) - countByStatus(outcomes, "completed"),
		"final_status":     string(finalStatus),
	}
	if e.auditWriter != nil {
		if failures, lastErr := e.auditWriter.FailuresForPlan(planID); failures > 0 {
			resultSummary["audit_write_failures"] = failures
			resultSummary["last_audit_error"] = lastErr
			e.auditWriter.ClearPlanFailures(planID)
		}
	}
	if _, err := e.jobs.Finish(ctx, job.ID, jobStatus, resultSummary, errorMessage); err != nil {
		e.logger.Error("finishing job", "error", err, "job_id", job.ID)
	}
	e.recordPlanTerminalAudit(planID, p.CreatedBy, finalStatus, p.RiskLevel)

	result := Result{PlanID: planID, FinalStatus: finalStatus}
	for deviceID, outcome := range outcomes {
		id, _ := uuid.Parse(deviceID)
		if outcome.Status == "completed" {
			result.SuccessfulCount++
		} else {
			result.FailedCount++
		}
		result.DeviceResults = append(result.DeviceResults, DeviceResult{
			DeviceID: id, Status: outcome.Status, Error: outcome.Error, Rollback: outcome.Rollback,
		})
	}
	return result, nil
}

func countByStatus(outcomes map[string]plan.DeviceOutcome, status string) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (e *Executor) recordDeviceAudit(planID uuid.UUID, r deviceOutcome) {
	if e.auditWriter == nil {
		return
	}
	action := audit.EventDeviceSucceeded
	switch r.Outcome.Status {
	case "failed":
		action = audit.EventDeviceFailed
	case "rolled_back":
		action = audit.EventDeviceRolledBack
	}
	e.auditWriter.Record(audit.Event{PlanID: &planID, DeviceID: &r.DeviceID, Action: action})
}

func (e *Executor) recordPlanTerminalAudit(planID uuid.UUID, actor string, status plan.Status, risk riskengine.RiskLevel) {
	if e.auditWriter == nil {
		return
	}
	action := audit.EventPlanCompleted
	switch status {
	case plan.StatusFailed:
		action = audit.EventPlanFailed
	case plan.StatusRolledBack:
		action = audit.EventPlanRolledBack
	}
	e.auditWriter.Record(audit.Event{PlanID: &planID, Actor: actor, Action: action, RiskLevel: string(risk)})
}
