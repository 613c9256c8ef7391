package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/netguard/internal/db"
	"github.com/wisbric/netguard/pkg/riskengine"
)

// Store is the Postgres-backed persistence for plans.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a plan Store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const planColumns = `
	id, created_by, tool_name, status, device_ids, summary, changes, risk_level,
	approved_by, approved_at, approval_token_hash, approval_token_timestamp, approval_expires_at,
	batch_size, pause_seconds_between_batches, rollback_on_failure,
	device_statuses, pre_check_results, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	var status, riskLevel string
	var changesRaw, deviceStatusesRaw, preCheckRaw []byte

	if err := row.Scan(
		&p.ID, &p.CreatedBy, &p.ToolName, &status, &p.DeviceIDs, &p.Summary, &changesRaw, &riskLevel,
		&p.ApprovedBy, &p.ApprovedAt, &p.ApprovalTokenHash, &p.ApprovalTokenTimestamp, &p.ApprovalExpiresAt,
		&p.BatchSize, &p.PauseSecondsBetweenBatches, &p.RollbackOnFailure,
		&deviceStatusesRaw, &preCheckRaw, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return Plan{}, err
	}
	p.Status = Status(status)
	p.RiskLevel = riskengine.RiskLevel(riskLevel)

	if len(changesRaw) > 0 {
		if err := json.Unmarshal(changesRaw, &p.Changes); err != nil {
			return Plan{}, fmt.Errorf("decoding changes: %w", err)
		}
	}
	if len(deviceStatusesRaw) > 0 {
		if err := json.Unmarshal(deviceStatusesRaw, &p.DeviceStatuses); err != nil {
			return Plan{}, fmt.Errorf("decoding device_statuses: %w", err)
		}
	}
	if len(preCheckRaw) > 0 {
		if err := json.Unmarshal(preCheckRaw, &p.PreCheckResults); err != nil {
			return Plan{}, fmt.Errorf("decoding pre_check_results: %w", err)
		}
	}
	return p, nil
}

// Create inserts a new plan in status pending. approval_token uniqueness is
// enforced by a unique index on approval_token_hash (testable property 3).
func (s *Store) Create(ctx context.Context, p Plan) (Plan, error) {
	changesRaw, err := json.Marshal(p.Changes)
	if err != nil {
		return Plan{}, fmt.Errorf("encoding changes: %w", err)
	}
	deviceStatusesRaw, err := json.Marshal(p.DeviceStatuses)
	if err != nil {
		return Plan{}, fmt.Errorf("encoding device_statuses: %w", err)
	}
	preCheckRaw, err := json.Marshal(p.PreCheckResults)
	if err != nil {
		return Plan{}, fmt.Errorf("encoding pre_check_results: %w", err)
	}

	row := s.dbtx.QueryRow(ctx, `
		INSERT INTO plans (
			id, created_by, tool_name, status, device_ids, summary, changes, risk_level,
			approval_token_hash, approval_token_timestamp, approval_expires_at,
			batch_size, pause_seconds_between_batches, rollback_on_failure,
			device_statuses, pre_check_results
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING `+planColumns,
		p.ID, p.CreatedBy, p.ToolName, string(p.Status), p.DeviceIDs, p.Summary, changesRaw, string(p.RiskLevel),
		p.ApprovalTokenHash, p.ApprovalTokenTimestamp, p.ApprovalExpiresAt,
		p.BatchSize, p.PauseSecondsBetweenBatches, p.RollbackOnFailure,
		deviceStatusesRaw, preCheckRaw,
	)
	return scanPlan(row)
}

// Get fetches a plan by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Plan, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("scanning plan: %w", err)
	}
	return p, nil
}

// UpdateStatus performs an optimistic, predecessor-checked status
// transition: the UPDATE only matches a row whose current status is still
// `from`. Zero rows affected means another writer already moved the plan,
// which the caller surfaces as InvalidPlanTransition.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, approvedBy *string, approvedAt *time.Time) (Plan, error) {
	row := s.dbtx.QueryRow(ctx, `
		UPDATE plans
		SET status = $1, approved_by = COALESCE($2, approved_by), approved_at = COALESCE($3, approved_at), updated_at = now()
		WHERE id = $4 AND status = $5
		RETURNING `+planColumns,
		string(to), approvedBy, approvedAt, id, string(from),
	)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, &InvalidPlanTransition{PlanID: id, From: from, To: to}
	}
	if err != nil {
		return Plan{}, fmt.Errorf("updating plan status: %w", err)
	}
	return p, nil
}

// UpdateDeviceStatuses persists the merged per-device outcomes mid-apply.
func (s *Store) UpdateDeviceStatuses(ctx context.Context, id uuid.UUID, outcomes map[string]DeviceOutcome) error {
	raw, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("encoding device_statuses: %w", err)
	}
	_, err = s.dbtx.Exec(ctx, `UPDATE plans SET device_statuses = $1, updated_at = now() WHERE id = $2`, raw, id)
	return err
}
