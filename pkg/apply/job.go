package apply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/netguard/internal/db"
)

// JobStatus is a job's place in its lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one apply call's progress, polled via GET /api/v1/jobs/{id}.
// progress_percent is monotonic non-decreasing: JobStore.Advance never
// writes a lower value than the one already stored. attempts never exceeds
// max_attempts.
type Job struct {
	ID              uuid.UUID
	PlanID          uuid.UUID
	JobType         string
	Status          JobStatus
	DeviceIDs       []uuid.UUID
	Attempts        int
	MaxAttempts     int
	NextRunAt       *time.Time
	TotalDevices    int
	DoneDevices     int
	ProgressPercent int
	CurrentDeviceID *uuid.UUID
	ResultSummary   map[string]any
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobStore persists apply job progress.
type JobStore struct {
	dbtx db.DBTX
}

// NewJobStore creates a JobStore.
func NewJobStore(dbtx db.DBTX) *JobStore {
	return &JobStore{dbtx: dbtx}
}

const jobColumns = `
	id, plan_id, job_type, status, device_ids, attempts, max_attempts, next_run_at,
	total_devices, done_devices, progress_percent, current_device_id,
	result_summary, error_message, created_at, updated_at`

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	var status string
	var resultSummaryRaw []byte
	var errorMessage *string

	if err := row.Scan(
		&j.ID, &j.PlanID, &j.JobType, &status, &j.DeviceIDs, &j.Attempts, &j.MaxAttempts, &j.NextRunAt,
		&j.TotalDevices, &j.DoneDevices, &j.ProgressPercent, &j.CurrentDeviceID,
		&resultSummaryRaw, &errorMessage, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	j.Status = JobStatus(status)
	if errorMessage != nil {
		j.ErrorMessage = *errorMessage
	}
	if len(resultSummaryRaw) > 0 {
		if err := json.Unmarshal(resultSummaryRaw, &j.ResultSummary); err != nil {
			return Job{}, fmt.Errorf("decoding result_summary: %w", err)
		}
	}
	return j, nil
}

// Create starts a new job at 0% for a plan. Apply runs synchronously from
// the calling request, so the job transitions straight to running — there
// is no separate queueing step to model here, and no job-level requeue
// mechanism, so attempts/max_attempts are fixed at 1 and next_run_at stays
// unset. Per-device transport retries (see worker.go's retry policy) are a
// distinct, device-scoped concern.
func (s *JobStore) Create(ctx context.Context, planID uuid.UUID, jobType string, deviceIDs []uuid.UUID) (Job, error) {
	row := s.dbtx.QueryRow(ctx, `
		INSERT INTO jobs (id, plan_id, job_type, status, device_ids, attempts, max_attempts, total_devices, done_devices, progress_percent, result_summary)
		VALUES ($1,$2,$3,$4,$5,1,1,$6,0,0,'{}')
		RETURNING `+jobColumns,
		uuid.New(), planID, jobType, string(JobStatusRunning), deviceIDs, len(deviceIDs),
	)
	return scanJob(row)
}

// Advance records doneDevices as the cumulative count of finished devices and
// the percentage that implies (floor(100*done/total)), clamping to never
// regress.
func (s *JobStore) Advance(ctx context.Context, id uuid.UUID, doneDevices int, totalDevices int, currentDeviceID *uuid.UUID) (Job, error) {
	percent := 0
	if totalDevices > 0 {
		percent = (100 * doneDevices) / totalDevices
	}
	row := s.dbtx.QueryRow(ctx, `
		UPDATE jobs
		SET done_devices = $1,
		    progress_percent = GREATEST(progress_percent, $2),
		    current_device_id = $3,
		    updated_at = now()
		WHERE id = $4
		RETURNING `+jobColumns,
		doneDevices, percent, currentDeviceID, id,
	)
	return scanJob(row)
}

// Finish stamps the job's terminal status, its structured result summary
// (including any audit-write-failure counts the caller wants surfaced), and
// an optional top-level error message.
func (s *JobStore) Finish(ctx context.Context, id uuid.UUID, status JobStatus, resultSummary map[string]any, errorMessage string) (Job, error) {
	raw, err := json.Marshal(resultSummary)
	if err != nil {
		return Job{}, fmt.Errorf("encoding result_summary: %w", err)
	}
	var errMsg *string
	if errorMessage != "" {
		errMsg = &errorMessage
	}
	row := s.dbtx.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, progress_percent = 100, result_summary = $2, error_message = $3, updated_at = now()
		WHERE id = $4
		RETURNING `+jobColumns,
		string(status), raw, errMsg, id,
	)
	return scanJob(row)
}

// Get fetches a job by id.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}
