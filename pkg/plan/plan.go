// Package plan implements the Plan Service: creating, fetching, and
// transitioning plans, and minting/validating the approval token that
// binds one apply call to one approval decision.
package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/netguard/pkg/riskengine"
)

// Status is a plan's place in the state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// terminal are statuses a plan never leaves.
var terminal = map[Status]bool{
	StatusCompleted:  true,
	StatusFailed:     true,
	StatusRolledBack: true,
	StatusExpired:    true,
	StatusCancelled:  true,
}

// IsTerminal reports whether status is a terminal state.
func (s Status) IsTerminal() bool { return terminal[s] }

// validTransitions enumerates the state machine's edges. update_plan_status
// rejects any transition not listed here.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusExpired: true, StatusCancelled: true},
	StatusApproved:  {StatusExecuting: true, StatusExpired: true, StatusCancelled: true},
	StatusExecuting: {StatusCompleted: true, StatusRolledBack: true, StatusFailed: true, StatusCancelled: true},
}

// InvalidPlanTransition is raised when update_plan_status is asked to move
// a plan along an edge the state machine does not define, or the plan's
// pre-image status does not match the expected predecessor (an optimistic
// concurrency check).
type InvalidPlanTransition struct {
	PlanID uuid.UUID
	From   Status
	To     Status
}

func (e *InvalidPlanTransition) Error() string {
	return fmt.Sprintf("plan %s: invalid transition %s -> %s", e.PlanID, e.From, e.To)
}

// CheckTransition validates that moving from -> to is a legal edge.
func CheckTransition(planID uuid.UUID, from, to Status) error {
	if from.IsTerminal() {
		return &InvalidPlanTransition{PlanID: planID, From: from, To: to}
	}
	if !validTransitions[from][to] {
		return &InvalidPlanTransition{PlanID: planID, From: from, To: to}
	}
	return nil
}

// Change is the structured record of one tool invocation's parameters, kept
// as a tagged variant keyed by operation.
type Change struct {
	Family    string            `json:"family"`
	Operation riskengine.Operation `json:"operation"`
	Params    riskengine.Params `json:"params"`
}

// DeviceOutcome is one device's terminal or in-flight apply outcome, stored
// in Plan.DeviceStatuses.
type DeviceOutcome struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Rollback  bool   `json:"rollback,omitempty"`
	Preview   map[string]any `json:"preview,omitempty"`
}

// Plan is the full persisted plan record.
type Plan struct {
	ID        uuid.UUID
	CreatedBy string
	ToolName  string
	Status    Status
	DeviceIDs []uuid.UUID
	Summary   string
	Changes   Change
	RiskLevel riskengine.RiskLevel

	ApprovedBy *string
	ApprovedAt *time.Time

	ApprovalTokenHash      []byte
	ApprovalTokenTimestamp time.Time
	ApprovalExpiresAt      time.Time

	BatchSize                 int
	PauseSecondsBetweenBatches int
	RollbackOnFailure          bool

	DeviceStatuses    map[string]DeviceOutcome
	PreCheckResults   map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminalStatusFromOutcomes derives the plan terminal status from merged
// per-device outcomes.
func TerminalStatusFromOutcomes(outcomes map[string]DeviceOutcome) Status {
	anyRolledBack := false
	anyFailed := false
	allCompleted := len(outcomes) > 0

	for _, o := range outcomes {
		switch o.Status {
		case "completed":
		case "rolled_back":
			anyRolledBack = true
			allCompleted = false
		case "failed":
			anyFailed = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted
	case anyRolledBack:
		return StatusRolledBack
	case anyFailed:
		return StatusFailed
	default:
		return StatusExecuting
	}
}

// ErrNotFound is returned when a plan id has no matching row.
var ErrNotFound = errors.New("plan not found")
