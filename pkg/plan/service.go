package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

// Service implements the Plan Service: create_plan, get_plan,
// update_plan_status, and validate_approval_token.
type Service struct {
	store    *Store
	devices  *device.Service
	logger   *slog.Logger
	approvalTTL time.Duration
}

// NewService creates a Plan Service. approvalTTL is the default lifetime of
// a freshly minted approval token (config field ApprovalTTL).
func NewService(store *Store, devices *device.Service, logger *slog.Logger, approvalTTL time.Duration) *Service {
	return &Service{store: store, devices: devices, logger: logger, approvalTTL: approvalTTL}
}

// CreatedPlan is the result of CreatePlan: the persisted record plus the raw
// approval token, which exists in cleartext only for this one return value.
type CreatedPlan struct {
	Plan          Plan
	ApprovalToken string
	DevicePreviews map[string]map[string]any
}

// CreatePlanRequest mirrors create_plan's parameters.
type CreatePlanRequest struct {
	ToolName                   string
	CreatedBy                  string
	DeviceIDs                  []uuid.UUID
	Summary                    string
	Family                     device.Family
	Operation                  riskengine.Operation
	Params                     riskengine.Params
	BatchSize                  int
	PauseSecondsBetweenBatches int
	RollbackOnFailure          bool
	ProdWriteDefaultDenied     bool
}

// CreatePlan resolves targets, runs every device through the family's Risk &
// Preview Engine definition, enforces the capability and environment gates,
// mints the approval token, and persists the plan in status pending. No
// plan is created if any device fails validation, capability, or
// environment checks.
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (CreatedPlan, error) {
	def, ok := riskengine.Get(req.Family)
	if !ok {
		return CreatedPlan{}, fmt.Errorf("no risk engine definition registered for family %q", req.Family)
	}

	devices, err := s.devices.ResolveTargets(ctx, req.DeviceIDs)
	if err != nil {
		return CreatedPlan{}, err
	}

	overallRisk := riskengine.RiskMedium
	previews := make(map[string]map[string]any, len(devices))

	for _, d := range devices {
		if !d.Capabilities.Allows(req.Family) {
			return CreatedPlan{}, &CapabilityNotAllowed{
				DeviceID:           d.ID,
				RequiredCapability: capabilityFieldName(req.Family),
				CurrentValue:       false,
			}
		}
		if req.ProdWriteDefaultDenied && d.Environment == device.EnvironmentProd {
			return CreatedPlan{}, &EnvironmentNotAllowed{
				DeviceID:            d.ID,
				DeviceEnvironment:   string(d.Environment),
				AllowedEnvironments: []string{string(device.EnvironmentLab), string(device.EnvironmentStaging)},
				Operation:           string(req.Operation),
			}
		}

		normalized, risk, preview, err := def.Assess(req.Operation, d, req.Params)
		if err != nil {
			return CreatedPlan{}, err
		}
		req.Params = normalized
		if risk == riskengine.RiskHigh {
			overallRisk = riskengine.RiskHigh
		}
		previews[d.ID.String()] = preview
	}

	rawToken, tokenHash, err := MintToken()
	if err != nil {
		return CreatedPlan{}, fmt.Errorf("minting approval token: %w", err)
	}

	now := time.Now().UTC()
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	pause := req.PauseSecondsBetweenBatches
	if pause <= 0 {
		pause = 60
	}

	p := Plan{
		ID:        uuid.New(),
		CreatedBy: req.CreatedBy,
		ToolName:  req.ToolName,
		Status:    StatusPending,
		DeviceIDs: req.DeviceIDs,
		Summary:   req.Summary,
		Changes: Change{
			Family:    string(req.Family),
			Operation: req.Operation,
			Params:    req.Params,
		},
		RiskLevel:                  overallRisk,
		ApprovalTokenHash:          tokenHash,
		ApprovalTokenTimestamp:     now,
		ApprovalExpiresAt:          now.Add(s.approvalTTL),
		BatchSize:                  batchSize,
		PauseSecondsBetweenBatches: pause,
		RollbackOnFailure:          req.RollbackOnFailure,
		DeviceStatuses:             map[string]DeviceOutcome{},
		PreCheckResults:            map[string]any{},
	}

	created, err := s.store.Create(ctx, p)
	if err != nil {
		return CreatedPlan{}, fmt.Errorf("persisting plan: %w", err)
	}

	return CreatedPlan{Plan: created, ApprovalToken: rawToken, DevicePreviews: previews}, nil
}

func capabilityFieldName(f device.Family) string {
	switch f {
	case device.FamilyFirewall:
		return "allow_firewall_writes"
	case device.FamilyRouting:
		return "allow_routing_writes"
	case device.FamilyWireless:
		return "allow_wireless_writes"
	case device.FamilyDHCP:
		return "allow_dhcp_writes"
	case device.FamilyBridge:
		return "allow_bridge_writes"
	default:
		return "allow_advanced_writes"
	}
}

// GetPlan returns the full plan record.
func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (Plan, error) {
	return s.store.Get(ctx, id)
}

// UpdateStatus validates the requested transition and, on approve,
// stamps approved_by/approved_at.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, actor string) (Plan, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if err := CheckTransition(id, current.Status, to); err != nil {
		return Plan{}, err
	}

	var approvedBy *string
	var approvedAt *time.Time
	if to == StatusApproved {
		now := time.Now().UTC()
		approvedBy = &actor
		approvedAt = &now
	}

	return s.store.UpdateStatus(ctx, id, current.Status, to, approvedBy, approvedAt)
}

// ValidateToken implements validate_approval_token against the plan's
// current persisted state.
func (s *Service) ValidateToken(ctx context.Context, id uuid.UUID, presented string) (Plan, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if err := ValidateApprovalToken(p, presented, time.Now().UTC()); err != nil {
		return Plan{}, err
	}
	return p, nil
}
