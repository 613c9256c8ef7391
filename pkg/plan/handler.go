package plan

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wisbric/netguard/internal/audit"
	"github.com/wisbric/netguard/internal/auth"
	"github.com/wisbric/netguard/internal/httpserver"
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

// Handler exposes the tool-invocation surface: one plan-{operation} endpoint
// per tool family, and plan reads.
type Handler struct {
	service *Service
	gate    *auth.Gate
	audit   *audit.Writer
	logger  *slog.Logger
}

// NewHandler creates a plan Handler.
func NewHandler(service *Service, gate *auth.Gate, auditWriter *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{service: service, gate: gate, audit: auditWriter, logger: logger}
}

// Routes mounts the plan-creation and plan-read routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/tools/{family}/plan-{operation}", h.handleCreatePlan)
	r.Get("/plans/{id}", h.handleGetPlan)
	r.Post("/plans/{id}/cancel", h.handleCancel)
	return r
}

// toolInvocationRequest mirrors the tool-call request shape.
type toolInvocationRequest struct {
	DeviceIDs         []uuid.UUID         `json:"device_ids" validate:"required,min=1"`
	ToolName          string              `json:"tool_name" validate:"required"`
	CreatedBy         string              `json:"created_by" validate:"required"`
	Summary           string              `json:"summary" validate:"required"`
	Params            riskengine.Params   `json:"params"`
	BatchSize         int                 `json:"batch_size"`
	PauseSeconds      int                 `json:"pause_seconds_between_batches"`
	RollbackOnFailure bool                `json:"rollback_on_failure"`
}

// devicePreview is one entry of the tool response's _meta.devices[].
type devicePreview struct {
	DeviceID string         `json:"device_id"`
	Preview  map[string]any `json:"preview"`
}

// toolInvocationMeta is the structured _meta envelope returned with a tool
// call response.
type toolInvocationMeta struct {
	PlanID            uuid.UUID             `json:"plan_id"`
	ApprovalToken     string                `json:"approval_token"`
	ApprovalExpiresAt string                `json:"approval_expires_at"`
	RiskLevel         riskengine.RiskLevel  `json:"risk_level"`
	DeviceCount       int                   `json:"device_count"`
	Devices           []devicePreview       `json:"devices"`
	ToolName          string                `json:"tool_name"`
}

// toolInvocationResponse is the {content, _meta, isError} envelope.
type toolInvocationResponse struct {
	Content []toolContent       `json:"content"`
	Meta    *toolInvocationMeta `json:"_meta,omitempty"`
	IsError bool                `json:"isError"`
}

type toolContent struct {
	Text string `json:"text"`
}

func errorEnvelope(text string) toolInvocationResponse {
	return toolInvocationResponse{Content: []toolContent{{Text: text}}, IsError: true}
}

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	family := device.Family(chi.URLParam(r, "family"))
	operation := riskengine.Operation(chi.URLParam(r, "operation"))

	var req toolInvocationRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	identity := auth.FromContext(r.Context())
	if err := h.gate.Authorize(r.Context(), identity, req.ToolName, req.DeviceIDs); err != nil {
		h.recordDenied(r, req, family, err)
		httpserver.Respond(w, http.StatusOK, errorEnvelope(err.Error()))
		return
	}

	created, err := h.service.CreatePlan(r.Context(), CreatePlanRequest{
		ToolName:                   req.ToolName,
		CreatedBy:                  req.CreatedBy,
		DeviceIDs:                  req.DeviceIDs,
		Summary:                    req.Summary,
		Family:                     family,
		Operation:                  operation,
		Params:                     req.Params,
		BatchSize:                  req.BatchSize,
		PauseSecondsBetweenBatches: req.PauseSeconds,
		RollbackOnFailure:          req.RollbackOnFailure,
		ProdWriteDefaultDenied:     true,
	})
	if err != nil {
		h.recordDenied(r, req, family, err)
		httpserver.Respond(w, http.StatusOK, errorEnvelope(err.Error()))
		return
	}

	devices := make([]devicePreview, 0, len(created.DevicePreviews))
	for id, preview := range created.DevicePreviews {
		devices = append(devices, devicePreview{DeviceID: id, Preview: preview})
	}

	if h.audit != nil {
		h.audit.Record(audit.Event{
			PlanID:    &created.Plan.ID,
			Actor:     req.CreatedBy,
			Action:    audit.EventPlanCreated,
			RiskLevel: string(created.Plan.RiskLevel),
		})
	}

	resp := toolInvocationResponse{
		Content: []toolContent{{Text: "plan " + created.Plan.ID.String() + " created, pending approval"}},
		Meta: &toolInvocationMeta{
			PlanID:            created.Plan.ID,
			ApprovalToken:     created.ApprovalToken,
			ApprovalExpiresAt: created.Plan.ApprovalExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
			RiskLevel:         created.Plan.RiskLevel,
			DeviceCount:       len(req.DeviceIDs),
			Devices:           devices,
			ToolName:          req.ToolName,
		},
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) recordDenied(r *http.Request, req toolInvocationRequest, family device.Family, err error) {
	if h.audit == nil {
		return
	}
	h.audit.Record(audit.Event{
		Actor:  req.CreatedBy,
		Action: audit.EventPlanDenied,
	})
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid plan id")
		return
	}

	p, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.logger.Error("getting plan", "error", err)
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "plan not found")
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid plan id")
		return
	}

	actor := r.URL.Query().Get("actor")
	p, err := h.service.UpdateStatus(r.Context(), id, StatusCancelled, actor)
	if err != nil {
		httpserver.RespondError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}
