package apply

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wisbric/netguard/internal/httpserver"
	"github.com/wisbric/netguard/internal/auth"
	"github.com/wisbric/netguard/pkg/plan"
)

// Handler exposes the apply-call surface.
type Handler struct {
	executor *Executor
	plans    *plan.Service
	gate     *auth.Gate
	jobs     *JobStore
	logger   *slog.Logger
}

// NewHandler creates an apply Handler.
func NewHandler(executor *Executor, plans *plan.Service, gate *auth.Gate, jobs *JobStore, logger *slog.Logger) *Handler {
	return &Handler{executor: executor, plans: plans, gate: gate, jobs: jobs, logger: logger}
}

// Routes mounts the apply-call and job-status routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/plans/{id}/apply", h.handleApply)
	r.Get("/jobs/{id}", h.handleGetJob)
	return r
}

type applyRequest struct {
	ApprovalToken string `json:"approval_token" validate:"required"`
}

type deviceResultResponse struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Rollback bool   `json:"rollback,omitempty"`
}

type applyResponse struct {
	IsError bool `json:"isError"`
	Meta    struct {
		PlanID          string                  `json:"plan_id"`
		SuccessfulCount int                     `json:"successful_count"`
		FailedCount     int                     `json:"failed_count"`
		FinalStatus     string                  `json:"final_status"`
		DeviceResults   []deviceResultResponse  `json:"device_results"`
	} `json:"_meta"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid plan id")
		return
	}

	var req applyRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.plans.GetPlan(r.Context(), planID)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "plan not found")
		return
	}

	identity := auth.FromContext(r.Context())
	if err := h.gate.Authorize(r.Context(), identity, "plan-apply", p.DeviceIDs); err != nil {
		httpserver.Respond(w, http.StatusOK, map[string]any{"isError": true, "error": err.Error()})
		return
	}

	result, err := h.executor.Execute(r.Context(), planID, req.ApprovalToken)
	if err != nil {
		httpserver.Respond(w, http.StatusOK, map[string]any{"isError": true, "error": err.Error()})
		return
	}

	resp := applyResponse{}
	resp.Meta.PlanID = result.PlanID.String()
	resp.Meta.SuccessfulCount = result.SuccessfulCount
	resp.Meta.FailedCount = result.FailedCount
	resp.Meta.FinalStatus = string(result.FinalStatus)
	for _, dr := range result.DeviceResults {
		resp.Meta.DeviceResults = append(resp.Meta.DeviceResults, deviceResultResponse{
			DeviceID: dr.DeviceID.String(), Status: dr.Status, Error: dr.Error, Rollback: dr.Rollback,
		})
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	httpserver.Respond(w, http.StatusOK, job)
}
