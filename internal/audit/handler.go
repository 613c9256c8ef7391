package audit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/netguard/internal/httpserver"
)

// Handler exposes the GET /api/v1/audit-log endpoint.
type Handler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(pool *pgxpool.Pool, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, logger: logger}
}

// Routes returns a chi.Router with audit log routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

// entryResponse is one row of the audit log listing.
type entryResponse struct {
	ID        uuid.UUID       `json:"id"`
	PlanID    *uuid.UUID      `json:"plan_id,omitempty"`
	DeviceID  *uuid.UUID      `json:"device_id,omitempty"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	RiskLevel string          `json:"risk_level,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rows, err := h.pool.Query(r.Context(), `
		SELECT id, plan_id, device_id, actor, action, risk_level, detail, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}
	defer rows.Close()

	entries := make([]entryResponse, 0, params.PageSize)
	for rows.Next() {
		var e entryResponse
		if err := rows.Scan(&e.ID, &e.PlanID, &e.DeviceID, &e.Actor, &e.Action, &e.RiskLevel, &e.Detail, &e.CreatedAt); err != nil {
			h.logger.Error("scanning audit log row", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
			return
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	httpserver.Respond(w, http.StatusOK, entries)
}
