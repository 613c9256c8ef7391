package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/netguard/internal/db"
)

// Roles seeded by the default deployment. Additional roles may be
// provisioned at runtime; the Gate only cares about the permission rows a
// role expands to, never the role name itself.
const (
	RoleReadOnly Role = "read_only"
	RoleOpsRW    Role = "ops_rw"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

// Role identifies a named set of permissions.
type Role string

// Permission is one (resource_type, action) a role grants, optionally scoped
// to a specific resource_id ("*" means every resource of that type).
type Permission struct {
	ResourceType string
	Action       string
	ResourceID   string
}

// toolPermission maps a tool_name to the (resource_type, action) pair it
// requires.
var toolPermission = map[string]Permission{
	"plan-add":    {ResourceType: "device", Action: "write"},
	"plan-modify": {ResourceType: "device", Action: "write"},
	"plan-remove": {ResourceType: "device", Action: "write"},
	"plan-apply":  {ResourceType: "device", Action: "apply"},
	"plan-read":   {ResourceType: "device", Action: "read"},
}

// RequiredPermission resolves the permission a tool name requires. Unknown
// tool names default to the most restrictive write permission.
func RequiredPermission(toolName string) Permission {
	if p, ok := toolPermission[toolName]; ok {
		return p
	}
	return Permission{ResourceType: "device", Action: "write"}
}

// Unauthorized is raised by Gate.Authorize; the core never masks the reason.
type Unauthorized struct {
	Reason             string
	MissingPermission  *Permission
	OutOfScopeDevices  []uuid.UUID
}

func (e *Unauthorized) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

// Gate implements the four-step authorization check: active user, role
// permissions, per-device permission match, then device scope.
type Gate struct {
	dbtx db.DBTX
}

// NewGate creates an Authorization Gate backed by the roles/permissions
// tables.
func NewGate(dbtx db.DBTX) *Gate {
	return &Gate{dbtx: dbtx}
}

// Authorize runs the Authorization Gate for one tool invocation.
func (g *Gate) Authorize(ctx context.Context, id *Identity, toolName string, deviceIDs []uuid.UUID) error {
	if id == nil || !id.Active {
		return &Unauthorized{Reason: "user is not active"}
	}

	required := RequiredPermission(toolName)

	granted, err := g.expandPermissions(ctx, id.Role)
	if err != nil {
		return fmt.Errorf("expanding role permissions: %w", err)
	}

	for _, deviceID := range deviceIDs {
		if !hasPermission(granted, required, deviceID) {
			p := required
			return &Unauthorized{Reason: "missing permission for device " + deviceID.String(), MissingPermission: &p}
		}
	}

	if len(id.DeviceScopes) > 0 {
		scoped := make(map[uuid.UUID]bool, len(id.DeviceScopes))
		for _, d := range id.DeviceScopes {
			scoped[d] = true
		}
		var outOfScope []uuid.UUID
		for _, deviceID := range deviceIDs {
			if !scoped[deviceID] {
				outOfScope = append(outOfScope, deviceID)
			}
		}
		if len(outOfScope) > 0 {
			return &Unauthorized{Reason: "devices out of scope", OutOfScopeDevices: outOfScope}
		}
	}

	return nil
}

func hasPermission(granted []Permission, required Permission, deviceID uuid.UUID) bool {
	for _, p := range granted {
		if p.ResourceType != required.ResourceType || p.Action != required.Action {
			continue
		}
		if p.ResourceID == "*" || p.ResourceID == deviceID.String() {
			return true
		}
	}
	return false
}

func (g *Gate) expandPermissions(ctx context.Context, role string) ([]Permission, error) {
	rows, err := g.dbtx.Query(ctx, `
		SELECT p.resource_type, p.action, p.resource_id
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role = $1`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ResourceType, &p.Action, &p.ResourceID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadIdentity resolves the full Identity (active flag, role, device scopes)
// for an authenticated subject.
func LoadIdentity(ctx context.Context, dbtx db.DBTX, subject string) (*Identity, error) {
	var id Identity
	var scopes []uuid.UUID
	row := dbtx.QueryRow(ctx, `
		SELECT id, subject, role, is_active, device_scopes
		FROM users WHERE subject = $1`, subject)
	if err := row.Scan(&id.UserID, &id.Subject, &id.Role, &id.Active, &scopes); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no user found for subject %q", subject)
		}
		return nil, err
	}
	id.DeviceScopes = scopes
	return &id, nil
}
