// Package seed provisions development data: the default RBAC roles and
// permissions the authorization gate assumes exist, plus a couple of lab
// devices so a fresh checkout can create plans against them; applying a plan
// still connects to a router at each device's management address.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DevSubject is the OIDC subject seeded as an admin user for local testing.
const DevSubject = "dev|admin"

// rolePermissions enumerates the (role, resource_type, action, resource_id)
// grants for the four standard roles. read_only and ops_rw are unrestricted
// in resource_id ("*"); approver and admin inherit ops_rw's writes plus
// apply.
var rolePermissions = []struct {
	role, resourceType, action, resourceID string
}{
	{"read_only", "device", "read", "*"},

	{"ops_rw", "device", "read", "*"},
	{"ops_rw", "device", "write", "*"},

	{"approver", "device", "read", "*"},
	{"approver", "device", "write", "*"},
	{"approver", "device", "apply", "*"},

	{"admin", "device", "read", "*"},
	{"admin", "device", "write", "*"},
	{"admin", "device", "apply", "*"},
}

// Run provisions roles, permissions, role_permissions, a dev admin user, and
// two lab devices. It is idempotent: every insert is ON CONFLICT DO NOTHING.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := seedPermissions(ctx, pool, logger); err != nil {
		return fmt.Errorf("seeding permissions: %w", err)
	}
	if err := seedDevUser(ctx, pool, logger); err != nil {
		return fmt.Errorf("seeding dev user: %w", err)
	}
	if err := seedLabDevices(ctx, pool, logger); err != nil {
		return fmt.Errorf("seeding lab devices: %w", err)
	}
	logger.Info("seed: completed successfully")
	return nil
}

func seedPermissions(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	seen := map[string]bool{}
	for _, rp := range rolePermissions {
		key := rp.resourceType + ":" + rp.action + ":" + rp.resourceID
		if !seen[key] {
			seen[key] = true
			if _, err := pool.Exec(ctx, `
				INSERT INTO permissions (resource_type, action, resource_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (resource_type, action, resource_id) DO NOTHING`,
				rp.resourceType, rp.action, rp.resourceID); err != nil {
				return err
			}
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO role_permissions (role, permission_id)
			SELECT $1, id FROM permissions WHERE resource_type = $2 AND action = $3 AND resource_id = $4
			ON CONFLICT DO NOTHING`,
			rp.role, rp.resourceType, rp.action, rp.resourceID); err != nil {
			return err
		}
	}
	logger.Info("seed: provisioned roles and permissions", "roles", 4)
	return nil
}

func seedDevUser(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO users (subject, role, is_active)
		VALUES ($1, 'admin', true)
		ON CONFLICT (subject) DO NOTHING`, DevSubject)
	if err != nil {
		return err
	}
	logger.Info("seed: provisioned dev admin user", "subject", DevSubject)
	return nil
}

func seedLabDevices(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	devices := []struct {
		name, environment, managementAddress string
	}{
		{"lab-router-01", "lab", "10.10.0.1"},
		{"lab-router-02", "lab", "10.10.0.2"},
	}

	for _, d := range devices {
		if _, err := pool.Exec(ctx, `
			INSERT INTO devices (name, environment, management_address, status,
				allow_firewall_writes, allow_routing_writes, allow_wireless_writes,
				allow_dhcp_writes, allow_bridge_writes)
			VALUES ($1, $2, $3, 'healthy', true, true, true, true, true)
			ON CONFLICT (name) DO NOTHING`,
			d.name, d.environment, d.managementAddress); err != nil {
			return err
		}
	}
	logger.Info("seed: provisioned lab devices", "count", len(devices))
	return nil
}
