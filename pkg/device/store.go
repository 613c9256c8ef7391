package device

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/netguard/internal/db"
)

// Store is the Postgres-backed persistence for devices.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a device Store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const deviceColumns = `
	id, name, management_address, environment, status, tags,
	allow_advanced_writes, allow_professional_workflows, allow_firewall_writes,
	allow_routing_writes, allow_wireless_writes, allow_dhcp_writes, allow_bridge_writes,
	created_at, updated_at`

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	var env, status string
	if err := row.Scan(
		&d.ID, &d.Name, &d.ManagementAddress, &env, &status, &d.Tags,
		&d.Capabilities.AllowAdvancedWrites, &d.Capabilities.AllowProfessionalWorkflow,
		&d.Capabilities.AllowFirewallWrites, &d.Capabilities.AllowRoutingWrites,
		&d.Capabilities.AllowWirelessWrites, &d.Capabilities.AllowDHCPWrites,
		&d.Capabilities.AllowBridgeWrites,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return Device{}, err
	}
	d.Environment = NormalizeEnvironment(env)
	d.Status = Status(status)
	return d, nil
}

// Get fetches a single device by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Device, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Device{}, ErrNotFound
	}
	if err != nil {
		return Device{}, fmt.Errorf("scanning device: %w", err)
	}
	return d, nil
}

// List returns devices matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE 1=1`
	var args []any
	n := 1

	if f.Environment != "" {
		q += fmt.Sprintf(" AND environment = $%d", n)
		args = append(args, string(f.Environment))
		n++
	}
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(f.Status))
		n++
	}
	if f.Tag != "" {
		q += fmt.Sprintf(" AND $%d = ANY(tags)", n)
		args = append(args, f.Tag)
		n++
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.dbtx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByIDs resolves a set of device ids, erroring if any are missing.
func (s *Store) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.dbtx.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]Device, len(ids))
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		found[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Device, 0, len(ids))
	var missing []string
	for _, id := range ids {
		d, ok := found[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		out = append(out, d)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}
