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

// Snapshot is the pre-mutation state of one device's affected resource
// collection, captured so a failed health check can be rolled back.
type Snapshot struct {
	ID         uuid.UUID
	PlanID     uuid.UUID
	DeviceID   uuid.UUID
	Family     string
	Collection []map[string]any
	CreatedAt  time.Time
}

// SnapshotStore persists per-device pre-mutation snapshots.
type SnapshotStore struct {
	dbtx db.DBTX
}

// NewSnapshotStore creates a SnapshotStore.
func NewSnapshotStore(dbtx db.DBTX) *SnapshotStore {
	return &SnapshotStore{dbtx: dbtx}
}

const snapshotColumns = `id, plan_id, device_id, family, collection, created_at`

// Create persists a snapshot and returns it with its assigned id/timestamp.
func (s *SnapshotStore) Create(ctx context.Context, planID, deviceID uuid.UUID, family string, collection []map[string]any) (Snapshot, error) {
	raw, err := json.Marshal(collection)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding snapshot collection: %w", err)
	}

	row := s.dbtx.QueryRow(ctx, `
		INSERT INTO snapshots (id, plan_id, device_id, family, collection)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+snapshotColumns,
		uuid.New(), planID, deviceID, family, raw,
	)
	return scanSnapshot(row)
}

// GetForDevice fetches the most recent snapshot for a (plan, device) pair —
// the one taken immediately before this apply's mutate step.
func (s *SnapshotStore) GetForDevice(ctx context.Context, planID, deviceID uuid.UUID) (Snapshot, error) {
	row := s.dbtx.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots WHERE plan_id = $1 AND device_id = $2
		ORDER BY created_at DESC LIMIT 1`,
		planID, deviceID,
	)
	return scanSnapshot(row)
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	var raw []byte
	if err := row.Scan(&s.ID, &s.PlanID, &s.DeviceID, &s.Family, &raw, &s.CreatedAt); err != nil {
		return Snapshot{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Collection); err != nil {
			return Snapshot{}, fmt.Errorf("decoding snapshot collection: %w", err)
		}
	}
	return s, nil
}
