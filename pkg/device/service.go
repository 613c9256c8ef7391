package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wisbric/netguard/internal/db"
)

// Service is the Device Registry's public surface: get_device and
// list_devices. Reads are consistent with the last committed mutation in
// the store — there is no cache in front of Store.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a device Service backed by the given connection.
func NewService(dbtx db.DBTX, logger *slog.Logger) *Service {
	return &Service{store: NewStore(dbtx), logger: logger}
}

// GetDevice returns a single device or ErrNotFound.
func (s *Service) GetDevice(ctx context.Context, id uuid.UUID) (Device, error) {
	return s.store.Get(ctx, id)
}

// ListDevices returns devices matching filter.
func (s *Service) ListDevices(ctx context.Context, filter Filter) ([]Device, error) {
	return s.store.List(ctx, filter)
}

// ResolveTargets loads every device in ids, failing closed if any are
// missing — the Risk & Preview Engine and Plan Service both need the full
// set resolved before they can reason about capability flags.
func (s *Service) ResolveTargets(ctx context.Context, ids []uuid.UUID) ([]Device, error) {
	devices, err := s.store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving target devices: %w", err)
	}
	return devices, nil
}
