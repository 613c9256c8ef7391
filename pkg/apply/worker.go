package apply

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/netguard/pkg/credential"
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/plan"
	"github.com/wisbric/netguard/pkg/riskengine"
	"github.com/wisbric/netguard/pkg/transport"
)

// deviceOutcome is the atomic per-device apply protocol: resolve transport,
// snapshot, mutate, health check, rollback-on-failure, close. Every step's
// failure is terminal for this device only; it never aborts sibling devices
// in the batch.
type deviceOutcome struct {
	DeviceID uuid.UUID
	Outcome  plan.DeviceOutcome
}

// worker carries the dependencies one device's apply attempt needs.
type worker struct {
	devices        *device.Service
	credentials    *credential.Service
	transports     *transport.Factory
	snapshots      *SnapshotStore
	deviceTimeout  time.Duration
	maxAttempts    int
	credentialKind credential.Kind
}

const defaultMaxAttempts = 3

func (w *worker) apply(ctx context.Context, planID uuid.UUID, deviceID uuid.UUID, family device.Family, op riskengine.Operation, params riskengine.Params, rollbackOnFailure bool) deviceOutcome {
	ctx, cancel := context.WithTimeout(ctx, w.deviceTimeout)
	defer cancel()

	dev, err := w.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return failOutcome(deviceID, fmt.Errorf("loading device: %w", err))
	}

	mut, ok := Get(family)
	if !ok {
		return failOutcome(deviceID, fmt.Errorf("no mutation definition registered for family %q", family))
	}

	cred, err := w.credentials.Resolve(ctx, deviceID, w.credentialKind)
	if err != nil {
		return failOutcome(deviceID, fmt.Errorf("resolving credential: %w", err))
	}
	defer cred.Zero()

	tr, err := w.transports.New(ctx, dev, cred, w.credentialKind)
	if err != nil {
		return failOutcome(deviceID, fmt.Errorf("resolving transport: %w", err))
	}
	defer tr.Close()

	before, err := w.listCollection(ctx, tr, mut.CollectionPath)
	if err != nil {
		return failOutcome(deviceID, fmt.Errorf("snapshotting: %w", err))
	}
	if _, err := w.snapshots.Create(ctx, planID, deviceID, string(family), before); err != nil {
		return failOutcome(deviceID, fmt.Errorf("persisting snapshot: %w", err))
	}

	newID, mutateErr := w.mutate(ctx, tr, mut, op, params)
	if mutateErr != nil {
		return failOutcome(deviceID, fmt.Errorf("mutating: %w", mutateErr))
	}

	after, err := w.listCollection(ctx, tr, mut.CollectionPath)
	healthErr := err
	if healthErr == nil {
		healthErr = w.healthCheck(ctx, tr, mut, op, before, after, newID)
	}
	if healthErr != nil {
		return w.rollbackOrFail(ctx, deviceID, tr, mut, op, before, newID, rollbackOnFailure, healthErr)
	}

	return deviceOutcome{DeviceID: deviceID, Outcome: plan.DeviceOutcome{Status: "completed"}}
}

// listCollection fetches the current state of the family's resource
// collection, retrying transport-level failures only; validation/4xx
// failures fail immediately.
func (w *worker) listCollection(ctx context.Context, tr transport.Transport, path string) ([]map[string]any, error) {
	var out []map[string]any
	var lastErr error
	attempts := w.maxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = tr.Get(ctx, path, &out)
		if lastErr == nil {
			return out, nil
		}
		if !transport.Retryable(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// mutate issues the planned RPC and returns the device-assigned id of a
// newly created object, if any.
func (w *worker) mutate(ctx context.Context, tr transport.Transport, mut *Mutation, op riskengine.Operation, params riskengine.Params) (string, error) {
	body := mut.BuildBody(op, params)

	var resp map[string]any
	var err error
	attempts := w.maxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for attempt := 0; attempt < attempts; attempt++ {
		switch op {
		case riskengine.OperationAdd:
			err = tr.Post(ctx, mut.CollectionPath, body, &resp)
		case riskengine.OperationModify:
			err = tr.Patch(ctx, mut.CollectionPath+"/"+str(params[mut.IDParam]), body, &resp)
		case riskengine.OperationRemove:
			err = tr.Delete(ctx, mut.CollectionPath+"/"+str(params[mut.IDParam]))
		}
		if err == nil {
			break
		}
		if !transport.Retryable(err) {
			return "", err
		}
	}
	if err != nil {
		return "", err
	}

	if op == riskengine.OperationAdd {
		id, _ := resp[".id"].(string)
		return id, nil
	}
	return str(params[mut.IDParam]), nil
}

func (w *worker) healthCheck(ctx context.Context, tr transport.Transport, mut *Mutation, op riskengine.Operation, before, after []map[string]any, newID string) error {
	var sysResource map[string]any
	if err := tr.Get(ctx, "/system/resource", &sysResource); err != nil {
		return fmt.Errorf("fetching system resource: %w", err)
	}
	if _, ok := sysResource["uptime"]; !ok {
		return fmt.Errorf("system resource missing uptime")
	}
	return mut.HealthCheckInvariant(op, before, after, newID)
}

// rollbackOrFail replays the inverse operation using the snapshot when
// rollbackOnFailure is set, or records the failure outright.
func (w *worker) rollbackOrFail(ctx context.Context, deviceID uuid.UUID, tr transport.Transport, mut *Mutation, op riskengine.Operation, before []map[string]any, newID string, rollbackOnFailure bool, cause error) deviceOutcome {
	if !rollbackOnFailure {
		return deviceOutcome{DeviceID: deviceID, Outcome: plan.DeviceOutcome{Status: "failed", Error: cause.Error()}}
	}
	if err := w.rollback(ctx, tr, mut, op, before, newID); err != nil {
		return deviceOutcome{DeviceID: deviceID, Outcome: plan.DeviceOutcome{
			Status: "failed",
			Error:  fmt.Sprintf("health check failed (%v) and rollback failed (%v)", cause, err),
		}}
	}
	return deviceOutcome{DeviceID: deviceID, Outcome: plan.DeviceOutcome{
		Status:   "rolled_back",
		Error:    cause.Error(),
		Rollback: true,
	}}
}

func (w *worker) rollback(ctx context.Context, tr transport.Transport, mut *Mutation, op riskengine.Operation, before []map[string]any, newID string) error {
	switch op {
	case riskengine.OperationAdd:
		if newID == "" {
			return fmt.Errorf("no new id captured to roll back")
		}
		return tr.Delete(ctx, mut.CollectionPath+"/"+newID)
	case riskengine.OperationModify:
		// Restore prior field values from the snapshot entry matching the
		// modified resource's id.
		for _, item := range before {
			id, _ := item[".id"].(string)
			if id == "" || id != newID {
				continue
			}
			var out map[string]any
			return tr.Patch(ctx, mut.CollectionPath+"/"+id, item, &out)
		}
		return fmt.Errorf("no prior snapshot entry found for id %q to restore", newID)
	case riskengine.OperationRemove:
		for _, item := range before {
			id, _ := item[".id"].(string)
			if id == "" || id != newID {
				continue
			}
			var out map[string]any
			return tr.Post(ctx, mut.CollectionPath, item, &out)
		}
		return fmt.Errorf("no prior snapshot entry found for id %q to re-create", newID)
	}
	return nil
}

func failOutcome(deviceID uuid.UUID, err error) deviceOutcome {
	return deviceOutcome{DeviceID: deviceID, Outcome: plan.DeviceOutcome{Status: "failed", Error: err.Error()}}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
