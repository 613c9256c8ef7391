// Package apply implements the Apply Executor: pre-flight token validation,
// batched per-device fan-out, the per-device snapshot/mutate/health-check/
// rollback protocol, and progress tracking.
package apply

import (
	"fmt"

	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

// Mutation is the per-family apply-time counterpart to riskengine.Definition:
// snapshot/mutate/inverse hooks keyed by family. It names the device-side
// collection a family mutates and how to turn validated Params into the RPC
// body the transport sends.
type Mutation struct {
	Family device.Family

	// CollectionPath is the transport path that lists/contains every
	// resource of this family (e.g. "/ip/firewall/filter").
	CollectionPath string

	// IDParam is the Params key holding the existing resource's
	// device-assigned id for modify/remove operations.
	IDParam string

	// BuildBody renders the create/update request body from validated
	// Params. For modify, only the fields present in params["modifications"]
	// are sent.
	BuildBody func(op riskengine.Operation, params riskengine.Params) map[string]any

	// HealthCheckInvariant checks the mutated collection against its
	// pre-mutation snapshot, per the family's rule. newID is the target
	// resource's id: the device-assigned id captured from an add's response,
	// or the existing id for modify/remove.
	HealthCheckInvariant func(op riskengine.Operation, before, after []map[string]any, newID string) error
}

var registry = map[device.Family]*Mutation{}

func register(m *Mutation) { registry[m.Family] = m }

// Get returns the Mutation definition for family.
func Get(family device.Family) (*Mutation, bool) {
	m, ok := registry[family]
	return m, ok
}

// ErrInvariantViolated is returned by a HealthCheckInvariant when the
// mutated collection does not satisfy the family's expected shape change.
type ErrInvariantViolated struct {
	Family device.Family
	Detail string
}

func (e *ErrInvariantViolated) Error() string {
	return fmt.Sprintf("%s: health check invariant violated: %s", e.Family, e.Detail)
}

// lengthDelta is the shared default invariant: collection length increases
// by exactly one on add, decreases by exactly one on remove, and is
// unchanged on modify.
func lengthDelta(family device.Family) func(op riskengine.Operation, before, after []map[string]any, newID string) error {
	return func(op riskengine.Operation, before, after []map[string]any, newID string) error {
		switch op {
		case riskengine.OperationAdd:
			if len(after) != len(before)+1 {
				return &ErrInvariantViolated{Family: family, Detail: fmt.Sprintf("expected collection to grow by 1, before=%d after=%d", len(before), len(after))}
			}
		case riskengine.OperationRemove:
			if len(after) != len(before)-1 {
				return &ErrInvariantViolated{Family: family, Detail: fmt.Sprintf("expected collection to shrink by 1, before=%d after=%d", len(before), len(after))}
			}
		case riskengine.OperationModify:
			if len(after) != len(before) {
				return &ErrInvariantViolated{Family: family, Detail: fmt.Sprintf("expected collection size unchanged, before=%d after=%d", len(before), len(after))}
			}
		}
		return nil
	}
}

// containsID asserts the mutated collection is non-empty (except after
// remove) and, for add,
// contains the device-assigned id captured during mutate.
func containsID(family device.Family) func(op riskengine.Operation, before, after []map[string]any, newID string) error {
	return func(op riskengine.Operation, before, after []map[string]any, newID string) error {
		if op != riskengine.OperationRemove && len(after) == 0 {
			return &ErrInvariantViolated{Family: family, Detail: "mutated collection is empty"}
		}
		if op == riskengine.OperationAdd && newID != "" {
			found := false
			for _, item := range after {
				if id, _ := item[".id"].(string); id == newID {
					found = true
					break
				}
			}
			if !found {
				return &ErrInvariantViolated{Family: family, Detail: fmt.Sprintf("new id %s not present in mutated collection", newID)}
			}
		}
		return nil
	}
}
