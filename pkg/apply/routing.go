package apply

import (
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

func init() {
	register(&Mutation{
		Family:               device.FamilyRouting,
		CollectionPath:       "/ip/route",
		IDParam:              "route_id",
		BuildBody:            buildRoutingBody,
		HealthCheckInvariant: routingInvariant,
	})
}

func buildRoutingBody(op riskengine.Operation, params riskengine.Params) map[string]any {
	if op == riskengine.OperationModify {
		mods, _ := params["modifications"].(map[string]any)
		return mods
	}
	body := map[string]any{}
	for _, k := range []string{"destination", "gateway", "distance"} {
		if v, ok := params[k]; ok {
			body[k] = v
		}
	}
	return body
}

// routingInvariant checks the mutated route table is non-empty (add/modify)
// or no longer holds an entry with the removed route's id (remove). It does
// not look for the route's destination itself.
func routingInvariant(op riskengine.Operation, before, after []map[string]any, newID string) error {
	switch op {
	case riskengine.OperationAdd, riskengine.OperationModify:
		if len(after) == 0 {
			return &ErrInvariantViolated{Family: device.FamilyRouting, Detail: "route table empty after mutation"}
		}
	case riskengine.OperationRemove:
		for _, item := range after {
			if id, _ := item[".id"].(string); id == newID {
				return &ErrInvariantViolated{Family: device.FamilyRouting, Detail: "removed route still present"}
			}
		}
	}
	return nil
}
