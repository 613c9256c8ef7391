package apply

import (
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

func init() {
	register(&Mutation{
		Family:               device.FamilyDHCP,
		CollectionPath:       "/ip/pool",
		IDParam:              "pool_id",
		BuildBody:            buildDHCPBody,
		HealthCheckInvariant: containsID(device.FamilyDHCP),
	})
}

func buildDHCPBody(op riskengine.Operation, params riskengine.Params) map[string]any {
	if op == riskengine.OperationModify {
		mods, _ := params["modifications"].(map[string]any)
		return mods
	}
	body := map[string]any{}
	for _, k := range []string{"network", "range_start", "range_end", "lease_seconds"} {
		if v, ok := params[k]; ok {
			body[k] = v
		}
	}
	return body
}
