package apply

import (
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

func init() {
	register(&Mutation{
		Family:               device.FamilyBridge,
		CollectionPath:       "/interface/bridge",
		IDParam:              "bridge_id",
		BuildBody:            buildBridgeBody,
		HealthCheckInvariant: containsID(device.FamilyBridge),
	})
}

func buildBridgeBody(op riskengine.Operation, params riskengine.Params) map[string]any {
	if op == riskengine.OperationModify {
		mods, _ := params["modifications"].(map[string]any)
		return mods
	}
	body := map[string]any{}
	for _, k := range []string{"name", "vlan_id", "ports"} {
		if v, ok := params[k]; ok {
			body[k] = v
		}
	}
	return body
}
