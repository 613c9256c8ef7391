package apply

import (
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

func init() {
	register(&Mutation{
		Family:               device.FamilyWireless,
		CollectionPath:       "/interface/wireless/security-profiles",
		IDParam:              "ssid_id",
		BuildBody:            buildWirelessBody,
		HealthCheckInvariant: containsID(device.FamilyWireless),
	})
}

func buildWirelessBody(op riskengine.Operation, params riskengine.Params) map[string]any {
	if op == riskengine.OperationModify {
		mods, _ := params["modifications"].(map[string]any)
		return mods
	}
	body := map[string]any{}
	for _, k := range []string{"ssid", "security", "band"} {
		if v, ok := params[k]; ok {
			body[k] = v
		}
	}
	return body
}
