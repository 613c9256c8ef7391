package apply

import (
	"github.com/wisbric/netguard/pkg/device"
	"github.com/wisbric/netguard/pkg/riskengine"
)

func init() {
	register(&Mutation{
		Family:               device.FamilyFirewall,
		CollectionPath:       "/ip/firewall/filter",
		IDParam:              "rule_id",
		BuildBody:            buildFirewallBody,
		HealthCheckInvariant: lengthDelta(device.FamilyFirewall),
	})
}

func buildFirewallBody(op riskengine.Operation, params riskengine.Params) map[string]any {
	if op == riskengine.OperationModify {
		mods, _ := params["modifications"].(map[string]any)
		return mods
	}
	body := map[string]any{}
	for _, k := range []string{"chain", "action", "src_address", "dst_address", "protocol", "dst_port", "comment"} {
		if v, ok := params[k]; ok {
			body[wireName(k)] = v
		}
	}
	return body
}

func wireName(paramKey string) string {
	switch paramKey {
	case "src_address":
		return "src-address"
	case "dst_address":
		return "dst-address"
	case "dst_port":
		return "dst-port"
	default:
		return paramKey
	}
}
