package riskengine

import (
	"strings"

	"github.com/wisbric/netguard/pkg/device"
)

const bridgeNativeVLAN = 1

func init() {
	register(&Definition{
		Family:     device.FamilyBridge,
		Validate:   validateBridge,
		AssessRisk: assessBridgeRisk,
		Preview:    previewBridge,
	})
}

func validateBridge(op Operation, params Params) (Params, error) {
	verr := &ValidationError{}
	out := Params{}

	if op == OperationRemove {
		id, _ := params["bridge_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("bridge_id", "bridge_id is required")
		}
		out["bridge_id"] = id
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	if op == OperationModify {
		id, _ := params["bridge_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("bridge_id", "bridge_id is required")
		}
		mods, _ := params["modifications"].(map[string]any)
		if len(mods) == 0 {
			verr.add("modifications", "At least one modification field is required")
		}
		out["bridge_id"] = id
		out["modifications"] = mods
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	name, _ := params["name"].(string)
	if strings.TrimSpace(name) == "" {
		verr.add("name", "name is required")
	}
	vlanID, _ := params["vlan_id"].(float64)
	if vlanID < 1 || vlanID > 4094 {
		verr.add("vlan_id", "vlan_id must be 1-4094, got %v", vlanID)
	}
	ports, _ := params["ports"].([]any)
	if len(ports) == 0 {
		verr.add("ports", "at least one port is required")
	}

	out["name"] = name
	out["vlan_id"] = vlanID
	out["ports"] = ports

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return out, nil
}

func assessBridgeRisk(op Operation, params Params, env device.Environment) RiskLevel {
	vlanID, _ := params["vlan_id"].(float64)
	if int(vlanID) == bridgeNativeVLAN {
		return RiskHigh
	}
	if env == device.EnvironmentProd {
		return RiskHigh
	}
	return RiskMedium
}

func previewBridge(op Operation, d device.Device, params Params) map[string]any {
	switch op {
	case OperationAdd:
		return map[string]any{
			"operation":        string(op),
			"name":             params["name"],
			"vlan_id":          params["vlan_id"],
			"ports":            params["ports"],
			"estimated_impact": "Low - new bridge created, existing bridges unaffected",
		}
	case OperationModify:
		return map[string]any{
			"operation":        string(op),
			"bridge_id":        params["bridge_id"],
			"modifications":    params["modifications"],
			"estimated_impact": "Medium - existing bridge modified, port membership may change",
		}
	case OperationRemove:
		return map[string]any{
			"operation":        string(op),
			"bridge_id":        params["bridge_id"],
			"estimated_impact": "Medium - bridge removal drops all traffic on its member ports",
		}
	default:
		return map[string]any{"operation": string(op)}
	}
}
