package riskengine

import (
	"net"
	"strings"

	"github.com/wisbric/netguard/pkg/device"
)

func init() {
	register(&Definition{
		Family:     device.FamilyRouting,
		Validate:   validateRouting,
		AssessRisk: assessRoutingRisk,
		Preview:    previewRouting,
	})
}

func isDefaultRoute(cidr string) bool {
	return cidr == "0.0.0.0/0" || cidr == "::/0"
}

func validateRouting(op Operation, params Params) (Params, error) {
	verr := &ValidationError{}
	out := Params{}

	if op == OperationRemove {
		routeID, _ := params["route_id"].(string)
		if strings.TrimSpace(routeID) == "" {
			verr.add("route_id", "route_id is required")
		}
		out["route_id"] = routeID
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	if op == OperationModify {
		routeID, _ := params["route_id"].(string)
		if strings.TrimSpace(routeID) == "" {
			verr.add("route_id", "route_id is required")
		}
		mods, _ := params["modifications"].(map[string]any)
		if len(mods) == 0 {
			verr.add("modifications", "At least one modification field is required")
		}
		out["route_id"] = routeID
		out["modifications"] = mods
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	dst, _ := params["destination"].(string)
	if _, _, err := net.ParseCIDR(dst); err != nil {
		verr.add("destination", "destination %q is not a valid CIDR", dst)
	}
	gw, _ := params["gateway"].(string)
	if net.ParseIP(gw) == nil {
		verr.add("gateway", "gateway %q is not a valid IP address", gw)
	}
	out["destination"] = dst
	out["gateway"] = gw
	if distance, ok := params["distance"]; ok {
		out["distance"] = distance
	}

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return out, nil
}

func assessRoutingRisk(op Operation, params Params, env device.Environment) RiskLevel {
	dst, _ := params["destination"].(string)
	if isDefaultRoute(dst) {
		return RiskHigh
	}
	if env == device.EnvironmentProd {
		return RiskHigh
	}
	return RiskMedium
}

func previewRouting(op Operation, d device.Device, params Params) map[string]any {
	switch op {
	case OperationAdd:
		return map[string]any{
			"operation":        string(op),
			"destination":      params["destination"],
			"gateway":          params["gateway"],
			"estimated_impact": "Low - route added, existing routes unaffected",
		}
	case OperationModify:
		return map[string]any{
			"operation":        string(op),
			"route_id":         params["route_id"],
			"modifications":    params["modifications"],
			"estimated_impact": "Medium - existing route modified, may redirect active traffic",
		}
	case OperationRemove:
		return map[string]any{
			"operation":        string(op),
			"route_id":         params["route_id"],
			"estimated_impact": "Medium - route removal may black-hole traffic relying on it",
		}
	default:
		return map[string]any{"operation": string(op)}
	}
}
