package riskengine

import (
	"net"
	"strings"
	"time"

	"github.com/wisbric/netguard/pkg/device"
)

func init() {
	register(&Definition{
		Family:     device.FamilyDHCP,
		Validate:   validateDHCP,
		AssessRisk: assessDHCPRisk,
		Preview:    previewDHCP,
	})
}

func validateDHCP(op Operation, params Params) (Params, error) {
	verr := &ValidationError{}
	out := Params{}

	if op == OperationRemove {
		id, _ := params["pool_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("pool_id", "pool_id is required")
		}
		out["pool_id"] = id
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	if op == OperationModify {
		id, _ := params["pool_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("pool_id", "pool_id is required")
		}
		mods, _ := params["modifications"].(map[string]any)
		if len(mods) == 0 {
			verr.add("modifications", "At least one modification field is required")
		}
		out["pool_id"] = id
		out["modifications"] = mods
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	network, _ := params["network"].(string)
	_, ipnet, err := net.ParseCIDR(network)
	if err != nil {
		verr.add("network", "network %q is not a valid CIDR", network)
	}

	rangeStart, _ := params["range_start"].(string)
	rangeEnd, _ := params["range_end"].(string)
	startIP := net.ParseIP(rangeStart)
	endIP := net.ParseIP(rangeEnd)
	if startIP == nil {
		verr.add("range_start", "range_start %q is not a valid IP address", rangeStart)
	}
	if endIP == nil {
		verr.add("range_end", "range_end %q is not a valid IP address", rangeEnd)
	}
	if err == nil && startIP != nil && endIP != nil {
		if !ipnet.Contains(startIP) {
			verr.add("range_start", "range_start %q is not within network %q", rangeStart, network)
		}
		if !ipnet.Contains(endIP) {
			verr.add("range_end", "range_end %q is not within network %q", rangeEnd, network)
		}
		if compareIPs(startIP, endIP) > 0 {
			verr.add("range_end", "range_end must be greater than or equal to range_start")
		}
	}

	leaseSeconds, _ := params["lease_seconds"].(float64)
	if leaseSeconds <= 0 {
		verr.add("lease_seconds", "lease_seconds must be positive, got %v", leaseSeconds)
	}

	out["network"] = network
	out["range_start"] = rangeStart
	out["range_end"] = rangeEnd
	out["lease_seconds"] = leaseSeconds
	if overlapsReserved, ok := params["overlaps_reserved"].(bool); ok {
		out["overlaps_reserved"] = overlapsReserved
	}

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return out, nil
}

func compareIPs(a, b net.IP) int {
	a4, b4 := a.To4(), b.To4()
	if a4 != nil && b4 != nil {
		a, b = a4, b4
	}
	for i := range a {
		if i >= len(b) {
			break
		}
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func assessDHCPRisk(op Operation, params Params, env device.Environment) RiskLevel {
	if overlapsReserved, _ := params["overlaps_reserved"].(bool); overlapsReserved {
		return RiskHigh
	}
	if env == device.EnvironmentProd {
		return RiskHigh
	}
	return RiskMedium
}

func previewDHCP(op Operation, d device.Device, params Params) map[string]any {
	switch op {
	case OperationAdd:
		return map[string]any{
			"operation":        string(op),
			"network":          params["network"],
			"range":            str(params["range_start"]) + "-" + str(params["range_end"]),
			"lease":            time.Duration(int64(params["lease_seconds"].(float64))) * time.Second,
			"estimated_impact": "Low - new pool added, existing leases unaffected",
		}
	case OperationModify:
		return map[string]any{
			"operation":        string(op),
			"pool_id":          params["pool_id"],
			"modifications":    params["modifications"],
			"estimated_impact": "Medium - existing pool modified, active leases may be affected",
		}
	case OperationRemove:
		return map[string]any{
			"operation":        string(op),
			"pool_id":          params["pool_id"],
			"estimated_impact": "Medium - pool removal revokes future lease renewal for its range",
		}
	default:
		return map[string]any{"operation": string(op)}
	}
}
