package riskengine

import (
	"net"
	"strconv"
	"strings"

	"github.com/wisbric/netguard/pkg/device"
)

var (
	firewallValidChains    = []string{"input", "forward", "output"}
	firewallValidActions   = []string{"accept", "drop", "reject", "jump", "return", "passthrough", "log"}
	firewallValidProtocols = []string{"tcp", "udp", "icmp", "gre", "esp", "ah", "ipip", "ipsec-ah", "ipsec-esp"}
)

const firewallHighRiskChain = "input"

func init() {
	register(&Definition{
		Family:     device.FamilyFirewall,
		Validate:   validateFirewall,
		AssessRisk: assessFirewallRisk,
		Preview:    previewFirewall,
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func validatePort(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		startStr := strings.TrimSpace(parts[0])
		endStr := strings.TrimSpace(parts[1])
		start, err1 := strconv.Atoi(startStr)
		end, err2 := strconv.Atoi(endStr)
		if err1 != nil || err2 != nil {
			return false
		}
		if start < 1 || start > 65535 || end < 1 || end > 65535 {
			return false
		}
		return start <= end
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

func validateAddress(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.Contains(raw, "/") {
		_, _, err := net.ParseCIDR(raw)
		return err == nil
	}
	return net.ParseIP(raw) != nil
}

// validateFirewall mirrors validate_rule_params: it collects every problem
// found rather than failing on the first one.
func validateFirewall(op Operation, params Params) (Params, error) {
	verr := &ValidationError{}
	out := Params{}

	if op == OperationRemove {
		ruleID, _ := params["rule_id"].(string)
		if strings.TrimSpace(ruleID) == "" {
			verr.add("rule_id", "rule_id is required")
		}
		out["rule_id"] = ruleID
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	if op == OperationModify {
		ruleID, _ := params["rule_id"].(string)
		if strings.TrimSpace(ruleID) == "" {
			verr.add("rule_id", "rule_id is required")
		}
		mods, _ := params["modifications"].(map[string]any)
		if len(mods) == 0 {
			verr.add("modifications", "At least one modification field is required")
		}
		out["rule_id"] = ruleID
		out["modifications"] = mods
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	chain, _ := params["chain"].(string)
	action, _ := params["action"].(string)
	if !contains(firewallValidChains, chain) {
		verr.add("chain", "chain must be one of %s, got %q", strings.Join(firewallValidChains, ", "), chain)
	}
	if !contains(firewallValidActions, action) {
		verr.add("action", "action must be one of %s, got %q", strings.Join(firewallValidActions, ", "), action)
	}

	if srcAddr, ok := params["src_address"].(string); ok && srcAddr != "" {
		if !validateAddress(srcAddr) {
			verr.add("src_address", "src_address %q is not a valid IP address or CIDR", srcAddr)
		}
		out["src_address"] = srcAddr
	}
	if dstAddr, ok := params["dst_address"].(string); ok && dstAddr != "" {
		if !validateAddress(dstAddr) {
			verr.add("dst_address", "dst_address %q is not a valid IP address or CIDR", dstAddr)
		}
		out["dst_address"] = dstAddr
	}
	if proto, ok := params["protocol"].(string); ok && proto != "" {
		if !contains(firewallValidProtocols, proto) {
			verr.add("protocol", "protocol must be one of %s, got %q", strings.Join(firewallValidProtocols, ", "), proto)
		}
		out["protocol"] = proto
	}
	if dstPort, ok := params["dst_port"].(string); ok && dstPort != "" {
		if !validatePort(dstPort) {
			verr.add("dst_port", "dst_port %q is not a valid port or port range", dstPort)
		}
		out["dst_port"] = dstPort
	}
	if comment, ok := params["comment"].(string); ok {
		out["comment"] = comment
	}

	out["chain"] = chain
	out["action"] = action

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return out, nil
}

// assessFirewallRisk mirrors assess_risk: HIGH if chain==input, or
// action=="reject", or environment==prod; else MEDIUM.
func assessFirewallRisk(op Operation, params Params, env device.Environment) RiskLevel {
	chain, _ := params["chain"].(string)
	action, _ := params["action"].(string)

	if chain == firewallHighRiskChain {
		return RiskHigh
	}
	if action == "reject" {
		return RiskHigh
	}
	if env == device.EnvironmentProd {
		return RiskHigh
	}
	return RiskMedium
}

// previewFirewall mirrors generate_preview's firewall branch.
func previewFirewall(op Operation, d device.Device, params Params) map[string]any {
	switch op {
	case OperationAdd:
		parts := []string{
			"chain=" + str(params["chain"]),
			"action=" + str(params["action"]),
		}
		if v := str(params["src_address"]); v != "" {
			parts = append(parts, "src-address="+v)
		}
		if v := str(params["dst_address"]); v != "" {
			parts = append(parts, "dst-address="+v)
		}
		if v := str(params["protocol"]); v != "" {
			parts = append(parts, "protocol="+v)
		}
		if v := str(params["dst_port"]); v != "" {
			parts = append(parts, "dst-port="+v)
		}
		if v := str(params["comment"]); v != "" {
			parts = append(parts, "comment="+v)
		}
		return map[string]any{
			"operation":        string(op),
			"chain":            params["chain"],
			"position":         "auto",
			"rule_spec":        strings.Join(parts, " "),
			"estimated_impact": "Low - rule added to end of chain, existing connections unaffected",
		}
	case OperationModify:
		return map[string]any{
			"operation":        string(op),
			"rule_id":          params["rule_id"],
			"modifications":    params["modifications"],
			"estimated_impact": "Medium - existing rule modified, may affect active connections",
		}
	case OperationRemove:
		return map[string]any{
			"operation":        string(op),
			"rule_id":          params["rule_id"],
			"estimated_impact": "Medium - rule removal may allow previously blocked traffic",
		}
	default:
		return map[string]any{"operation": string(op)}
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
