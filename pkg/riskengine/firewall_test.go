package riskengine

import (
	"testing"

	"github.com/wisbric/netguard/pkg/device"
)

func TestValidatePortBoundaries(t *testing.T) {
	tests := []struct {
		port string
		want bool
	}{
		{"1", true},
		{"65535", true},
		{"1-65535", true},
		{"0", false},
		{"65536", false},
		{"9000-8000", false},
		{"", false},
		{" 80 - 90 ", true},
	}
	for _, tt := range tests {
		if got := validatePort(tt.port); got != tt.want {
			t.Errorf("validatePort(%q) = %v, want %v", tt.port, got, tt.want)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"192.168.1.0/24", true},
		{"192.168.1.5", true},
		{"invalid-ip", false},
		{"2001:db8::/32", true},
	}
	for _, tt := range tests {
		if got := validateAddress(tt.addr); got != tt.want {
			t.Errorf("validateAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestFirewallAddRiskRules(t *testing.T) {
	def, ok := Get(device.FamilyFirewall)
	if !ok {
		t.Fatal("firewall family not registered")
	}

	tests := []struct {
		name   string
		params Params
		env    device.Environment
		want   RiskLevel
	}{
		{"input chain is high", Params{"chain": "input", "action": "accept"}, device.EnvironmentLab, RiskHigh},
		{"reject action is high", Params{"chain": "forward", "action": "reject"}, device.EnvironmentLab, RiskHigh},
		{"prod is high", Params{"chain": "forward", "action": "accept"}, device.EnvironmentProd, RiskHigh},
		{"otherwise medium", Params{"chain": "forward", "action": "accept"}, device.EnvironmentLab, RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := def.AssessRisk(OperationAdd, tt.params, tt.env); got != tt.want {
				t.Errorf("AssessRisk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirewallModifyAlwaysHigh(t *testing.T) {
	def, _ := Get(device.FamilyFirewall)
	dev := device.Device{ID: mustUUID(), Name: "dev-lab-01", Environment: device.EnvironmentLab}

	_, risk, _, err := def.Assess(OperationModify, dev, Params{
		"rule_id":       "*1",
		"modifications": map[string]any{"action": "drop"},
	})
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if risk != RiskHigh {
		t.Errorf("modify risk = %v, want high", risk)
	}
}

func TestFirewallModifyRequiresModifications(t *testing.T) {
	def, _ := Get(device.FamilyFirewall)
	_, err := def.Validate(OperationModify, Params{"rule_id": "*1"})
	if err == nil {
		t.Fatal("expected validation error for missing modifications")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	found := false
	for _, fe := range verr.Errors {
		if fe.Field == "modifications" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a modifications field error, got %+v", verr.Errors)
	}
}

func TestFirewallAddPreviewRuleSpecOrdering(t *testing.T) {
	def, _ := Get(device.FamilyFirewall)
	dev := device.Device{ID: mustUUID(), Name: "dev-lab-01", Environment: device.EnvironmentLab}

	normalized, _, preview, err := def.Assess(OperationAdd, dev, Params{
		"chain":       "forward",
		"action":      "accept",
		"src_address": "192.168.1.0/24",
		"dst_port":    "443",
	})
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	_ = normalized

	ruleSpec, _ := preview["rule_spec"].(string)
	want := "chain=forward action=accept src-address=192.168.1.0/24 dst-port=443"
	if ruleSpec != want {
		t.Errorf("rule_spec = %q, want %q", ruleSpec, want)
	}
}
