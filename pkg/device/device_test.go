package device

import "testing"

func TestCapabilitiesAllows(t *testing.T) {
	c := Capabilities{AllowFirewallWrites: true, AllowAdvancedWrites: true}

	tests := []struct {
		family Family
		want   bool
	}{
		{FamilyFirewall, true},
		{FamilyRouting, false},
		{FamilyWireless, false},
		{FamilyDHCP, false},
		{FamilyBridge, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			if got := c.Allows(tt.family); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.family, got, tt.want)
			}
		})
	}
}

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		in   string
		want Environment
	}{
		{"Prod", EnvironmentProd},
		{"  LAB ", EnvironmentLab},
		{"staging", EnvironmentStaging},
		{"", Environment("")},
	}

	for _, tt := range tests {
		if got := NormalizeEnvironment(tt.in); got != tt.want {
			t.Errorf("NormalizeEnvironment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
