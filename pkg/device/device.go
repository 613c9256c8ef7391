// Package device implements the Device Registry: CRUD on device records and
// the capability/environment data every other component reads to decide
// whether a tool call is allowed to proceed.
package device

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment is the deployment tier a device lives in.
type Environment string

const (
	EnvironmentLab     Environment = "lab"
	EnvironmentStaging Environment = "staging"
	EnvironmentProd    Environment = "prod"
)

// Status is the last observed health of a device.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusUnknown  Status = "unknown"
	StatusRetired  Status = "retired"
)

// Family identifies one of the write-capability gates a device exposes.
type Family string

const (
	FamilyFirewall  Family = "firewall"
	FamilyRouting   Family = "routing"
	FamilyWireless  Family = "wireless"
	FamilyDHCP      Family = "dhcp"
	FamilyBridge    Family = "bridge"
)

// Capabilities are the per-device boolean gates. All default false; each
// gates a family of write operations. Mutated only by administrative flows
// outside this core.
type Capabilities struct {
	AllowAdvancedWrites       bool `json:"allow_advanced_writes"`
	AllowProfessionalWorkflow bool `json:"allow_professional_workflows"`
	AllowFirewallWrites       bool `json:"allow_firewall_writes"`
	AllowRoutingWrites        bool `json:"allow_routing_writes"`
	AllowWirelessWrites       bool `json:"allow_wireless_writes"`
	AllowDHCPWrites           bool `json:"allow_dhcp_writes"`
	AllowBridgeWrites         bool `json:"allow_bridge_writes"`
}

// Allows reports whether the capability flag gating family is set. The
// per-family flag is authoritative; allow_advanced_writes does not imply
// any per-family flag (open question (b) in the design notes).
func (c Capabilities) Allows(f Family) bool {
	switch f {
	case FamilyFirewall:
		return c.AllowFirewallWrites
	case FamilyRouting:
		return c.AllowRoutingWrites
	case FamilyWireless:
		return c.AllowWirelessWrites
	case FamilyDHCP:
		return c.AllowDHCPWrites
	case FamilyBridge:
		return c.AllowBridgeWrites
	default:
		return false
	}
}

// Device is a managed router/switch/AP.
type Device struct {
	ID                 uuid.UUID
	Name               string
	ManagementAddress  string
	Environment        Environment
	Status             Status
	Tags               []string
	Capabilities       Capabilities
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ErrNotFound is returned when a device id has no matching row.
var ErrNotFound = errors.New("device not found")

// NormalizeEnvironment lowercases and trims an environment string, matching
// the registry's contract that environment values are always compared
// case-insensitively.
func NormalizeEnvironment(raw string) Environment {
	return Environment(strings.ToLower(strings.TrimSpace(raw)))
}

// Filter narrows list_devices results.
type Filter struct {
	Environment Environment
	Status      Status
	Tag         string
}
