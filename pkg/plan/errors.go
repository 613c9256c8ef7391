package plan

import (
	"fmt"

	"github.com/google/uuid"
)

// CapabilityNotAllowed is raised when a target device lacks the capability
// flag a tool family requires. No plan is created.
type CapabilityNotAllowed struct {
	DeviceID            uuid.UUID
	RequiredCapability  string
	CurrentValue        bool
	AllowedEnvironments []string
}

func (e *CapabilityNotAllowed) Error() string {
	return fmt.Sprintf("device %s: %s capability required, got %v", e.DeviceID, e.RequiredCapability, e.CurrentValue)
}

// EnvironmentNotAllowed is raised when a device's environment blocks the
// requested write family (e.g. prod writes denied by default).
type EnvironmentNotAllowed struct {
	DeviceID            uuid.UUID
	DeviceEnvironment   string
	AllowedEnvironments []string
	Operation           string
}

func (e *EnvironmentNotAllowed) Error() string {
	return fmt.Sprintf("device %s: %s environment not allowed for %s, only allowed in %v",
		e.DeviceID, e.DeviceEnvironment, e.Operation, e.AllowedEnvironments)
}

// Token validation error kinds returned by ValidateApprovalToken.
var (
	ErrTokenMissing     = fmt.Errorf("plan has no active approval token")
	ErrTokenMismatch    = fmt.Errorf("approval token does not match")
	ErrTokenExpired     = fmt.Errorf("approval token has expired")
	ErrPlanNotApplicable = fmt.Errorf("plan status does not accept an approval token")
)
