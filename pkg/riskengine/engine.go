// Package riskengine implements the Risk & Preview Engine: per-tool-family
// parameter validation, risk classification, and human-readable preview
// generation. A single generic skeleton (Definition) is parameterized by a
// validator, a risk assessor, and a preview generator, so
// firewall/routing/wireless/dhcp/bridge share one engine instead of
// duplicating the plan-creation code path five times.
package riskengine

import (
	"fmt"
	"strings"

	"github.com/wisbric/netguard/pkg/device"
)

// Operation is one of the three shapes every tool family supports.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationModify Operation = "modify"
	OperationRemove Operation = "remove"
)

// RiskLevel classifies the blast radius of a change.
type RiskLevel string

const (
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FieldError is one failed validation rule, field-addressable so the
// ValidationError surfaced to the caller can list every problem at once —
// the validator never stops at the first error.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates every FieldError found while validating one
// request. It satisfies error; Error() joins all messages with "\n- ".
type ValidationError struct {
	Errors []FieldError
}

func (v *ValidationError) Error() string {
	if len(v.Errors) == 0 {
		return "validation error"
	}
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.Message
	}
	return "validation failed:\n- " + strings.Join(msgs, "\n- ")
}

func (v *ValidationError) add(field, format string, args ...any) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Params is the tagged-variant payload for one tool call: the concrete
// fields depend on (family, operation), type-checked by each family's
// Validate function and persisted as a JSON blob.
type Params map[string]any

// Preview is the full per-device preview record shape. The plan handler
// does not use it: its _meta.devices[] entries carry the device id and the
// detail map returned by Definition.Preview.
type Preview struct {
	DeviceID       string         `json:"device_id"`
	Name           string         `json:"name"`
	Environment    string         `json:"environment"`
	Operation      Operation      `json:"operation"`
	PreCheckStatus string         `json:"pre_check_status"`
	Detail         map[string]any `json:"preview"`
}

// Definition is the generic per-family skeleton: validate, assess risk, and
// render a preview. Apply-time hooks (snapshot/mutate/inverse) live
// alongside this in pkg/apply, keyed by the same device.Family.
type Definition struct {
	Family device.Family

	// Validate normalizes and checks params for one operation, returning
	// either a normalized copy (ordering/defaults applied) or a
	// *ValidationError collecting every problem found.
	Validate func(op Operation, params Params) (Params, error)

	// AssessRisk classifies the change. Modify/Remove are forced to
	// RiskHigh by Engine.Assess regardless of what this returns — family
	// assessors only need to handle Add's nuance.
	AssessRisk func(op Operation, params Params, env device.Environment) RiskLevel

	// Preview renders the per-device structured preview for Add/Modify/Remove.
	Preview func(op Operation, d device.Device, params Params) map[string]any
}

// registry maps each tool family to its Definition. Populated by each
// family's init().
var registry = map[device.Family]*Definition{}

// register is called by each family file's init().
func register(def *Definition) {
	registry[def.Family] = def
}

// Get returns the Definition for family, or false if the family is unknown.
func Get(family device.Family) (*Definition, bool) {
	def, ok := registry[family]
	return def, ok
}

// Assess runs the full plan-time pipeline for one device: validate, then
// classify risk (forcing Modify/Remove to high), then render the preview.
func (d *Definition) Assess(op Operation, dev device.Device, params Params) (Params, RiskLevel, map[string]any, error) {
	normalized, err := d.Validate(op, params)
	if err != nil {
		return nil, "", nil, err
	}

	risk := RiskHigh
	if op == OperationAdd {
		risk = d.AssessRisk(op, normalized, dev.Environment)
	}

	preview := d.Preview(op, dev, normalized)
	return normalized, risk, preview, nil
}
