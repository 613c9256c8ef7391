package riskengine

import (
	"strings"

	"github.com/wisbric/netguard/pkg/device"
)

var (
	wirelessValidSecurity = []string{"none", "wpa2-psk", "wpa3-psk"}
	wirelessValidBands    = []string{"2ghz", "5ghz"}
)

func init() {
	register(&Definition{
		Family:     device.FamilyWireless,
		Validate:   validateWireless,
		AssessRisk: assessWirelessRisk,
		Preview:    previewWireless,
	})
}

func validateWireless(op Operation, params Params) (Params, error) {
	verr := &ValidationError{}
	out := Params{}

	if op == OperationRemove {
		id, _ := params["ssid_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("ssid_id", "ssid_id is required")
		}
		out["ssid_id"] = id
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	if op == OperationModify {
		id, _ := params["ssid_id"].(string)
		if strings.TrimSpace(id) == "" {
			verr.add("ssid_id", "ssid_id is required")
		}
		mods, _ := params["modifications"].(map[string]any)
		if len(mods) == 0 {
			verr.add("modifications", "At least one modification field is required")
		}
		out["ssid_id"] = id
		out["modifications"] = mods
		if len(verr.Errors) > 0 {
			return nil, verr
		}
		return out, nil
	}

	ssid, _ := params["ssid"].(string)
	if len(ssid) < 1 || len(ssid) > 32 {
		verr.add("ssid", "ssid must be 1-32 bytes, got %d", len(ssid))
	}
	security, _ := params["security"].(string)
	if !contains(wirelessValidSecurity, security) {
		verr.add("security", "security must be one of %s, got %q", strings.Join(wirelessValidSecurity, ", "), security)
	}
	band, _ := params["band"].(string)
	if !contains(wirelessValidBands, band) {
		verr.add("band", "band must be one of %s, got %q", strings.Join(wirelessValidBands, ", "), band)
	}

	out["ssid"] = ssid
	out["security"] = security
	out["band"] = band

	if len(verr.Errors) > 0 {
		return nil, verr
	}
	return out, nil
}

func assessWirelessRisk(op Operation, params Params, env device.Environment) RiskLevel {
	security, _ := params["security"].(string)
	if security == "none" {
		return RiskHigh
	}
	if env == device.EnvironmentProd {
		return RiskHigh
	}
	return RiskMedium
}

func previewWireless(op Operation, d device.Device, params Params) map[string]any {
	switch op {
	case OperationAdd:
		return map[string]any{
			"operation":        string(op),
			"ssid":             params["ssid"],
			"security":         params["security"],
			"band":             params["band"],
			"estimated_impact": "Low - new SSID broadcast added, existing SSIDs unaffected",
		}
	case OperationModify:
		return map[string]any{
			"operation":        string(op),
			"ssid_id":          params["ssid_id"],
			"modifications":    params["modifications"],
			"estimated_impact": "Medium - existing SSID modified, associated clients may be disconnected",
		}
	case OperationRemove:
		return map[string]any{
			"operation":        string(op),
			"ssid_id":          params["ssid_id"],
			"estimated_impact": "Medium - SSID removal disconnects all associated clients",
		}
	default:
		return map[string]any{"operation": string(op)}
	}
}
