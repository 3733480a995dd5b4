package mqtt

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractTemperature pulls a temperature out of the payload shapes seen on
// sensor topics: a bare number, a zigbee2mqtt object with a "temperature"
// field, or a Home Assistant object with a numeric "state" string.
func ExtractTemperature(payload []byte) (float64, bool) {
	trimmed := strings.TrimSpace(string(payload))

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return v, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return 0, false
	}

	if raw, ok := obj["temperature"]; ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
		return 0, false
	}

	if raw, ok := obj["state"]; ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return v, true
			}
		}
	}

	return 0, false
}
