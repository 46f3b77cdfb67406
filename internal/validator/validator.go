package validator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// Command represents a device state-change command as received from the broker
type Command struct {
	DeviceID      string
	DeviceName    string
	RoomID        string
	RoomName      string
	State         json.RawMessage
	UserID        string
	UserName      string
	EnvironmentID string
}

// Validator checks ingest commands with a configurable field length limit
type Validator struct {
	maxFieldLength int
}

// NewValidator creates a new validator. A non-positive maxFieldLength disables the length check.
func NewValidator(maxFieldLength int) *Validator {
	return &Validator{maxFieldLength: maxFieldLength}
}

// ValidateCommand validates a command and returns its parsed state
func (v *Validator) ValidateCommand(cmd Command) (bool, ValidationResult) {
	result := ValidationResult{IsValid: true}

	required := []struct {
		name  string
		value string
	}{
		{"device_id", cmd.DeviceID},
		{"environment_id", cmd.EnvironmentID},
		{"user_id", cmd.UserID},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			result.IsValid = false
			result.Reason = fmt.Sprintf("empty %s", field.name)
			return false, result
		}
	}

	if v.maxFieldLength > 0 {
		fields := []struct {
			name  string
			value string
		}{
			{"device_id", cmd.DeviceID},
			{"device_name", cmd.DeviceName},
			{"room_id", cmd.RoomID},
			{"room_name", cmd.RoomName},
			{"user_id", cmd.UserID},
			{"user_name", cmd.UserName},
			{"environment_id", cmd.EnvironmentID},
		}
		for _, field := range fields {
			if len(field.value) > v.maxFieldLength {
				result.IsValid = false
				result.Reason = fmt.Sprintf("%s exceeds %d characters", field.name, v.maxFieldLength)
				return false, result
			}
		}
	}

	state, err := ParseState(cmd.State)
	if err != nil {
		result.IsValid = false
		result.Reason = fmt.Sprintf("invalid state: %v", err)
		return false, result
	}

	return state, result
}

// ParseState accepts a JSON boolean or one of the strings on/off/true/false/1/0
func ParseState(raw json.RawMessage) (bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return false, fmt.Errorf("missing state")
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return false, fmt.Errorf("unsupported state %s", string(raw))
		}
		s = n.String()
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("unsupported state %q", s)
}
