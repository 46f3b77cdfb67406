package validator_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/septivank/device-activity-log/internal/validator"
)

const testMaxFieldLength = 32

func validCommand() validator.Command {
	return validator.Command{
		DeviceID:      "lamp-1",
		DeviceName:    "Desk Lamp",
		RoomID:        "office",
		RoomName:      "Office",
		State:         json.RawMessage(`true`),
		UserID:        "u1",
		UserName:      "Alex",
		EnvironmentID: "home-1",
	}
}

func TestValidateCommand_ValidData(t *testing.T) {
	v := validator.NewValidator(testMaxFieldLength)

	state, result := v.ValidateCommand(validCommand())

	if !result.IsValid {
		t.Errorf("Expected valid result, got invalid: %s", result.Reason)
	}
	if !state {
		t.Error("Expected state true")
	}
}

func TestValidateCommand_MissingRequired(t *testing.T) {
	v := validator.NewValidator(testMaxFieldLength)

	tests := []struct {
		name   string
		mutate func(*validator.Command)
		reason string
	}{
		{"device", func(c *validator.Command) { c.DeviceID = "" }, "empty device_id"},
		{"environment", func(c *validator.Command) { c.EnvironmentID = "  " }, "empty environment_id"},
		{"user", func(c *validator.Command) { c.UserID = "" }, "empty user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validCommand()
			tt.mutate(&cmd)

			_, result := v.ValidateCommand(cmd)

			if result.IsValid {
				t.Fatal("Expected invalid result")
			}
			if result.Reason != tt.reason {
				t.Errorf("Expected reason '%s', got '%s'", tt.reason, result.Reason)
			}
		})
	}
}

func TestValidateCommand_FieldTooLong(t *testing.T) {
	v := validator.NewValidator(testMaxFieldLength)
	cmd := validCommand()
	cmd.RoomName = strings.Repeat("x", testMaxFieldLength+1)

	_, result := v.ValidateCommand(cmd)

	if result.IsValid {
		t.Error("Expected invalid result for long room name")
	}
	if result.Reason != "room_name exceeds 32 characters" {
		t.Errorf("Unexpected reason '%s'", result.Reason)
	}
}

func TestValidateCommand_LengthCheckDisabled(t *testing.T) {
	v := validator.NewValidator(0)
	cmd := validCommand()
	cmd.DeviceName = strings.Repeat("x", 1000)

	if _, result := v.ValidateCommand(cmd); !result.IsValid {
		t.Errorf("Expected valid result with length check disabled, got: %s", result.Reason)
	}
}

func TestValidateCommand_InvalidState(t *testing.T) {
	v := validator.NewValidator(testMaxFieldLength)
	cmd := validCommand()
	cmd.State = json.RawMessage(`"dim"`)

	_, result := v.ValidateCommand(cmd)

	if result.IsValid {
		t.Error("Expected invalid result for unknown state")
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`"on"`, true, false},
		{`"OFF"`, false, false},
		{`"true"`, true, false},
		{`"0"`, false, false},
		{`1`, true, false},
		{`0`, false, false},
		{`2`, false, true},
		{`null`, false, true},
		{``, false, true},
		{`{"on":true}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := validator.ParseState(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
