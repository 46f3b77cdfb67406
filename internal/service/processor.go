package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/septivank/device-activity-log/internal/activity"
	"github.com/septivank/device-activity-log/internal/db"
	"github.com/septivank/device-activity-log/internal/logging"
	"github.com/septivank/device-activity-log/internal/validator"
	"go.uber.org/zap"
)

// ErrInvalidCommand is returned for commands rejected by the validator
var ErrInvalidCommand = errors.New("invalid command")

// IngestMessage represents a device state-change command from RabbitMQ
type IngestMessage struct {
	RequestID     string          `json:"request_id"`
	DeviceID      string          `json:"device_id"`
	DeviceName    string          `json:"device_name"`
	RoomID        string          `json:"room_id"`
	RoomName      string          `json:"room_name"`
	State         json.RawMessage `json:"state"`
	UserID        string          `json:"user_id"`
	UserName      string          `json:"user_name"`
	EnvironmentID string          `json:"environment_id"`
}

// ActivityLogger is the append path the processor records commands into
type ActivityLogger interface {
	LogActivity(ctx context.Context, e activity.Entry) (db.Activity, error)
}

// ProcessorService turns ingest commands into logged activities
type ProcessorService struct {
	log       ActivityLogger
	validator *validator.Validator
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(log ActivityLogger, validator *validator.Validator, logger *zap.Logger) *ProcessorService {
	return &ProcessorService{
		log:       log,
		validator: validator,
		logger:    logger,
	}
}

// ProcessMessage validates one command and appends it to the activity log
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)

	state, result := s.validator.ValidateCommand(validator.Command{
		DeviceID:      msg.DeviceID,
		DeviceName:    msg.DeviceName,
		RoomID:        msg.RoomID,
		RoomName:      msg.RoomName,
		State:         msg.State,
		UserID:        msg.UserID,
		UserName:      msg.UserName,
		EnvironmentID: msg.EnvironmentID,
	})
	if !result.IsValid {
		reqLogger.Warn("rejected command",
			zap.String("reason", result.Reason),
			zap.String("device_id", msg.DeviceID),
			zap.String("environment_id", msg.EnvironmentID),
		)
		return fmt.Errorf("%w: %s", ErrInvalidCommand, result.Reason)
	}

	logged, err := s.log.LogActivity(ctx, activity.Entry{
		DeviceID:      msg.DeviceID,
		DeviceName:    msg.DeviceName,
		RoomID:        msg.RoomID,
		RoomName:      msg.RoomName,
		State:         state,
		UserID:        msg.UserID,
		UserName:      msg.UserName,
		EnvironmentID: msg.EnvironmentID,
	})
	if err != nil {
		reqLogger.Error("failed to log activity", zap.Error(err))
		return fmt.Errorf("failed to log activity: %w", err)
	}

	reqLogger.Info("activity logged",
		zap.String("activity_id", logged.ID),
		zap.String("device_id", logged.DeviceID),
		zap.Bool("state", logged.State),
		zap.String("environment_id", logged.EnvironmentID),
	)

	return nil
}
