package main

import (
	"github.com/septivank/device-activity-log/internal/config"
	"github.com/septivank/device-activity-log/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}
