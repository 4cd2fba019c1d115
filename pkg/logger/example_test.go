package logger_test

import (
	"errors"

	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Portfolio analysis started")
	log.Warnf("File %s yielded no trades", "ES-breakout.csv")
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithComponent("stress")

	log.WithFields(map[string]interface{}{
		"removal_pct":   5,
		"removed_count": 12,
	}).Info("Stress test completed")

	log.WithError(errors.New("table not found")).Warn("Margin scrape failed")
}
