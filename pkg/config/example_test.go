package config_test

import (
	"fmt"

	"github.com/wonny/stratfolio/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Margin source: %s (cache %s)\n", cfg.Margin.Source, cfg.Margin.CacheTTL)
	fmt.Printf("Monte Carlo paths: %d..%d\n", cfg.Engine.MinSimulations, cfg.Engine.MaxSimulations)
}
