package orchestrator

import (
	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/internal/risk"
	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/logger"
)

// NewFromConfig wires every engine from configuration
// rates nil = static fallback tables only
func NewFromConfig(cfg *config.Config, rates margin.RateProvider, log *logger.Logger) *Orchestrator {
	if rates == nil {
		rates = margin.StaticProvider{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	limits := risk.DefaultLimits()
	defaults := Defaults{MonteCarlo: risk.DefaultMonteCarloConfig()}
	maxPoints := 0
	if cfg != nil {
		if cfg.Engine.MinSimulations > 0 {
			limits.MinSimulations = cfg.Engine.MinSimulations
		}
		if cfg.Engine.MaxSimulations > 0 {
			limits.MaxSimulations = cfg.Engine.MaxSimulations
		}
		maxPoints = cfg.Engine.MaxMarginPoints
		if cfg.Engine.StartingCapital > 0 {
			defaults.MonteCarlo.StartingCapital = cfg.Engine.StartingCapital
		}
		defaults.MonteCarlo.Workers = cfg.Engine.Workers
		defaults.MarginType = contracts.MarginType(cfg.Engine.DefaultMarginType)
		if m, err := correlation.ParseMethod(cfg.Engine.CorrelationMethod); err == nil {
			defaults.CorrelationMethod = m
		}
	}

	return New(
		portfolio.NewNormalizer(log.WithComponent("normalizer")),
		portfolio.NewBuilder(rates, margin.NewEngine(maxPoints), log.WithComponent("builder")),
		risk.NewMonteCarloSimulator(limits, log.WithComponent("montecarlo")),
		risk.NewStressTester(log.WithComponent("stress")),
		rates,
		defaults,
		log,
	)
}
