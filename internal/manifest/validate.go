package manifest

import (
	"fmt"
	"strings"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/internal/risk"
)

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the manifest; empty option fields mean "use the default"
func Validate(m *Manifest) error {
	// === Input ===
	if strings.TrimSpace(m.Format) != "" {
		if _, err := ingest.ForFormat(m.Format); err != nil {
			return ValidationError{"format", fmt.Sprintf("must be one of %s", strings.Join(ingest.Formats(), ", "))}
		}
	}
	if len(m.Files) == 0 {
		return ValidationError{"files", "at least one file is required"}
	}
	for i, f := range m.Files {
		if strings.TrimSpace(f.Path) == "" {
			return ValidationError{fmt.Sprintf("files[%d].path", i), "required"}
		}
		if f.Quantity < 0 {
			return ValidationError{fmt.Sprintf("files[%d].quantity", i), "must be >= 0"}
		}
	}

	// === Options ===
	if _, ok := contracts.ParseMarginType(m.MarginType, contracts.MarginOvernight); !ok {
		return ValidationError{"margin_type", "must be intraday or overnight"}
	}
	if strings.TrimSpace(m.Correlation) != "" {
		if _, err := correlation.ParseMethod(m.Correlation); err != nil {
			return ValidationError{"correlation", "must be pearson or spearman"}
		}
	}
	r, err := m.Range()
	if err != nil {
		return ValidationError{"period", err.Error()}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return ValidationError{"period", "from must not be after to"}
	}

	// === Risk ===
	if m.MonteCarlo.Simulations < 0 {
		return ValidationError{"montecarlo.simulations", "must be >= 0"}
	}
	if _, err := risk.ParseTimeframe(m.MonteCarlo.Timeframe); err != nil {
		return ValidationError{"montecarlo.timeframe", err.Error()}
	}
	if _, err := risk.ParseMethod(m.MonteCarlo.Method); err != nil {
		return ValidationError{"montecarlo.method", err.Error()}
	}
	if m.Stress.RemovalPct != 0 && (m.Stress.RemovalPct < 1 || m.Stress.RemovalPct > 20) {
		return ValidationError{"stress.removal_pct", "must be in [1, 20]"}
	}

	return nil
}
