package portfolio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/pkg/logger"
)

var (
	// ErrNoFiles is returned when no trade logs were supplied
	ErrNoFiles = errors.New("no trade log files provided")
	// ErrNoTrades is returned when every supplied file yielded zero trades
	ErrNoTrades = errors.New("no valid trades found in any file")
)

// Normalizer builds Strategy records from parsed trade logs
// ⭐ SSOT: Trade.ID 발급은 Normalizer 에서만
type Normalizer struct {
	logger *logger.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{logger: log}
}

// Normalize is the package-level shortcut using a silent logger
func Normalize(files []ingest.ParsedFile) ([]contracts.Strategy, []contracts.FileWarning, error) {
	return NewNormalizer(nil).Normalize(files)
}

// Normalize converts each parsed file into a Strategy.
// Files with zero trades become warnings; the batch fails only when all files are empty.
func (n *Normalizer) Normalize(files []ingest.ParsedFile) ([]contracts.Strategy, []contracts.FileWarning, error) {
	if len(files) == 0 {
		return nil, nil, ErrNoFiles
	}

	strategies := make([]contracts.Strategy, 0, len(files))
	var warnings []contracts.FileWarning
	var nextID uint64 = 1

	for _, f := range files {
		name := StrategyName(f.Name)

		var trades []contracts.Trade
		skipped := 0
		if f.Result != nil {
			trades = f.Result.Trades
			skipped = f.Result.Skipped
		}

		if len(trades) == 0 {
			reason := "no valid trades found"
			if skipped > 0 {
				reason = fmt.Sprintf("no valid trades found (%d malformed rows skipped)", skipped)
			}
			warnings = append(warnings, contracts.FileWarning{File: f.Name, Reason: reason})
			n.logger.WithFields(map[string]interface{}{
				"file":    f.Name,
				"skipped": skipped,
			}).Warn("Trade log yielded no trades, excluded")
			continue
		}

		if skipped > 0 {
			warnings = append(warnings, contracts.FileWarning{
				File:   f.Name,
				Reason: fmt.Sprintf("%d malformed rows skipped", skipped),
			})
		}

		owned := contracts.CloneTrades(trades)
		if !contracts.IsSortedByExitTime(owned) {
			contracts.SortByExitTime(owned)
		}
		for i := range owned {
			owned[i].ID = nextID
			owned[i].Strategy = name
			nextID++
		}

		strategies = append(strategies, NewStrategy(name, SymbolFromName(name), f.Quantity, owned))
	}

	if len(strategies) == 0 {
		return nil, warnings, ErrNoTrades
	}

	n.logger.WithFields(map[string]interface{}{
		"files":      len(files),
		"strategies": len(strategies),
		"trades":     nextID - 1,
		"warnings":   len(warnings),
	}).Info("Trade logs normalized")

	return strategies, warnings, nil
}

// NewStrategy builds a Strategy over exit-time ordered trades
// quantity <= 0 defaults to 1
func NewStrategy(name, symbol string, quantity int, trades []contracts.Trade) contracts.Strategy {
	if quantity <= 0 {
		quantity = 1
	}
	equity := EquityCurve(trades)

	return contracts.Strategy{
		Name:      name,
		Symbol:    symbol,
		Quantity:  quantity,
		Trades:    trades,
		Equity:    equity,
		NetProfit: lastOrZero(equity),
	}
}

// StrategyName returns the file base name without extension
func StrategyName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// SymbolFromName returns the upper-cased prefix before the first "-"
// "es-breakout" -> "ES"
func SymbolFromName(name string) string {
	prefix, _, _ := strings.Cut(name, "-")
	return strings.ToUpper(strings.TrimSpace(prefix))
}

func lastOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// HasUniqueIDs reports whether every trade carries a distinct non-zero ID
func HasUniqueIDs(strategies []contracts.Strategy) bool {
	seen := make(map[uint64]struct{})
	for _, s := range strategies {
		for _, t := range s.Trades {
			if t.ID == 0 {
				return false
			}
			if _, dup := seen[t.ID]; dup {
				return false
			}
			seen[t.ID] = struct{}{}
		}
	}
	return true
}

// AssignIDs returns copies of strategies with IDs renumbered from 1 in strategy order.
// Used for portfolios sent back by clients that dropped or duplicated IDs.
func AssignIDs(strategies []contracts.Strategy) []contracts.Strategy {
	out := make([]contracts.Strategy, len(strategies))
	var nextID uint64 = 1
	for i, s := range strategies {
		trades := contracts.CloneTrades(s.Trades)
		for j := range trades {
			trades[j].ID = nextID
			trades[j].Strategy = s.Name
			nextID++
		}
		out[i] = NewStrategy(s.Name, s.Symbol, s.Quantity, trades)
	}
	return out
}
