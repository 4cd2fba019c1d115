package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/stratfolio/internal/contracts"
)

// Format tags accepted at the upload boundary
const (
	FormatTradeStation = "tradestation"
	FormatMultiCharts  = "multicharts"
	FormatNinjaTrader  = "ninjatrader"
)

var (
	// ErrUnknownFormat is returned for an unsupported format tag
	ErrUnknownFormat = errors.New("unknown trade log format")
	// ErrRead is returned when the input stream itself fails
	ErrRead = errors.New("failed to read trade log")
)

// Adapter parses one platform's trade log export into canonical trades
// ⭐ SSOT: 플랫폼별 CSV 차이는 Adapter 구현 안에서만 처리
type Adapter interface {
	// Name returns the format tag
	Name() string
	// Parse reads r and returns trades with profit scaled by quantity.
	// Malformed rows are skipped and counted, never fatal.
	Parse(r io.Reader, quantity int) (*ParseResult, error)
}

// ParseResult is the output of one Adapter.Parse call
type ParseResult struct {
	Trades  []contracts.Trade // ID and Strategy are assigned later by the normalizer
	Rows    int               // candidate trade rows seen after the header
	Skipped int               // malformed rows dropped
}

// ParsedFile pairs an upload name with its parse result
type ParsedFile struct {
	Name     string
	Quantity int
	Result   *ParseResult
}

// Formats lists supported format tags
func Formats() []string {
	return []string{FormatTradeStation, FormatMultiCharts, FormatNinjaTrader}
}

// ForFormat returns the adapter for a format tag (case-insensitive)
func ForFormat(tag string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case FormatTradeStation:
		return TradeStation{}, nil
	case FormatMultiCharts:
		return MultiCharts{}, nil
	case FormatNinjaTrader:
		return NinjaTrader{}, nil
	}
	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, tag, strings.Join(Formats(), ", "))
}

// DefaultQuantity applies when a file has no contract quantity
const DefaultQuantity = 1

// EffectiveQuantity quantity <= 0 이면 DefaultQuantity
func EffectiveQuantity(quantity int) int {
	if quantity <= 0 {
		return DefaultQuantity
	}
	return quantity
}

// ParseFile runs adapter over r and wraps the result for the normalizer.
// A missing (<= 0) quantity is resolved to DefaultQuantity before any profit is scaled.
func ParseFile(adapter Adapter, name string, r io.Reader, quantity int) (ParsedFile, error) {
	quantity = EffectiveQuantity(quantity)
	res, err := adapter.Parse(r, quantity)
	if err != nil {
		return ParsedFile{}, fmt.Errorf("parse %s as %s: %w", name, adapter.Name(), err)
	}
	return ParsedFile{Name: name, Quantity: quantity, Result: res}, nil
}
