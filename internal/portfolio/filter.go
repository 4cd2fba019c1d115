package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
)

// DateRange is an inclusive exit-time window; zero bounds are open
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// dateOnlyLayout bounds without a clock component
const dateOnlyLayout = "2006-01-02"

var boundLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDateRange parses ISO bounds; empty strings leave the bound open.
// A date-only end bound covers that whole day.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if r.From, err = parseBound(from, false); err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	if r.To, err = parseBound(to, true); err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	return r, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(dateOnlyLayout, s); err == nil {
		if endOfDay {
			return d.Add(24*time.Hour - time.Nanosecond), nil
		}
		return d, nil
	}
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// IsOpen reports a range with no bounds
func (r DateRange) IsOpen() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// FilterByDate keeps trades whose exit time is inside r.
// Strategies left without trades are dropped; equity is rebuilt from the kept trades.
func FilterByDate(strategies []contracts.Strategy, r DateRange) []contracts.Strategy {
	out := make([]contracts.Strategy, 0, len(strategies))
	for _, s := range strategies {
		kept := make([]contracts.Trade, 0, len(s.Trades))
		for _, t := range s.Trades {
			if r.Contains(t.ExitTime) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, NewStrategy(s.Name, s.Symbol, s.Quantity, kept))
	}
	return out
}

// RemoveTrades drops trades whose ID is in ids from every strategy.
// Strategies keep their slot even when emptied so margin indexes stay aligned.
func RemoveTrades(strategies []contracts.Strategy, ids map[uint64]struct{}) []contracts.Strategy {
	out := make([]contracts.Strategy, len(strategies))
	for i, s := range strategies {
		kept := make([]contracts.Trade, 0, len(s.Trades))
		for _, t := range s.Trades {
			if _, drop := ids[t.ID]; !drop {
				kept = append(kept, t)
			}
		}
		out[i] = NewStrategy(s.Name, s.Symbol, s.Quantity, kept)
	}
	return out
}
