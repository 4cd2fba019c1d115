package margin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
)

var (
	// ErrSourceUnavailable is returned when a rate source cannot produce a table
	ErrSourceUnavailable = errors.New("margin rate source unavailable")
	// ErrNoSnapshot is returned by stores holding no snapshot for a margin type
	ErrNoSnapshot = errors.New("no margin rate snapshot")
)

// RateTable maps a symbol root to its per-contract margin
type RateTable map[string]float64

// Rate returns the per-contract margin for symbol, 0 when unknown
func (t RateTable) Rate(symbol string) float64 {
	return t[strings.ToUpper(strings.TrimSpace(symbol))]
}

// Clone returns an independent copy
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns base overlaid with the entries of over
func Merge(base, over RateTable) RateTable {
	out := base.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Snapshot is one fetched rate table
type Snapshot struct {
	MarginType contracts.MarginType `json:"marginType"`
	Source     string               `json:"source"`
	Rates      RateTable            `json:"rates"`
	FetchedAt  time.Time            `json:"fetchedAt"`
}

// Fresh reports whether the snapshot is younger than ttl
func (s Snapshot) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.FetchedAt) < ttl
}

// RateProvider resolves the symbol -> margin table for a margin type
// Implementations never fail the caller; failures degrade to a fallback table.
type RateProvider interface {
	Rates(ctx context.Context, marginType contracts.MarginType) (RateTable, error)
}

// RateSource fetches a fresh table from an external system
type RateSource interface {
	Name() string
	Fetch(ctx context.Context, marginType contracts.MarginType) (RateTable, error)
}

// RateStore persists snapshots between lookups
// ⭐ SSOT: 전역 캐시 대신 주입되는 저장소
type RateStore interface {
	Load(ctx context.Context, marginType contracts.MarginType) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
