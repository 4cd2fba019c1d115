package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/internal/risk"
)

const sample = `name: futures-book
format: tradestation
margin_type: intraday
correlation: spearman
period:
  from: 2024-01-01
  to: 2024-06-30
files:
  - path: logs/es-breakout.txt
    quantity: 2
  - path: /data/nq-trend.txt
montecarlo:
  simulations: 500
  timeframe: 2y
  method: parametric
  seed: 7
stress:
  removal_pct: 5
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, sample)

	m, raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sample, string(raw))

	assert.Equal(t, "futures-book", m.Name)
	require.Len(t, m.Files, 2)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "logs", "es-breakout.txt"), m.Files[0].Path)
	assert.Equal(t, "/data/nq-trend.txt", m.Files[1].Path)
	assert.Equal(t, 2, m.Files[0].Quantity)

	r, err := m.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.True(t, r.Contains(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)))

	// 동일 설정 → 동일 해시
	h1, err := Hash(m)
	require.NoError(t, err)
	h2, _ := Hash(m)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)

	m.Files[0].Quantity = 3
	h3, _ := Hash(m)
	assert.NotEqual(t, h1, h3)
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeManifest(t, "format: tradestation\nfiles:\n  - path: a.txt\nmargn_type: intraday\n")
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no files", "format: tradestation\n", "files"},
		{"bad format", "format: metatrader\nfiles:\n  - path: a\n", "format"},
		{"empty path", "files:\n  - quantity: 1\n", "files[0].path"},
		{"negative qty", "files:\n  - path: a\n    quantity: -1\n", "files[0].quantity"},
		{"bad margin", "margin_type: weekly\nfiles:\n  - path: a\n", "margin_type"},
		{"bad correlation", "correlation: kendall\nfiles:\n  - path: a\n", "correlation"},
		{"bad period", "period:\n  from: 03/01/2024\nfiles:\n  - path: a\n", "period"},
		{"inverted period", "period:\n  from: 2024-03-01\n  to: 2024-01-01\nfiles:\n  - path: a\n", "period"},
		{"bad timeframe", "montecarlo:\n  timeframe: 3y\nfiles:\n  - path: a\n", "montecarlo.timeframe"},
		{"bad method", "montecarlo:\n  method: garch\nfiles:\n  - path: a\n", "montecarlo.method"},
		{"bad removal", "stress:\n  removal_pct: 25\nfiles:\n  - path: a\n", "stress.removal_pct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParse_Minimal(t *testing.T) {
	m, err := Parse([]byte("files:\n  - path: a.csv\n"))
	require.NoError(t, err)
	assert.Equal(t, "a.csv", m.Files[0].Path, "Parse does not resolve paths")

	r, err := m.Range()
	require.NoError(t, err)
	assert.True(t, r.IsOpen())
}

func TestMonteCarloConfig(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	cfg, err := m.MonteCarloConfig(risk.DefaultMonteCarloConfig())
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.NumSimulations)
	assert.Equal(t, risk.Timeframe2Y, cfg.Timeframe)
	assert.Equal(t, risk.MethodParametric, cfg.Method)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 100000.0, cfg.StartingCapital)

	empty, err := Parse([]byte("files:\n  - path: a.csv\n"))
	require.NoError(t, err)
	cfg, err = empty.MonteCarloConfig(risk.DefaultMonteCarloConfig())
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultMonteCarloConfig(), cfg)
}
