package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/internal/risk"
)

// Manifest 분석 실행 정의 (파일 목록 + 옵션)
type Manifest struct {
	Name        string     `yaml:"name" json:"name"`
	Format      string     `yaml:"format" json:"format"`
	MarginType  string     `yaml:"margin_type" json:"margin_type"`
	Correlation string     `yaml:"correlation" json:"correlation"`
	Period      Period     `yaml:"period" json:"period"`
	Files       []File     `yaml:"files" json:"files"`
	MonteCarlo  MonteCarlo `yaml:"montecarlo" json:"montecarlo"`
	Stress      Stress     `yaml:"stress" json:"stress"`
}

// File one trade log; relative paths resolve against the manifest directory
type File struct {
	Path     string `yaml:"path" json:"path"`
	Quantity int    `yaml:"quantity" json:"quantity"`
}

// Period optional exit-time window (YYYY-MM-DD or RFC3339)
type Period struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// MonteCarlo 시뮬레이션 옵션 (0 / 빈 값은 기본값)
type MonteCarlo struct {
	Simulations int    `yaml:"simulations" json:"simulations"`
	Timeframe   string `yaml:"timeframe" json:"timeframe"`
	Method      string `yaml:"method" json:"method"`
	Seed        int64  `yaml:"seed" json:"seed"`
}

// Stress 스트레스 테스트 옵션
type Stress struct {
	RemovalPct float64 `yaml:"removal_pct" json:"removal_pct"`
}

// Load reads a YAML manifest and returns it with the raw bytes
// 알 수 없는 필드는 즉시 실패 (KnownFields)
func Load(path string) (*Manifest, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	m, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	m.resolve(filepath.Dir(path))

	return m, data, nil
}

// Parse decodes and validates manifest bytes without touching file paths
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Hash generates SHA256 hash from the manifest (canonical JSON)
func Hash(m *Manifest) (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Range returns the parsed period
func (m *Manifest) Range() (portfolio.DateRange, error) {
	return portfolio.ParseDateRange(m.Period.From, m.Period.To)
}

func (m *Manifest) resolve(dir string) {
	for i, f := range m.Files {
		if !filepath.IsAbs(f.Path) {
			m.Files[i].Path = filepath.Join(dir, f.Path)
		}
	}
}

// MonteCarloConfig overlays the manifest's Monte Carlo options onto def
func (m *Manifest) MonteCarloConfig(def risk.MonteCarloConfig) (risk.MonteCarloConfig, error) {
	cfg := def
	if m.MonteCarlo.Simulations > 0 {
		cfg.NumSimulations = m.MonteCarlo.Simulations
	}
	if m.MonteCarlo.Timeframe != "" {
		tf, err := risk.ParseTimeframe(m.MonteCarlo.Timeframe)
		if err != nil {
			return def, err
		}
		cfg.Timeframe = tf
	}
	if m.MonteCarlo.Method != "" {
		method, err := risk.ParseMethod(m.MonteCarlo.Method)
		if err != nil {
			return def, err
		}
		cfg.Method = method
	}
	if m.MonteCarlo.Seed != 0 {
		cfg.Seed = m.MonteCarlo.Seed
	}
	return cfg, nil
}
