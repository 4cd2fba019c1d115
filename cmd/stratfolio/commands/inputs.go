package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/manifest"
	"github.com/wonny/stratfolio/internal/orchestrator"
	"github.com/wonny/stratfolio/internal/portfolio"
)

// inputFlags are shared by every command that builds a portfolio
type inputFlags struct {
	format       string
	files        []string
	quantities   []int
	manifestPath string
	from         string
	to           string
	marginType   string
	correlation  string
	jsonOut      bool
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "trade log format (tradestation|multicharts|ninjatrader)")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "trade log path (repeatable)")
	cmd.Flags().IntSliceVar(&f.quantities, "qty", nil, "contracts per file, in --file order (default 1)")
	cmd.Flags().StringVar(&f.manifestPath, "manifest", "", "YAML run manifest (replaces --file/--qty/--format)")
	cmd.Flags().StringVar(&f.from, "from", "", "exit-time start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "exit-time end, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.marginType, "margin-type", "", "intraday|overnight")
	cmd.Flags().StringVar(&f.correlation, "correlation", "", "pearson|spearman")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print JSON instead of a summary")
}

// loadedInput is the resolved run definition
type loadedInput struct {
	manifest *manifest.Manifest // nil without --manifest
	request  orchestrator.ProcessRequest
	period   portfolio.DateRange
	closers  []*os.File
}

func (l *loadedInput) Close() {
	for _, f := range l.closers {
		f.Close()
	}
}

// load resolves flags (or the manifest) into an orchestrator request; flags win over manifest fields
func (f *inputFlags) load() (*loadedInput, error) {
	in := &loadedInput{}

	format, marginType, corr, from, to := f.format, f.marginType, f.correlation, f.from, f.to
	type fileSpec struct {
		path string
		qty  int
	}
	var specs []fileSpec

	if f.manifestPath != "" {
		m, _, err := manifest.Load(f.manifestPath)
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		in.manifest = m
		format = firstNonEmpty(format, m.Format)
		marginType = firstNonEmpty(marginType, m.MarginType)
		corr = firstNonEmpty(corr, m.Correlation)
		from = firstNonEmpty(from, m.Period.From)
		to = firstNonEmpty(to, m.Period.To)
		for _, mf := range m.Files {
			specs = append(specs, fileSpec{mf.Path, mf.Quantity})
		}
	}

	for i, path := range f.files {
		qty := 0
		if i < len(f.quantities) {
			qty = f.quantities[i]
		}
		specs = append(specs, fileSpec{path, qty})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no input: pass --file or --manifest")
	}

	period, err := portfolio.ParseDateRange(from, to)
	if err != nil {
		return nil, err
	}
	in.period = period

	uploads := make([]orchestrator.Upload, 0, len(specs))
	for _, s := range specs {
		fh, err := os.Open(s.path)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.closers = append(in.closers, fh)
		uploads = append(uploads, orchestrator.Upload{Name: filepath.Base(s.path), Quantity: s.qty, Body: fh})
	}

	in.request = orchestrator.ProcessRequest{
		Format:            format,
		Files:             uploads,
		MarginType:        marginType,
		CorrelationMethod: corr,
	}
	return in, nil
}

// buildPortfolio processes the inputs and applies the period filter
func buildPortfolio(ctx context.Context, a *app, f *inputFlags) (*contracts.PortfolioData, *loadedInput, error) {
	in, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	data, err := a.orch.Process(ctx, in.request)
	if err != nil {
		return nil, in, err
	}

	if !in.period.IsOpen() {
		data, err = a.orch.Filter(ctx, orchestrator.FilterRequest{Data: data, Range: in.period})
		if err != nil {
			return nil, in, err
		}
	}
	return data, in, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
