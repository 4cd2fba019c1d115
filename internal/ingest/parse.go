package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts per platform (time.Parse accepts 1 or 2 digit day/month/hour)
var (
	tradeStationLayouts = []string{"2/1/2006 15:04", "2/1/2006 15:04:05"}
	multiChartsLayouts  = []string{"1/2/2006 15:04:05", "1/2/2006 15:04"}
	ninjaTraderLayouts  = []string{"2006-1-2 15:04:05", "2006-1-2 15:04"}
)

// readLines returns raw lines; header skipping counts physical lines
func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return lines, nil
}

// splitRecord splits one CSV line; quoted fields keep embedded commas
func splitRecord(line string) []string {
	reader := csv.NewReader(strings.NewReader(line))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	record, err := reader.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return record
}

// field returns the trimmed column or "" when out of range
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseTime(s string, layouts []string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, lastErr)
}

// parseAmount parses "$1,234.50", "-$40" or "(40.00)" (parentheses = negative)
func parseAmount(s string) (decimal.Decimal, error) {
	negative := strings.Contains(s, "(")

	cleaned := strings.NewReplacer("$", "", ",", "", "(", "", ")", "", " ", "").Replace(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, nil
}

// scaledProfit multiplies a parsed amount by the contract quantity (<= 0 counts as 1)
func scaledProfit(s string, quantity int) (float64, error) {
	d, err := parseAmount(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(int64(EffectiveQuantity(quantity)))).InexactFloat64(), nil
}
