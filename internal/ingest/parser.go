package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

// Record is one parsed load-curve row.
type Record struct {
	Row         int // 1-based over data rows, header excluded
	PodCode     string
	Timestamp   time.Time
	ConsumedKwh decimal.Decimal
	ProducedKwh decimal.Decimal
}

// RowIssue reports why one row was dropped.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

var (
	podAliases        = []string{"pod", "pod_code", "meteringpoint", "metering_point", "pointofdelivery"}
	timestampAliases  = []string{"timestamp", "ts", "datetime", "date_time", "reading_time"}
	consumedAliases   = []string{"consumption_kwh", "consumption", "consumed_kwh", "energy_consumed"}
	producedAliases   = []string{"production_kwh", "production", "produced_kwh", "energy_produced"}
	timestampsLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
)

type columnMap struct {
	pod       int
	timestamp int
	consumed  int
	produced  int // -1 when the column is absent
}

// ParseCSV reads a header-driven load-curve file. Malformed rows are dropped
// with a per-row diagnostic; only an unreadable header or input stream is a
// hard failure.
func ParseCSV(r io.Reader) ([]Record, []RowIssue, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable load curve input")
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []Record
		issues  []RowIssue
		row     int
	)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			issues = append(issues, RowIssue{Row: row, Reason: err.Error()})
			continue
		}
		record, issue := parseRow(row, fields, columns)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}
		records = append(records, record)
	}
	return records, issues, nil
}

func mapColumns(header []string) (columnMap, error) {
	columns := columnMap{pod: -1, timestamp: -1, consumed: -1, produced: -1}
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		switch {
		case columns.pod < 0 && matchesAlias(normalized, podAliases):
			columns.pod = i
		case columns.timestamp < 0 && matchesAlias(normalized, timestampAliases):
			columns.timestamp = i
		case columns.consumed < 0 && matchesAlias(normalized, consumedAliases):
			columns.consumed = i
		case columns.produced < 0 && matchesAlias(normalized, producedAliases):
			columns.produced = i
		}
	}
	if columns.pod < 0 {
		return columns, pkgerrors.New(pkgerrors.CodeValidation, "no point-of-delivery column in header")
	}
	if columns.timestamp < 0 {
		return columns, pkgerrors.New(pkgerrors.CodeValidation, "no timestamp column in header")
	}
	if columns.consumed < 0 {
		return columns, pkgerrors.New(pkgerrors.CodeValidation, "no consumption column in header")
	}
	return columns, nil
}

func matchesAlias(name string, aliases []string) bool {
	for _, alias := range aliases {
		if name == alias {
			return true
		}
	}
	return false
}

func parseRow(row int, fields []string, columns columnMap) (Record, *RowIssue) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	pod := get(columns.pod)
	if pod == "" {
		return Record{}, &RowIssue{Row: row, Reason: "missing point-of-delivery code"}
	}

	rawTS := get(columns.timestamp)
	ts, ok := parseTimestamp(rawTS)
	if !ok {
		return Record{}, &RowIssue{Row: row, Reason: fmt.Sprintf("unparsable timestamp %q", rawTS)}
	}

	consumed, issue := parseEnergy(row, "consumption", get(columns.consumed))
	if issue != nil {
		return Record{}, issue
	}

	produced := decimal.Zero
	if columns.produced >= 0 && get(columns.produced) != "" {
		produced, issue = parseEnergy(row, "production", get(columns.produced))
		if issue != nil {
			return Record{}, issue
		}
	}

	return Record{
		Row:         row,
		PodCode:     strings.ToUpper(pod),
		Timestamp:   ts.UTC(),
		ConsumedKwh: consumed,
		ProducedKwh: produced,
	}, nil
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampsLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseEnergy(row int, kind, value string) (decimal.Decimal, *RowIssue) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &RowIssue{Row: row, Reason: fmt.Sprintf("unparsable %s value %q", kind, value)}
	}
	if parsed.IsNegative() {
		return decimal.Zero, &RowIssue{Row: row, Reason: fmt.Sprintf("negative %s value %q", kind, value)}
	}
	return parsed, nil
}
