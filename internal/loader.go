package internal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

type FieldType int

const (
	Integer FieldType = iota
	String
)

func (t FieldType) String() string {
	if t == Integer {
		return "integer"
	}
	return "string"
}

// Schema declares the typed columns of a flat file. TimestampField names
// the integer column holding epoch seconds.
type Schema struct {
	Fields         map[string]FieldType
	TimestampField string
}

var ClientSchema = Schema{
	Fields: map[string]FieldType{
		"timestamp":   Integer,
		"error_id":    String,
		"player_id":   Integer,
		"description": String,
	},
	TimestampField: "timestamp",
}

var ServerSchema = Schema{
	Fields: map[string]FieldType{
		"timestamp":   Integer,
		"event_id":    Integer,
		"error_id":    String,
		"description": String,
	},
	TimestampField: "timestamp",
}

// Row is one parsed record. Values are int64 for Integer fields and
// string for String fields.
type Row map[string]any

func (r Row) Int(field string) int64 {
	v, _ := r[field].(int64)
	return v
}

func (r Row) Str(field string) string {
	v, _ := r[field].(string)
	return v
}

type column struct {
	name      string
	index     int
	fieldType FieldType
}

// RecordLoader reads flat files and keeps the rows of one calendar day.
type RecordLoader struct {
	location *time.Location
}

// NewRecordLoader returns a loader that converts timestamps to dates in loc.
// A nil loc means UTC.
func NewRecordLoader(loc *time.Location) *RecordLoader {
	if loc == nil {
		loc = time.UTC
	}
	return &RecordLoader{location: loc}
}

// Load parses every row of source according to schema and returns the rows
// whose timestamp falls on date. Any row that cannot be coerced aborts the
// load with ErrSchemaMismatch, even if it belongs to another day.
func (l *RecordLoader) Load(date time.Time, source io.Reader, schema Schema) ([]Row, error) {
	if t, ok := schema.Fields[schema.TimestampField]; !ok || t != Integer {
		return nil, fmt.Errorf("timestamp field %q must be declared as integer: %w", schema.TimestampField, db.ErrSchemaMismatch)
	}

	reader := csv.NewReader(source)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row: %w", db.ErrSchemaMismatch)
		}
		return nil, readError("failed to read header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	// declared columns in header order, so coercion errors are reported
	// for the leftmost bad cell
	var columns []column
	seen := make(map[string]bool, len(schema.Fields))
	for i, name := range header {
		if fieldType, declared := schema.Fields[name]; declared && !seen[name] {
			seen[name] = true
			columns = append(columns, column{name: name, index: i, fieldType: fieldType})
		}
	}
	for _, name := range slices.Sorted(maps.Keys(schema.Fields)) {
		if !seen[name] {
			return nil, fmt.Errorf("missing column %q: %w", name, db.ErrSchemaMismatch)
		}
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError("failed to read row", err)
		}
		line, _ := reader.FieldPos(0)

		row := make(Row, len(columns))
		for _, col := range columns {
			raw := record[col.index]
			if col.fieldType == String {
				row[col.name] = raw
				continue
			}
			v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: field %q: cannot coerce %q to %s: %w", line, col.name, raw, col.fieldType, db.ErrSchemaMismatch)
			}
			row[col.name] = v
		}

		if sameDay(time.Unix(row.Int(schema.TimestampField), 0).In(l.location), date) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// LoadFile opens path and loads it like Load.
func (l *RecordLoader) LoadFile(date time.Time, path string, schema Schema) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w: %w", path, db.ErrSourceUnavailable, err)
	}
	defer f.Close()

	rows, err := l.Load(date, f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func (l *RecordLoader) LoadClientEvents(date time.Time, path string) ([]db.ClientEvent, error) {
	rows, err := l.LoadFile(date, path, ClientSchema)
	if err != nil {
		return nil, err
	}
	events := make([]db.ClientEvent, len(rows))
	for i, row := range rows {
		events[i] = db.ClientEvent{
			Timestamp:   row.Int("timestamp"),
			ErrorId:     row.Str("error_id"),
			PlayerId:    row.Int("player_id"),
			Description: row.Str("description"),
		}
	}
	return events, nil
}

func (l *RecordLoader) LoadServerEvents(date time.Time, path string) ([]db.ServerEvent, error) {
	rows, err := l.LoadFile(date, path, ServerSchema)
	if err != nil {
		return nil, err
	}
	events := make([]db.ServerEvent, len(rows))
	for i, row := range rows {
		events[i] = db.ServerEvent{
			Timestamp:   row.Int("timestamp"),
			EventId:     row.Int("event_id"),
			ErrorId:     row.Str("error_id"),
			Description: row.Str("description"),
		}
	}
	return events, nil
}

// readError classifies a csv read failure: malformed content is a schema
// mismatch, anything else means the source could not be read.
func readError(msg string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%s: %w: %w", msg, db.ErrSchemaMismatch, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, db.ErrSourceUnavailable, err)
}

func sameDay(t, date time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
