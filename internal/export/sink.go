// Package export hands query results to external sinks: JSON files for any
// result, and tabular sinks (XLSX workbook or PostgreSQL table) for the full
// category x term matrix.
package export

import (
	"context"
	"path/filepath"
	"strings"
)

// Header is the fixed column header of every tabular matrix export.
var Header = []string{"Stem", "Category", "JI Score"}

// MatrixRow is one (stem, category, score) cell of the full matrix.
type MatrixRow struct {
	Stem     string `json:"Stem"`
	Category string `json:"Category"`
	Score    string `json:"JI Score"`
}

// RowSink receives matrix rows in order. Close finalises the destination;
// nothing is visible there before Close returns nil. Abort discards every
// row and leaves the destination as it was.
type RowSink interface {
	WriteRow(ctx context.Context, row MatrixRow) error
	// Written is the number of rows actually stored, which can be lower
	// than the number offered when the sink caps its size.
	Written() int
	Close() error
	Abort() error
}

// Kind names a sink implementation.
type Kind string

const (
	KindJSON     Kind = "json"
	KindXLSX     Kind = "xlsx"
	KindPostgres Kind = "postgres"
)

// Detect picks the sink for a destination: "pg:<table>" and postgres URLs go
// to PostgreSQL, otherwise the file extension decides.
func Detect(destination string) (Kind, bool) {
	lower := strings.ToLower(destination)
	switch {
	case strings.HasPrefix(lower, "pg:"),
		strings.HasPrefix(lower, "postgres://"),
		strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres, true
	}
	switch strings.ToLower(filepath.Ext(destination)) {
	case ".xlsx":
		return KindXLSX, true
	case ".json":
		return KindJSON, true
	}
	return "", false
}
