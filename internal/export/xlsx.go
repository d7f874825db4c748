package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// MaxSheetRows is the data-row cap of a worksheet export. Rows beyond it are
// dropped without error.
const MaxSheetRows = 1048570

const sheetName = "Sheet1"

type xlsxSink struct {
	path    string
	maxRows int
	file    *excelize.File
	stream  *excelize.StreamWriter
	written int
}

func newXLSXSink(path string, maxRows int) (*xlsxSink, error) {
	if maxRows <= 0 || maxRows > MaxSheetRows {
		maxRows = MaxSheetRows
	}
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening worksheet stream: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = excelize.Cell{StyleID: style, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &xlsxSink{path: path, maxRows: maxRows, file: f, stream: sw}, nil
}

func (s *xlsxSink) WriteRow(_ context.Context, row MatrixRow) error {
	if s.written >= s.maxRows {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, s.written+2)
	if err != nil {
		return err
	}
	if err := s.stream.SetRow(cell, []interface{}{row.Stem, row.Category, row.Score}); err != nil {
		return fmt.Errorf("writing row %d: %w", s.written+2, err)
	}
	s.written++
	return nil
}

func (s *xlsxSink) Written() int {
	return s.written
}

func (s *xlsxSink) Close() error {
	defer s.file.Close()
	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("flushing worksheet: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", s.path, err)
	}
	tmp := s.path + ".tmp.xlsx"
	if err := s.file.SaveAs(tmp); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Abort drops the in-memory workbook without saving it.
func (s *xlsxSink) Abort() error {
	return s.file.Close()
}
