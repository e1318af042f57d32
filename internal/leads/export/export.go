// Package export renders leads as downloadable spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"sales_leads_backend/internal/leads/domain"

	"github.com/xuri/excelize/v2"
)

// Header is the first row of every export.
var Header = []string{"ID", "Name", "Email", "Company", "Stage", "Engaged", "Last Contacted"}

// Writer streams lead rows in one file format.
type Writer interface {
	WriteHeader() error
	WriteLead(lead domain.Lead) error
	// Close flushes buffered output. It must be called exactly once.
	Close() error
}

// Row formats a lead in Header order.
func Row(lead domain.Lead) []string {
	engaged := "No"
	if lead.IsEngaged {
		engaged = "Yes"
	}
	lastContacted := ""
	if lead.LastContactedAt != nil {
		lastContacted = lead.LastContactedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		lead.ID.String(),
		lead.Name,
		lead.Email,
		lead.CompanyName,
		string(lead.Stage),
		engaged,
		lastContacted,
	}
}

type csvWriter struct {
	w *csv.Writer
}

// NewCSV writes RFC 4180 CSV to w.
func NewCSV(w io.Writer) Writer {
	return &csvWriter{w: csv.NewWriter(w)}
}

func (c *csvWriter) WriteHeader() error {
	return c.w.Write(Header)
}

func (c *csvWriter) WriteLead(lead domain.Lead) error {
	return c.w.Write(Row(lead))
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

const sheetName = "Leads"

type xlsxWriter struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// NewXLSX builds a single-sheet workbook and writes it to w on Close.
func NewXLSX(w io.Writer) (Writer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}
	if err := stream.SetColWidth(1, len(Header), 22); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	return &xlsxWriter{out: w, file: f, stream: stream, row: 1}, nil
}

func (x *xlsxWriter) WriteHeader() error {
	style, err := x.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	cells := make([]interface{}, len(Header))
	for i, title := range Header {
		cells[i] = excelize.Cell{StyleID: style, Value: title}
	}
	return x.writeRow(cells)
}

func (x *xlsxWriter) WriteLead(lead domain.Lead) error {
	values := Row(lead)
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return x.writeRow(cells)
}

func (x *xlsxWriter) writeRow(cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	if err := x.stream.SetRow(cell, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", x.row, err)
	}
	x.row++
	return nil
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()

	if err := x.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := x.file.WriteTo(x.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
