package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"sales_leads_backend/internal/leads/export"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

// ExportArchiver keeps a copy of a finished export. Archive failures never
// fail the export itself.
type ExportArchiver interface {
	Archive(ctx context.Context, objectName, contentType string, body []byte) error
}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export is an opened export. The query has already run, so errors from
// here on happen while the response body is being written.
type Export struct {
	svc    *Service
	cursor repository.Cursor
	format transport.ExportFormat
	limit  int
}

// Export validates req and opens the underlying query. Callers must call
// WriteTo or Close on the result.
func (s *Service) Export(ctx context.Context, req transport.ExportRequest) (*Export, error) {
	format := req.Format
	if format == "" {
		format = transport.ExportFormatCSV
	}
	if format != transport.ExportFormatCSV && format != transport.ExportFormatXLSX {
		return nil, apperr.Validation("format must be one of: csv xlsx")
	}

	terms, err := s.sorter.Parse(req.SortBy)
	if err != nil {
		return nil, err
	}

	cursor, err := s.repo.Export(ctx, repository.ExportParams{
		Search: req.Query,
		Sort:   terms,
		Limit:  s.exportLimit,
	})
	if err != nil {
		return nil, s.internal(ctx, "leads.export", "export the leads", err)
	}

	return &Export{svc: s, cursor: cursor, format: format, limit: s.exportLimit}, nil
}

func (e *Export) Filename() string {
	return "sales_leads." + string(e.format)
}

func (e *Export) ContentType() string {
	if e.format == transport.ExportFormatXLSX {
		return contentTypeXLSX
	}
	return contentTypeCSV
}

// Close releases the cursor without writing anything.
func (e *Export) Close() {
	e.cursor.Close()
}

// WriteTo streams the header and at most the export limit of rows to w.
// Rows beyond the limit are dropped silently.
func (e *Export) WriteTo(ctx context.Context, w io.Writer) (int, error) {
	defer e.cursor.Close()

	var archive *bytes.Buffer
	if e.svc.archiver != nil {
		archive = &bytes.Buffer{}
		w = io.MultiWriter(w, archive)
	}

	out, err := e.newWriter(w)
	if err != nil {
		return 0, e.svc.internal(ctx, "leads.export", "export the leads", err)
	}

	rows, err := e.writeRows(out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return rows, e.svc.internal(ctx, "leads.export", "export the leads", err)
	}

	e.svc.metrics.LeadsExported(string(e.format), rows)
	e.svc.log.WithContext(ctx).Info("leads_exported",
		slog.String("format", string(e.format)),
		slog.Int("rows", rows),
	)

	if archive != nil {
		e.archive(ctx, archive.Bytes())
	}
	return rows, nil
}

func (e *Export) newWriter(w io.Writer) (export.Writer, error) {
	if e.format == transport.ExportFormatXLSX {
		return export.NewXLSX(w)
	}
	return export.NewCSV(w), nil
}

func (e *Export) writeRows(out export.Writer) (int, error) {
	if err := out.WriteHeader(); err != nil {
		return 0, err
	}

	rows := 0
	for rows < e.limit && e.cursor.Next() {
		if err := out.WriteLead(e.cursor.Lead()); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, e.cursor.Err()
}

func (e *Export) archive(ctx context.Context, body []byte) {
	name := fmt.Sprintf("exports/%s_%s.%s", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString(), e.format)
	if err := e.svc.archiver.Archive(ctx, name, e.ContentType(), body); err != nil {
		e.svc.log.WithContext(ctx).Warn("export_archive_failed",
			slog.String("object", name),
			slog.String("error", err.Error()),
		)
	}
}
