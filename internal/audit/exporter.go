// Package audit exports the store's tables into an xlsx workbook, one sheet
// per table.
package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Exporter writes every table of a TableExporter into one workbook.
type Exporter struct {
	tables    TableExporter
	newWriter func() ExcelWriter
	logger    *zerolog.Logger
}

func NewExporter(tables TableExporter, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{tables: tables, newWriter: NewExcelizeWriter, logger: logger}
}

// Export writes the workbook to w.
func (e *Exporter) Export(ctx context.Context, w io.Writer) error {
	names, err := e.tables.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	excel := e.newWriter()
	defer func() { _ = excel.Close() }()

	for _, table := range names {
		data, columns, err := e.tables.GetTableData(ctx, table)
		if err != nil {
			return fmt.Errorf("read table %s: %w", table, err)
		}
		if err := excel.AddSheet(table); err != nil {
			return err
		}
		if err := excel.WriteHeader(columns); err != nil {
			return fmt.Errorf("write header for %s: %w", table, err)
		}

		for _, row := range data {
			values := make([]any, len(columns))
			for i, col := range columns {
				values[i] = cellValue(col, row[col])
			}
			if err := excel.WriteRow(values); err != nil {
				return fmt.Errorf("write row of %s: %w", table, err)
			}
		}

		e.logger.Debug().Str("table", table).Int("rows", len(data)).Msg("Exported table")
	}

	if err := excel.Save(w); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}

// ExportToFile writes the workbook to path. A failed export leaves no file
// behind.
func (e *Exporter) ExportToFile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := e.Export(ctx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	e.logger.Info().Str("path", path).Msg("Audit export written")
	return nil
}

// cellValue renders stored values for humans: text columns as strings and
// nanosecond instant columns as RFC 3339 timestamps.
func cellValue(column string, v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int64:
		if strings.HasSuffix(column, "_time") || strings.HasSuffix(column, "_at") {
			return time.Unix(0, val).UTC().Format(time.RFC3339Nano)
		}
		return val
	case nil:
		return ""
	default:
		return val
	}
}
