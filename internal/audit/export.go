package audit

import (
	"context"
	"fmt"
	"io"
)

// TableExporter provides access to the local tables for export. Implemented
// by the db package.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// Exporter builds audit workbooks from the local tables.
type Exporter struct {
	tables TableExporter
	writer func() ExcelWriter
}

// NewExporter constructs an exporter. writerFactory may be nil; the excelize
// writer is then used.
func NewExporter(tables TableExporter, writerFactory func() ExcelWriter) *Exporter {
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	return &Exporter{tables: tables, writer: writerFactory}
}

// WriteWorkbook writes one sheet per exported table to out.
func (e *Exporter) WriteWorkbook(ctx context.Context, out io.Writer) error {
	names, err := e.tables.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	w := e.writer()
	for _, name := range names {
		data, columns, err := e.tables.GetTableData(ctx, name)
		if err != nil {
			return fmt.Errorf("export table %s: %w", name, err)
		}

		if err := w.AddSheet(name); err != nil {
			return err
		}
		if err := w.WriteHeader(columns); err != nil {
			return err
		}
		for _, rowMap := range data {
			row := make([]interface{}, len(columns))
			for i, col := range columns {
				row[i] = rowMap[col]
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
	}

	return w.Save(out)
}
