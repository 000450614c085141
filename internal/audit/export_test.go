package audit

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubTables struct{}

func (stubTables) GetTableNames(ctx context.Context) ([]string, error) {
	return []string{"name_mappings"}, nil
}

func (stubTables) GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error) {
	columns := []string{"vendor_name", "display_name"}
	data := []map[string]interface{}{
		{"vendor_name": "ovr-7f3a", "display_name": "Alice"},
		{"vendor_name": "ovr-9c21", "display_name": "Bob"},
	}
	return data, columns, nil
}

func TestWriteWorkbook(t *testing.T) {
	exporter := NewExporter(stubTables{}, nil)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteWorkbook(context.Background(), &buf))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "name_mappings")
	rows, err := f.GetRows("name_mappings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"vendor_name", "display_name"}, rows[0])
	assert.Equal(t, "ovr-7f3a", rows[1][0])
	assert.Equal(t, "Bob", rows[2][1])
}
