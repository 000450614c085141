package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"overdesk/internal/model"
)

// AuditTableNames lists the tables included in audit exports.
var AuditTableNames = []string{
	"name_mappings",
	"audit_log",
}

// RecordEntryUpdate appends one successful entry update to the audit trail.
func (db *DB) RecordEntryUpdate(ctx context.Context, rec model.AuditRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_log
			(container_id, entry_name, old_start, old_end, new_start, new_end, old_engaged, new_engaged, actor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ContainerID, rec.EntryName,
		rec.OldStart, rec.OldEnd, rec.NewStart, rec.NewEnd,
		rec.OldEngaged, rec.NewEngaged, rec.Actor,
	)
	if err != nil {
		return fmt.Errorf("record entry update: %w", err)
	}
	return nil
}

// ListAuditRecords returns the most recent audit records, newest first.
func (db *DB) ListAuditRecords(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, container_id, entry_name, old_start, old_end, new_start, new_end,
		       old_engaged, new_engaged, actor, created_at
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var actor sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.ContainerID, &rec.EntryName,
			&rec.OldStart, &rec.OldEnd, &rec.NewStart, &rec.NewEnd,
			&rec.OldEngaged, &rec.NewEngaged, &actor, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Actor = actor.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOldAuditRecords removes audit rows older than the retention window.
func (db *DB) DeleteOldAuditRecords(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old audit records: %w", err)
	}
	return res.RowsAffected()
}

// GetTableNames returns the tables exported in audit workbooks.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return AuditTableNames, nil
}

// GetTableData returns all rows from an export table as maps.
func (db *DB) GetTableData(ctx context.Context, tableName string) (data []map[string]interface{}, columns []string, err error) {
	// Only whitelisted table names reach the query string.
	validTable := false
	for _, t := range AuditTableNames {
		if t == tableName {
			validTable = true
			break
		}
	}
	if !validTable {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var cid int
		var name, typeName string
		var notNull, pk int
		var dfltValue sql.NullString
		if err = rows.Scan(&cid, &name, &typeName, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return nil, nil, err
		}
		columns = append(columns, name)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s has no columns", tableName)
	}

	dataRows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer dataRows.Close()

	for dataRows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err = dataRows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		data = append(data, row)
	}
	return data, columns, dataRows.Err()
}
