package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"overdesk/internal/model"
)

// ListMappings returns all name mappings ordered by vendor name.
func (db *DB) ListMappings(ctx context.Context) ([]model.NameMapping, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, vendor_name, display_name, engaged, created_at, updated_at
		FROM name_mappings
		ORDER BY vendor_name`)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []model.NameMapping
	for rows.Next() {
		var m model.NameMapping
		if err := rows.Scan(&m.ID, &m.VendorName, &m.DisplayName, &m.Engaged, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// GetMapping returns the mapping for a vendor entry name.
func (db *DB) GetMapping(ctx context.Context, vendorName string) (*model.NameMapping, error) {
	var m model.NameMapping
	err := db.QueryRowContext(ctx, `
		SELECT id, vendor_name, display_name, engaged, created_at, updated_at
		FROM name_mappings
		WHERE vendor_name = ?`,
		vendorName,
	).Scan(&m.ID, &m.VendorName, &m.DisplayName, &m.Engaged, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMapping creates or updates the display name for a vendor entry name.
func (db *DB) UpsertMapping(ctx context.Context, vendorName, displayName string) (*model.NameMapping, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO name_mappings (vendor_name, display_name)
		VALUES (?, ?)
		ON CONFLICT(vendor_name) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = CURRENT_TIMESTAMP`,
		vendorName, displayName,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert mapping for %q: %w", vendorName, err)
	}
	return db.GetMapping(ctx, vendorName)
}

// SetMappingEngaged flips the locally tracked engaged flag. Callers flipping
// to true must run the engage validation first; this method only persists.
func (db *DB) SetMappingEngaged(ctx context.Context, vendorName string, engaged bool) error {
	res, err := db.ExecContext(ctx, `
		UPDATE name_mappings
		SET engaged = ?, updated_at = CURRENT_TIMESTAMP
		WHERE vendor_name = ?`,
		engaged, vendorName,
	)
	if err != nil {
		return fmt.Errorf("set engaged for %q: %w", vendorName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// DeleteMapping removes the mapping for a vendor entry name.
func (db *DB) DeleteMapping(ctx context.Context, vendorName string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM name_mappings WHERE vendor_name = ?`, vendorName)
	if err != nil {
		return fmt.Errorf("delete mapping for %q: %w", vendorName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMappingNotFound
	}
	return nil
}
