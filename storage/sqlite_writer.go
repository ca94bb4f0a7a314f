package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scz-inmuebles/models"
)

// SQLiteWriter persists properties to a local SQLite file for offline runs.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path and migrates it.
func NewSQLiteWriter(ctx context.Context, path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{db: db}
	if err := sw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return sw, nil
}

func (sw *SQLiteWriter) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS propiedades (
			id                    TEXT PRIMARY KEY,
			url                   TEXT NOT NULL DEFAULT '',
			titulo                TEXT NOT NULL DEFAULT '',
			descripcion           TEXT NOT NULL DEFAULT '',
			precio                REAL,
			moneda                TEXT NOT NULL DEFAULT '',
			moneda_inferida       INTEGER NOT NULL DEFAULT 0,
			habitaciones          INTEGER,
			banos                 REAL,
			garajes               INTEGER,
			superficie_terreno    REAL,
			superficie_construida REAL,
			superficie_total      REAL,
			zona                  TEXT NOT NULL DEFAULT '',
			tipo_propiedad        TEXT NOT NULL DEFAULT '',
			caracteristicas       TEXT NOT NULL DEFAULT '[]',
			latitud               REAL,
			longitud              REAL,
			codigo_proveedor      TEXT NOT NULL DEFAULT '',
			archivo_origen        TEXT NOT NULL DEFAULT '',
			fecha_snapshot        TEXT,
			extraction_method     TEXT NOT NULL DEFAULT '',
			regex_fields          INTEGER NOT NULL DEFAULT 0,
			llm_provider          TEXT NOT NULL DEFAULT '',
			llm_fallback          INTEGER NOT NULL DEFAULT 0,
			versiones_previas     INTEGER NOT NULL DEFAULT 0,
			ultima_actualizacion  TEXT,
			canonical_id          TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_propiedades_zona ON propiedades(zona)`,
		`CREATE INDEX IF NOT EXISTS idx_propiedades_proveedor ON propiedades(codigo_proveedor)`,
		`CREATE INDEX IF NOT EXISTS idx_propiedades_canonical ON propiedades(canonical_id)`,
	}
	for _, s := range stmts {
		if _, err := sw.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Write upserts props in a single transaction.
func (sw *SQLiteWriter) Write(ctx context.Context, props []*models.Property) error {
	props = dedupeByID(props)
	if len(props) == 0 {
		return nil
	}

	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ph := strings.TrimRight(strings.Repeat("?,", len(propertyColumns)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO propiedades (`+strings.Join(propertyColumns, ", ")+
		`) VALUES (`+ph+`) ON CONFLICT(id) DO UPDATE SET `+upsertAssignments())
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range props {
		amenities, err := json.Marshal(nonNil(p.Amenities))
		if err != nil {
			return fmt.Errorf("sqlite: encode amenities of %s: %w", p.ID, err)
		}
		vals := propertyValues(p)
		vals[colAmenities] = string(amenities)
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// FetchAll retrieves all stored properties ordered by id.
func (sw *SQLiteWriter) FetchAll(ctx context.Context) ([]*models.Property, error) {
	rows, err := sw.db.QueryContext(ctx,
		"SELECT "+strings.Join(propertyColumns, ", ")+" FROM propiedades ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch all: %w", err)
	}
	defer rows.Close()

	var props []*models.Property
	for rows.Next() {
		var (
			r           propertyRow
			amenities   sql.NullString
			snapshot    sql.NullString
			lastUpdated sql.NullString
		)
		if err := rows.Scan(r.dests(&amenities, &snapshot, &lastUpdated)...); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}

		var list []string
		if amenities.Valid && amenities.String != "" {
			if err := json.Unmarshal([]byte(amenities.String), &list); err != nil {
				return nil, fmt.Errorf("sqlite: decode amenities of %s: %w", r.id, err)
			}
		}
		var snap time.Time
		if snapshot.Valid {
			snap, _ = time.Parse(dateLayout, snapshot.String)
		}
		var lu *time.Time
		if lastUpdated.Valid {
			if t, err := time.Parse(dateLayout, lastUpdated.String); err == nil {
				lu = &t
			}
		}
		props = append(props, r.property(list, snap, lu))
	}
	return props, rows.Err()
}

func (sw *SQLiteWriter) Close() error {
	return sw.db.Close()
}
