package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// PostgresWriter persists properties to PostgreSQL with a PostGIS point column.
type PostgresWriter struct {
	db        *sql.DB
	batchSize int
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second}
	}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db, batchSize: 50}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE EXTENSION IF NOT EXISTS postgis;

		CREATE TABLE IF NOT EXISTS propiedades (
			id                    TEXT PRIMARY KEY,
			url                   TEXT NOT NULL DEFAULT '',
			titulo                TEXT NOT NULL DEFAULT '',
			descripcion           TEXT NOT NULL DEFAULT '',
			precio                NUMERIC(14,2),
			moneda                VARCHAR(3) NOT NULL DEFAULT '',
			moneda_inferida       BOOLEAN NOT NULL DEFAULT FALSE,
			habitaciones          INTEGER,
			banos                 NUMERIC(4,1),
			garajes               INTEGER,
			superficie_terreno    NUMERIC(12,2),
			superficie_construida NUMERIC(12,2),
			superficie_total      NUMERIC(12,2),
			zona                  TEXT NOT NULL DEFAULT '',
			tipo_propiedad        TEXT NOT NULL DEFAULT '',
			caracteristicas       TEXT[] NOT NULL DEFAULT '{}',
			latitud               DOUBLE PRECISION,
			longitud              DOUBLE PRECISION,
			geom                  GEOGRAPHY(POINT, 4326),
			codigo_proveedor      TEXT NOT NULL DEFAULT '',
			archivo_origen        TEXT NOT NULL DEFAULT '',
			fecha_snapshot        DATE,
			extraction_method     TEXT NOT NULL DEFAULT '',
			regex_fields          INTEGER NOT NULL DEFAULT 0,
			llm_provider          TEXT NOT NULL DEFAULT '',
			llm_fallback          BOOLEAN NOT NULL DEFAULT FALSE,
			versiones_previas     INTEGER NOT NULL DEFAULT 0,
			ultima_actualizacion  DATE,
			canonical_id          TEXT NOT NULL DEFAULT '',
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_propiedades_geom      ON propiedades USING GIST (geom);
		CREATE INDEX IF NOT EXISTS idx_propiedades_zona      ON propiedades(zona);
		CREATE INDEX IF NOT EXISTS idx_propiedades_precio    ON propiedades(precio);
		CREATE INDEX IF NOT EXISTS idx_propiedades_proveedor ON propiedades(codigo_proveedor);
		CREATE INDEX IF NOT EXISTS idx_propiedades_canonical ON propiedades(canonical_id);
	`)
	return err
}

// Write upserts props in batches inside one transaction.
func (pw *PostgresWriter) Write(ctx context.Context, props []*models.Property) error {
	props = dedupeByID(props)
	if len(props) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < len(props); i += pw.batchSize {
		end := i + pw.batchSize
		if end > len(props) {
			end = len(props)
		}
		if err := pw.upsertBatch(ctx, tx, props[i:end]); err != nil {
			return fmt.Errorf("postgres: upsert batch at %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) upsertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Property) error {
	n := len(propertyColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*n)

	for idx, p := range batch {
		base := idx * n
		placeholders := make([]string, n)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		geom := fmt.Sprintf("ST_SetSRID(ST_MakePoint($%d::float8, $%d::float8), 4326)::geography",
			base+colLongitude+1, base+colLatitude+1)
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+","+geom+")")

		vals := propertyValues(p)
		vals[colAmenities] = pq.Array(nonNil(p.Amenities))
		valueArgs = append(valueArgs, vals...)
	}

	query := fmt.Sprintf(`
		INSERT INTO propiedades (%s, geom)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET %s, geom = EXCLUDED.geom, updated_at = NOW()
	`, strings.Join(propertyColumns, ", "), strings.Join(valueStrings, ","), upsertAssignments())

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// FetchAll retrieves all stored properties ordered by id.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]*models.Property, error) {
	rows, err := pw.db.QueryContext(ctx,
		"SELECT "+strings.Join(propertyColumns, ", ")+" FROM propiedades ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var props []*models.Property
	for rows.Next() {
		var (
			r           propertyRow
			amenities   pq.StringArray
			snapshot    sql.NullTime
			lastUpdated sql.NullTime
		)
		if err := rows.Scan(r.dests(&amenities, &snapshot, &lastUpdated)...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		var lu *time.Time
		if lastUpdated.Valid {
			t := lastUpdated.Time
			lu = &t
		}
		props = append(props, r.property(amenities, snapshot.Time, lu))
	}
	return props, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
