// Package sqlite implements store.Store on SQLite through the pure Go
// modernc.org/sqlite driver. Timestamps are stored as Unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
)

//go:embed schema.sql
var schema string

// Store persists the engine records in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at dsn and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict(op, "duplicate id: %v", err)
	}
	return apperr.Upstream(op, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

const villageColumns = `id, name, district, population, lat, lng, base_capacity_liters, current_level_pct, wsi, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVillage(row scanner) (model.Village, error) {
	var (
		v       model.Village
		updated int64
	)
	err := row.Scan(&v.ID, &v.Name, &v.District, &v.Population, &v.Location.Lat, &v.Location.Lng,
		&v.BaseCapacityLiters, &v.CurrentLevelPct, &v.WSI, &updated)
	v.UpdatedAt = fromNanos(updated)
	return v, err
}

func (s *Store) GetVillage(ctx context.Context, id string) (model.Village, error) {
	v, err := scanVillage(s.db.QueryRowContext(ctx, `SELECT `+villageColumns+` FROM villages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Village{}, apperr.NotFound("get village", "village", id)
	}
	if err != nil {
		return model.Village{}, apperr.Upstream("get village", err)
	}
	return v, nil
}

func (s *Store) ListVillages(ctx context.Context, f store.VillageFilter) ([]model.Village, error) {
	query := `SELECT ` + villageColumns + ` FROM villages WHERE 1=1`
	var args []any
	if len(f.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(f.IDs)) + `)`
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.District != "" {
		query += ` AND district = ?`
		args = append(args, f.District)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("list villages", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Village
	for rows.Next() {
		v, err := scanVillage(rows)
		if err != nil {
			return nil, apperr.Upstream("list villages", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("list villages", err)
	}
	return out, nil
}

func (s *Store) InsertVillage(ctx context.Context, v model.Village) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO villages (`+villageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.District, v.Population, v.Location.Lat, v.Location.Lng,
		v.BaseCapacityLiters, v.CurrentLevelPct, model.ClampWSI(v.WSI), nanos(v.UpdatedAt))
	return classify("insert village", err)
}

func (s *Store) UpdateVillageWSI(ctx context.Context, id string, wsi float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE villages SET wsi = ?, updated_at = ? WHERE id = ?`,
		model.ClampWSI(wsi), nanos(at), id)
	if err != nil {
		return apperr.Upstream("update village wsi", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperr.Upstream("update village wsi", err)
	} else if n == 0 {
		return apperr.NotFound("update village wsi", "village", id)
	}
	return nil
}

func (s *Store) InsertEnvironmentalRecord(ctx context.Context, rec model.EnvironmentalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO environmental_records (id, village_id, record_date, rainfall_mm, groundwater_level_m, temperature_c)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VillageID, nanos(rec.RecordDate), rec.RainfallMM, rec.GroundwaterLevelM, rec.TemperatureCelsius)
	return classify("insert environmental record", err)
}

func (s *Store) RecentEnvironmentalRecords(ctx context.Context, villageID string, limit int) ([]model.EnvironmentalRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, village_id, record_date, rainfall_mm, groundwater_level_m, temperature_c
         FROM environmental_records WHERE village_id = ? ORDER BY record_date DESC, rowid LIMIT ?`,
		villageID, limit)
	if err != nil {
		return nil, apperr.Upstream("recent environmental records", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.EnvironmentalRecord
	for rows.Next() {
		var (
			r    model.EnvironmentalRecord
			date int64
		)
		if err := rows.Scan(&r.ID, &r.VillageID, &date, &r.RainfallMM, &r.GroundwaterLevelM, &r.TemperatureCelsius); err != nil {
			return nil, apperr.Upstream("recent environmental records", err)
		}
		r.RecordDate = fromNanos(date)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("recent environmental records", err)
	}
	return out, nil
}
