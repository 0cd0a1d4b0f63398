// Package postgres provides a PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store persists villages, tankers and dispatch logs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict(op, "duplicate id: %s", pgErr.Detail)
	}
	return apperr.Upstream(op, err)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func utc(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

const villageColumns = `id, name, district, population, lat, lng, base_capacity_liters, current_level_pct, wsi, updated_at`

func scanVillage(row pgx.Row) (model.Village, error) {
	var (
		v       model.Village
		updated *time.Time
	)
	err := row.Scan(&v.ID, &v.Name, &v.District, &v.Population, &v.Location.Lat, &v.Location.Lng,
		&v.BaseCapacityLiters, &v.CurrentLevelPct, &v.WSI, &updated)
	v.UpdatedAt = utc(updated)
	return v, err
}

func (s *Store) GetVillage(ctx context.Context, id string) (model.Village, error) {
	v, err := scanVillage(s.pool.QueryRow(ctx, `SELECT `+villageColumns+` FROM villages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Village{}, apperr.NotFound("get village", "village", id)
	}
	if err != nil {
		return model.Village{}, apperr.Upstream("get village", err)
	}
	return v, nil
}

func (s *Store) ListVillages(ctx context.Context, f store.VillageFilter) ([]model.Village, error) {
	query := `SELECT ` + villageColumns + ` FROM villages
	WHERE ($1::text[] IS NULL OR id = ANY($1))
	  AND ($2 = '' OR district = $2)
	ORDER BY id`
	var ids []string
	if len(f.IDs) > 0 {
		ids = f.IDs
	}
	rows, err := s.pool.Query(ctx, query, ids, f.District)
	if err != nil {
		return nil, apperr.Upstream("list villages", err)
	}
	defer rows.Close()
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO villages (`+villageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.Name, v.District, v.Population, v.Location.Lat, v.Location.Lng,
		v.BaseCapacityLiters, v.CurrentLevelPct, model.ClampWSI(v.WSI), nullTime(v.UpdatedAt))
	return classify("insert village", err)
}

func (s *Store) UpdateVillageWSI(ctx context.Context, id string, wsi float64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE villages SET wsi = $1, updated_at = $2 WHERE id = $3`,
		model.ClampWSI(wsi), nullTime(at), id)
	if err != nil {
		return apperr.Upstream("update village wsi", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("update village wsi", "village", id)
	}
	return nil
}

func (s *Store) InsertEnvironmentalRecord(ctx context.Context, rec model.EnvironmentalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO environmental_records (id, village_id, record_date, rainfall_mm, groundwater_level_m, temperature_c)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.VillageID, rec.RecordDate, rec.RainfallMM, rec.GroundwaterLevelM, rec.TemperatureCelsius)
	return classify("insert environmental record", err)
}

func (s *Store) RecentEnvironmentalRecords(ctx context.Context, villageID string, limit int) ([]model.EnvironmentalRecord, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, village_id, record_date, rainfall_mm, groundwater_level_m, temperature_c
		FROM environmental_records WHERE village_id = $1 ORDER BY record_date DESC LIMIT $2`,
		villageID, lim)
	if err != nil {
		return nil, apperr.Upstream("recent environmental records", err)
	}
	defer rows.Close()
	var out []model.EnvironmentalRecord
	for rows.Next() {
		var r model.EnvironmentalRecord
		if err := rows.Scan(&r.ID, &r.VillageID, &r.RecordDate, &r.RainfallMM, &r.GroundwaterLevelM, &r.TemperatureCelsius); err != nil {
			return nil, apperr.Upstream("recent environmental records", err)
		}
		r.RecordDate = r.RecordDate.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("recent environmental records", err)
	}
	return out, nil
}
