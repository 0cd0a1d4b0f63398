package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
)

const tankerColumns = `id, registration_no, capacity_liters, status, lat, lng`

func scanTanker(row pgx.Row) (model.Tanker, error) {
	var (
		t        model.Tanker
		status   string
		lat, lng *float64
	)
	if err := row.Scan(&t.ID, &t.RegistrationNo, &t.CapacityLiters, &status, &lat, &lng); err != nil {
		return model.Tanker{}, err
	}
	st, err := model.ParseTankerStatus(status)
	if err != nil {
		return model.Tanker{}, err
	}
	t.Status = st
	if lat != nil && lng != nil {
		t.Location = &model.Location{Lat: *lat, Lng: *lng}
	}
	return t, nil
}

func (s *Store) GetTanker(ctx context.Context, id string) (model.Tanker, error) {
	t, err := scanTanker(s.pool.QueryRow(ctx, `SELECT `+tankerColumns+` FROM tankers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Tanker{}, apperr.NotFound("get tanker", "tanker", id)
	}
	if err != nil {
		return model.Tanker{}, apperr.Upstream("get tanker", err)
	}
	return t, nil
}

func (s *Store) ListTankers(ctx context.Context, f store.TankerFilter) ([]model.Tanker, error) {
	var status string
	if f.Status != nil {
		status = f.Status.String()
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+tankerColumns+` FROM tankers WHERE ($1 = '' OR status = $1) ORDER BY id`, status)
	if err != nil {
		return nil, apperr.Upstream("list tankers", err)
	}
	defer rows.Close()
	var out []model.Tanker
	for rows.Next() {
		t, err := scanTanker(rows)
		if err != nil {
			return nil, apperr.Upstream("list tankers", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("list tankers", err)
	}
	return out, nil
}

func (s *Store) InsertTanker(ctx context.Context, t model.Tanker) error {
	var lat, lng *float64
	if t.Location != nil {
		lat, lng = &t.Location.Lat, &t.Location.Lng
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO tankers (`+tankerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.RegistrationNo, t.CapacityLiters, t.Status.String(), lat, lng)
	return classify("insert tanker", err)
}

// TransitionTanker moves a tanker between states with a compare-and-set
// UPDATE so concurrent dispatches cannot both claim it.
func (s *Store) TransitionTanker(ctx context.Context, id string, from, to model.TankerStatus) error {
	const op = "transition tanker"
	tag, err := s.pool.Exec(ctx, `UPDATE tankers SET status = $1 WHERE id = $2 AND status = $3`,
		to.String(), id, from.String())
	if err != nil {
		return apperr.Upstream(op, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	cur, err := s.GetTanker(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Conflict(op, "tanker %q is %s, expected %s", id, cur.Status, from)
}

const logColumns = `id, tanker_id, village_id, route_id, status, dispatched_at, estimated_arrival, delivered_at, notes`

func scanLog(row pgx.Row) (model.DispatchLog, error) {
	var (
		l         model.DispatchLog
		status    string
		delivered *time.Time
	)
	if err := row.Scan(&l.ID, &l.TankerID, &l.VillageID, &l.RouteID, &status,
		&l.DispatchedAt, &l.EstimatedArrival, &delivered, &l.Notes); err != nil {
		return model.DispatchLog{}, err
	}
	st, err := model.ParseDispatchStatus(status)
	if err != nil {
		return model.DispatchLog{}, err
	}
	l.Status = st
	l.DispatchedAt = l.DispatchedAt.UTC()
	l.EstimatedArrival = l.EstimatedArrival.UTC()
	if delivered != nil {
		at := delivered.UTC()
		l.DeliveredAt = &at
	}
	return l, nil
}

func (s *Store) GetDispatchLog(ctx context.Context, id string) (model.DispatchLog, error) {
	l, err := scanLog(s.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM dispatch_logs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DispatchLog{}, apperr.NotFound("get dispatch log", "dispatch log", id)
	}
	if err != nil {
		return model.DispatchLog{}, apperr.Upstream("get dispatch log", err)
	}
	return l, nil
}

func (s *Store) ListDispatchLogs(ctx context.Context, f store.DispatchLogFilter) ([]model.DispatchLog, error) {
	var status string
	if f.Status != nil {
		status = f.Status.String()
	}
	rows, err := s.pool.Query(ctx, `SELECT `+logColumns+` FROM dispatch_logs
	WHERE ($1 = '' OR tanker_id = $1)
	  AND ($2 = '' OR village_id = $2)
	  AND ($3 = '' OR status = $3)
	ORDER BY dispatched_at, id`, f.TankerID, f.VillageID, status)
	if err != nil {
		return nil, apperr.Upstream("list dispatch logs", err)
	}
	defer rows.Close()
	var out []model.DispatchLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, apperr.Upstream("list dispatch logs", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("list dispatch logs", err)
	}
	return out, nil
}

func (s *Store) InsertDispatchLog(ctx context.Context, l model.DispatchLog) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dispatch_logs (`+logColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.TankerID, l.VillageID, l.RouteID, l.Status.String(),
		l.DispatchedAt, l.EstimatedArrival, l.DeliveredAt, l.Notes)
	return classify("insert dispatch log", err)
}

// MarkDelivered flips a Pending log to Delivered in one statement. A log
// already delivered keeps its original delivered_at.
func (s *Store) MarkDelivered(ctx context.Context, id string, at time.Time) (model.DispatchLog, error) {
	const op = "complete dispatch"
	l, err := scanLog(s.pool.QueryRow(ctx, `UPDATE dispatch_logs SET status = $1, delivered_at = $2
	WHERE id = $3 AND status = $4 RETURNING `+logColumns,
		model.DispatchDelivered.String(), at, id, model.DispatchPending.String()))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.DispatchLog{}, apperr.Upstream(op, err)
	}
	cur, err := s.GetDispatchLog(ctx, id)
	if err != nil {
		return model.DispatchLog{}, err
	}
	return model.DispatchLog{}, apperr.Conflict(op, "dispatch log %q is %s", id, cur.Status)
}

func (s *Store) CountPending(ctx context.Context, tankerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dispatch_logs WHERE tanker_id = $1 AND status = $2`,
		tankerID, model.DispatchPending.String()).Scan(&n)
	if err != nil {
		return 0, apperr.Upstream("count pending", err)
	}
	return n, nil
}
