package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
)

const tankerColumns = `id, registration_no, capacity_liters, status, lat, lng`

func scanTanker(row scanner) (model.Tanker, error) {
	var (
		t        model.Tanker
		status   string
		lat, lng sql.NullFloat64
	)
	if err := row.Scan(&t.ID, &t.RegistrationNo, &t.CapacityLiters, &status, &lat, &lng); err != nil {
		return model.Tanker{}, err
	}
	st, err := model.ParseTankerStatus(status)
	if err != nil {
		return model.Tanker{}, err
	}
	t.Status = st
	if lat.Valid && lng.Valid {
		t.Location = &model.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	return t, nil
}

func (s *Store) GetTanker(ctx context.Context, id string) (model.Tanker, error) {
	t, err := scanTanker(s.db.QueryRowContext(ctx, `SELECT `+tankerColumns+` FROM tankers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tanker{}, apperr.NotFound("get tanker", "tanker", id)
	}
	if err != nil {
		return model.Tanker{}, apperr.Upstream("get tanker", err)
	}
	return t, nil
}

func (s *Store) ListTankers(ctx context.Context, f store.TankerFilter) ([]model.Tanker, error) {
	query := `SELECT ` + tankerColumns + ` FROM tankers`
	var args []any
	if f.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, f.Status.String())
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("list tankers", err)
	}
	defer func() { _ = rows.Close() }()
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
	var lat, lng sql.NullFloat64
	if t.Location != nil {
		lat = sql.NullFloat64{Float64: t.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: t.Location.Lng, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tankers (`+tankerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.RegistrationNo, t.CapacityLiters, t.Status.String(), lat, lng)
	return classify("insert tanker", err)
}

// TransitionTanker is a single conditional UPDATE; zero affected rows means
// the tanker is missing or not in the expected state.
func (s *Store) TransitionTanker(ctx context.Context, id string, from, to model.TankerStatus) error {
	const op = "transition tanker"
	res, err := s.db.ExecContext(ctx, `UPDATE tankers SET status = ? WHERE id = ? AND status = ?`,
		to.String(), id, from.String())
	if err != nil {
		return apperr.Upstream(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Upstream(op, err)
	}
	if n == 1 {
		return nil
	}
	cur, err := s.GetTanker(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Conflict(op, "tanker %q is %s, expected %s", id, cur.Status, from)
}

const logColumns = `id, tanker_id, village_id, route_id, status, dispatched_at, estimated_arrival, delivered_at, notes`

func scanLog(row scanner) (model.DispatchLog, error) {
	var (
		l               model.DispatchLog
		status          string
		dispatched, eta int64
		delivered       sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.TankerID, &l.VillageID, &l.RouteID, &status, &dispatched, &eta, &delivered, &l.Notes); err != nil {
		return model.DispatchLog{}, err
	}
	st, err := model.ParseDispatchStatus(status)
	if err != nil {
		return model.DispatchLog{}, err
	}
	l.Status = st
	l.DispatchedAt = fromNanos(dispatched)
	l.EstimatedArrival = fromNanos(eta)
	if delivered.Valid {
		at := fromNanos(delivered.Int64)
		l.DeliveredAt = &at
	}
	return l, nil
}

func (s *Store) GetDispatchLog(ctx context.Context, id string) (model.DispatchLog, error) {
	l, err := scanLog(s.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM dispatch_logs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.DispatchLog{}, apperr.NotFound("get dispatch log", "dispatch log", id)
	}
	if err != nil {
		return model.DispatchLog{}, apperr.Upstream("get dispatch log", err)
	}
	return l, nil
}

func (s *Store) ListDispatchLogs(ctx context.Context, f store.DispatchLogFilter) ([]model.DispatchLog, error) {
	query := `SELECT ` + logColumns + ` FROM dispatch_logs WHERE 1=1`
	var args []any
	if f.TankerID != "" {
		query += ` AND tanker_id = ?`
		args = append(args, f.TankerID)
	}
	if f.VillageID != "" {
		query += ` AND village_id = ?`
		args = append(args, f.VillageID)
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, f.Status.String())
	}
	query += ` ORDER BY dispatched_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("list dispatch logs", err)
	}
	defer func() { _ = rows.Close() }()
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
	var delivered sql.NullInt64
	if l.DeliveredAt != nil {
		delivered = sql.NullInt64{Int64: nanos(*l.DeliveredAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO dispatch_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TankerID, l.VillageID, l.RouteID, l.Status.String(),
		nanos(l.DispatchedAt), nanos(l.EstimatedArrival), delivered, l.Notes)
	return classify("insert dispatch log", err)
}

func (s *Store) MarkDelivered(ctx context.Context, id string, at time.Time) (model.DispatchLog, error) {
	const op = "complete dispatch"
	res, err := s.db.ExecContext(ctx,
		`UPDATE dispatch_logs SET status = ?, delivered_at = ? WHERE id = ? AND status = ?`,
		model.DispatchDelivered.String(), nanos(at), id, model.DispatchPending.String())
	if err != nil {
		return model.DispatchLog{}, apperr.Upstream(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.DispatchLog{}, apperr.Upstream(op, err)
	}
	l, err := s.GetDispatchLog(ctx, id)
	if err != nil {
		return model.DispatchLog{}, err
	}
	if n == 0 {
		return model.DispatchLog{}, apperr.Conflict(op, "dispatch log %q is %s", id, l.Status)
	}
	return l, nil
}

func (s *Store) CountPending(ctx context.Context, tankerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dispatch_logs WHERE tanker_id = ? AND status = ?`,
		tankerID, model.DispatchPending.String()).Scan(&n)
	if err != nil {
		return 0, apperr.Upstream("count pending", err)
	}
	return n, nil
}
