package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/internal/schedule"
	"github.com/arenalivre/courtbook/libs/db"
)

type CourtRepository struct {
	pool *db.Pool
}

func NewCourtRepository(pool *db.Pool) *CourtRepository {
	return &CourtRepository{pool: pool}
}

func (r *CourtRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a court with the default weekly schedule and returns its id.
func (r *CourtRepository) Create(ctx context.Context, ownerID, name, surfaceType, hourlyPrice string) (string, error) {
	id := uuid.NewString()
	wire, err := json.Marshal(schedule.ToWire(schedule.Default()))
	if err != nil {
		return "", err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO courts (id, owner_id, name, surface_type, hourly_price, weekly_schedule)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, ownerID, name, surfaceType, hourlyPrice, wire)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CourtRepository) Get(ctx context.Context, courtID string) (model.Court, error) {
	var c model.Court
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, surface_type, hourly_price::text, weekly_schedule, created_at
		FROM courts
		WHERE id = $1
	`, courtID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.SurfaceType, &c.HourlyPrice, &raw, &c.CreatedAt)
	if err != nil {
		return model.Court{}, err
	}
	c.Schedule = decodeSchedule(raw)
	return c, nil
}

func (r *CourtRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Court, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id::text, name, surface_type, hourly_price::text, weekly_schedule, created_at
		FROM courts
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourts(rows)
}

func (r *CourtRepository) ListPublic(ctx context.Context, limit int) ([]model.Court, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id::text, name, surface_type, hourly_price::text, weekly_schedule, created_at
		FROM courts
		ORDER BY name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourts(rows)
}

// UpdateSchedule replaces a court's weekly schedule inside the caller's
// transaction so the change commits atomically with its outbox event.
func (r *CourtRepository) UpdateSchedule(ctx context.Context, tx pgx.Tx, ownerID, courtID string, wire []schedule.WireDay) error {
	raw, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE courts
		SET weekly_schedule = $3,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`, courtID, ownerID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCourts(rows pgx.Rows) ([]model.Court, error) {
	var out []model.Court
	for rows.Next() {
		var c model.Court
		var raw []byte
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.SurfaceType, &c.HourlyPrice, &raw, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Schedule = decodeSchedule(raw)
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// decodeSchedule tolerates corrupt rows: a nil result makes schedule.FromWire
// fall back to the default week instead of failing the whole read.
func decodeSchedule(raw []byte) []schedule.WireDay {
	if len(raw) == 0 {
		return nil
	}
	var wire []schedule.WireDay
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	return wire
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}
