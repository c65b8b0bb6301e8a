package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	insertColumns = `id, date, time, full_name, phone_number, email, website_link,
	avg_monthly_sales, submission_date, status, activity, latest_note`
	selectColumns = `id::text, date, time, full_name, phone_number, email, website_link,
	avg_monthly_sales, submission_date, status, activity, latest_note`
)

// PostgresRepository stores appointments in the appointments table. Activity
// is a JSONB array in wire shape.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository accepts a *pgxpool.Pool or any pgx-compatible handle.
func NewPostgresRepository(db pgDB) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func scanAppointment(row pgx.Row) (leads.RawAppointment, error) {
	var raw leads.RawAppointment
	var activity []byte
	if err := row.Scan(
		&raw.ID, &raw.Date, &raw.Time, &raw.FullName, &raw.PhoneNumber, &raw.Email,
		&raw.WebsiteLink, &raw.AvgMonthlySales, &raw.SubmissionDate, &raw.Status,
		&activity, &raw.LatestNote,
	); err != nil {
		return leads.RawAppointment{}, err
	}
	raw.Activity = []leads.Activity{}
	if len(activity) > 0 {
		if err := json.Unmarshal(activity, &raw.Activity); err != nil {
			return leads.RawAppointment{}, fmt.Errorf("decode activity: %w", err)
		}
	}
	return raw, nil
}

// parseID rejects ids that cannot exist so they surface as not found.
func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return parsed, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]leads.RawAppointment, error) {
	query := `SELECT ` + selectColumns + ` FROM appointments ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []leads.RawAppointment
	for rows.Next() {
		raw, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (leads.RawAppointment, error) {
	pk, err := parseID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	query := `SELECT ` + selectColumns + ` FROM appointments WHERE id = $1`
	raw, err := scanAppointment(r.db.QueryRow(ctx, query, pk))
	if errors.Is(err, pgx.ErrNoRows) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return raw, nil
}

func (r *PostgresRepository) Create(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error) {
	activity, err := json.Marshal(nonNilActivity(raw.Activity))
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: marshal activity: %w", err)
	}
	query := `
		INSERT INTO appointments (` + insertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + selectColumns
	created, err := scanAppointment(r.db.QueryRow(ctx, query,
		uuid.New(), raw.Date, raw.Time, raw.FullName, raw.PhoneNumber, raw.Email,
		raw.WebsiteLink, raw.AvgMonthlySales, raw.SubmissionDate, raw.Status,
		activity, raw.LatestNote,
	))
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: insert: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, patch leads.Patch) (leads.RawAppointment, error) {
	pk, err := parseID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	var sets []string
	args := []any{pk}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Activity != nil {
		activity, err := json.Marshal(patch.Activity)
		if err != nil {
			return leads.RawAppointment{}, fmt.Errorf("appointments: marshal activity: %w", err)
		}
		add("activity", activity)
	}
	if patch.LatestNote != nil {
		add("latest_note", *patch.LatestNote)
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.Time != nil {
		add("time", *patch.Time)
	}

	query := `UPDATE appointments SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + selectColumns
	updated, err := scanAppointment(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: update %s: %w", id, err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (leads.RawAppointment, error) {
	pk, err := parseID(id)
	if err != nil {
		return leads.RawAppointment{}, err
	}
	query := `DELETE FROM appointments WHERE id = $1 RETURNING ` + selectColumns
	deleted, err := scanAppointment(r.db.QueryRow(ctx, query, pk))
	if errors.Is(err, pgx.ErrNoRows) {
		return leads.RawAppointment{}, ErrNotFound
	}
	if err != nil {
		return leads.RawAppointment{}, fmt.Errorf("appointments: delete %s: %w", id, err)
	}
	return deleted, nil
}

func nonNilActivity(a []leads.Activity) []leads.Activity {
	if a == nil {
		return []leads.Activity{}
	}
	return a
}
