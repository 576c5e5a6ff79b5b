package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const leadColumns = `id, email, name, company, created_at, updated_at`

// CreateIfAbsent inserts a lead, relying on the unique email index for races.
func (r *PGRepo) CreateIfAbsent(ctx context.Context, lead Lead) (Lead, bool, error) {
	const query = `
INSERT INTO leads (id, email, name, company, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (email) DO NOTHING
RETURNING ` + leadColumns

	stored, err := scanLead(r.DB.QueryRowContext(ctx, query,
		lead.ID,
		lead.Email,
		nullString(lead.Name),
		nullString(lead.Company),
		lead.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, false, fmt.Errorf("insert lead: %w", err)
	}

	existing, err := r.GetByEmail(ctx, lead.Email)
	if err != nil {
		return Lead{}, false, err
	}
	return existing, false, nil
}

// GetByID returns a lead by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(r.DB.QueryRowContext(ctx, query, id))
}

// GetByEmail returns a lead by normalized email.
func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE email = $1`
	return scanLead(r.DB.QueryRowContext(ctx, query, email))
}

// List returns leads newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + leadColumns + `
FROM leads
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	var name, company sql.NullString
	err := row.Scan(&lead.ID, &lead.Email, &name, &company, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	lead.Name = name.String
	lead.Company = company.String
	return lead, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
