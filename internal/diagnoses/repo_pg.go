package diagnoses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tdm-diagnostic/internal/diagnostic/scoring"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const diagnosisColumns = `id, lead_id, type, status, token, answers, result, maturity_level,
       report_key, report_url, report_pages, report_delivered_at, report_error,
       created_at, completed_at, updated_at`

// Create inserts a new diagnosis.
func (r *PGRepo) Create(ctx context.Context, d Diagnosis) error {
	const query = `
INSERT INTO diagnoses (id, lead_id, type, status, token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		d.ID,
		d.LeadID,
		string(d.Type),
		string(d.Status),
		d.Token,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}
	return nil
}

// GetByID returns a diagnosis by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Diagnosis, error) {
	const query = `SELECT ` + diagnosisColumns + ` FROM diagnoses WHERE id = $1`
	return scanDiagnosis(r.DB.QueryRowContext(ctx, query, id))
}

// GetByToken returns a diagnosis by its link token.
func (r *PGRepo) GetByToken(ctx context.Context, token string) (Diagnosis, error) {
	const query = `SELECT ` + diagnosisColumns + ` FROM diagnoses WHERE token = $1`
	return scanDiagnosis(r.DB.QueryRowContext(ctx, query, token))
}

// CompleteOnce stores the scored answers with a conditional update so that
// concurrent submissions of the same link complete it exactly once.
func (r *PGRepo) CompleteOnce(ctx context.Context, id string, c Completion) (Diagnosis, error) {
	answers, err := json.Marshal(c.Answers)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("marshal answers: %w", err)
	}
	result, err := json.Marshal(c.Result)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("marshal result: %w", err)
	}

	const query = `
UPDATE diagnoses
SET status = 'completed',
    answers = $2,
    result = $3,
    maturity_level = $4,
    completed_at = $5,
    updated_at = $5
WHERE id = $1 AND status = 'in_progress'
RETURNING ` + diagnosisColumns

	d, err := scanDiagnosis(r.DB.QueryRowContext(ctx, query,
		id,
		answers,
		result,
		c.Result.MaturityLevel,
		c.CompletedAt,
	))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Diagnosis{}, fmt.Errorf("complete diagnosis: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return Diagnosis{}, err
	}
	return Diagnosis{}, ErrAlreadyCompleted
}

// UpdateReport records a delivered report and clears any previous failure.
func (r *PGRepo) UpdateReport(ctx context.Context, id string, rec ReportRecord) error {
	const query = `
UPDATE diagnoses
SET report_key = $2,
    report_url = $3,
    report_pages = $4,
    report_delivered_at = $5,
    report_error = NULL,
    updated_at = $5
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, rec.Key, rec.URL, rec.Pages, rec.DeliveredAt)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireRow(res)
}

// MarkReportFailed records why report delivery failed.
func (r *PGRepo) MarkReportFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE diagnoses SET report_error = $2, updated_at = now() WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return requireRow(res)
}

// ListByLead returns a lead's diagnoses newest first.
func (r *PGRepo) ListByLead(ctx context.Context, leadID string) ([]Diagnosis, error) {
	const query = `SELECT ` + diagnosisColumns + `
FROM diagnoses
WHERE lead_id = $1
ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Diagnosis{}
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagnosis(row rowScanner) (Diagnosis, error) {
	var d Diagnosis
	var (
		typ, status       string
		answers, result   []byte
		maturityLevel     sql.NullInt64
		reportKey         sql.NullString
		reportURL         sql.NullString
		reportPages       sql.NullInt64
		reportDeliveredAt sql.NullTime
		reportError       sql.NullString
		completedAt       sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.LeadID,
		&typ,
		&status,
		&d.Token,
		&answers,
		&result,
		&maturityLevel,
		&reportKey,
		&reportURL,
		&reportPages,
		&reportDeliveredAt,
		&reportError,
		&d.CreatedAt,
		&completedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Diagnosis{}, ErrNotFound
		}
		return Diagnosis{}, err
	}

	d.Type = Type(typ)
	d.Status = Status(status)
	if len(answers) > 0 {
		var a scoring.AnswerSet
		if err := json.Unmarshal(answers, &a); err != nil {
			return Diagnosis{}, fmt.Errorf("decode answers: %w", err)
		}
		d.Answers = a
	}
	if len(result) > 0 {
		var res scoring.Result
		if err := json.Unmarshal(result, &res); err != nil {
			return Diagnosis{}, fmt.Errorf("decode result: %w", err)
		}
		d.Result = &res
	}
	d.MaturityLevel = int(maturityLevel.Int64)
	d.ReportKey = reportKey.String
	d.ReportURL = reportURL.String
	d.ReportPages = int(reportPages.Int64)
	d.ReportError = reportError.String
	if reportDeliveredAt.Valid {
		t := reportDeliveredAt.Time
		d.ReportDeliveredAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
