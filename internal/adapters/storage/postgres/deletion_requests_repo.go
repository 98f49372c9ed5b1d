package postgres

import (
	"context"

	"medivault/internal/domain/deletionrequests"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DeletionRequestsRepo struct {
	pool *pgxpool.Pool
}

func NewDeletionRequestsRepo(pool *pgxpool.Pool) *DeletionRequestsRepo {
	return &DeletionRequestsRepo{pool: pool}
}

const deletionRequestColumns = `
	id, document_id, patient_id, reason, status,
	requested_at, processed_at, processed_by`

func (r *DeletionRequestsRepo) Create(ctx context.Context, req deletionrequests.Request) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO deletion_requests (`+deletionRequestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		req.ID, req.DocumentID, req.PatientID, req.Reason, string(req.Status),
		req.RequestedAt, req.ProcessedAt, req.ProcessedBy,
	)
	if isUniqueViolation(err, "deletion_requests_pending_uq") {
		return deletionrequests.ErrConflictingRequest
	}
	return err
}

func (r *DeletionRequestsRepo) GetByID(ctx context.Context, id string) (deletionrequests.Request, error) {
	req, err := scanDeletionRequest(r.pool.QueryRow(ctx, `
		SELECT `+deletionRequestColumns+` FROM deletion_requests WHERE id = $1
	`, id))
	if isNoRows(err) {
		return deletionrequests.Request{}, deletionrequests.ErrNotFound
	}
	return req, err
}

// UpdateFrom: el AND status = $5 hace de compare-and-set.
func (r *DeletionRequestsRepo) UpdateFrom(ctx context.Context, req deletionrequests.Request, from deletionrequests.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deletion_requests
		SET status = $2, processed_at = $3, processed_by = $4
		WHERE id = $1 AND status = $5
	`, req.ID, string(req.Status), req.ProcessedAt, req.ProcessedBy, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, req.ID); err != nil {
		return err
	}
	return deletionrequests.ErrBadState
}

func (r *DeletionRequestsRepo) ListByStatus(ctx context.Context, status deletionrequests.Status) ([]deletionrequests.Request, error) {
	return r.list(ctx, `status = $1`, string(status))
}

func (r *DeletionRequestsRepo) ListByPatient(ctx context.Context, patientID string) ([]deletionrequests.Request, error) {
	return r.list(ctx, `patient_id = $1`, patientID)
}

func (r *DeletionRequestsRepo) list(ctx context.Context, where string, arg string) ([]deletionrequests.Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+deletionRequestColumns+`
		FROM deletion_requests
		WHERE `+where+`
		ORDER BY requested_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]deletionrequests.Request, 0)
	for rows.Next() {
		req, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanDeletionRequest(row rowScanner) (deletionrequests.Request, error) {
	var req deletionrequests.Request
	var status string
	err := row.Scan(
		&req.ID, &req.DocumentID, &req.PatientID, &req.Reason, &status,
		&req.RequestedAt, &req.ProcessedAt, &req.ProcessedBy,
	)
	if err != nil {
		return deletionrequests.Request{}, err
	}
	req.Status = deletionrequests.Status(status)
	return req, nil
}
