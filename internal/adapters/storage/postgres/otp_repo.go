package postgres

import (
	"context"
	"time"

	"medivault/internal/domain/otp"

	"github.com/jackc/pgx/v5/pgxpool"
)

type OTPRepo struct {
	pool *pgxpool.Pool
}

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{pool: pool}
}

const otpColumns = `
	id, requester_id, subject_id, purpose, reference_id, code,
	issued_at, expires_at, verified_at, consumed, delivery, delivery_error`

func (r *OTPRepo) Create(ctx context.Context, v otp.Verification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO otp_verifications (`+otpColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		v.ID, v.RequesterID, v.SubjectID, string(v.Purpose), v.ReferenceID, v.Code,
		v.IssuedAt, v.ExpiresAt, v.VerifiedAt, v.Consumed, string(v.Delivery), v.DeliveryError,
	)
	return err
}

func (r *OTPRepo) FindLatestEligible(ctx context.Context, m otp.Match, code string, now time.Time) (otp.Verification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+otpColumns+`
		FROM otp_verifications
		WHERE requester_id = $1
		  AND subject_id = $2
		  AND purpose = $3
		  AND reference_id = $4
		  AND code = $5
		  AND consumed = FALSE
		  AND expires_at > $6
		  AND delivery <> 'failed'
		ORDER BY issued_at DESC, seq DESC
		LIMIT 1
	`, m.RequesterID, m.SubjectID, string(m.Purpose), m.ReferenceID, code, now)

	v, err := scanVerification(row)
	if isNoRows(err) {
		return otp.Verification{}, otp.ErrNotFound
	}
	return v, err
}

// Consume: el WHERE consumed=FALSE es el compare-and-set.
func (r *OTPRepo) Consume(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE otp_verifications
		SET consumed = TRUE, verified_at = $2
		WHERE id = $1 AND consumed = FALSE
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM otp_verifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return otp.ErrNotFound
	}
	return otp.ErrAlreadyConsumed
}

func (r *OTPRepo) MarkDelivery(ctx context.Context, id string, status otp.DeliveryStatus, detail string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE otp_verifications SET delivery = $2, delivery_error = $3 WHERE id = $1
	`, id, string(status), detail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return otp.ErrNotFound
	}
	return nil
}

func (r *OTPRepo) ListBySubject(ctx context.Context, subjectID string) ([]otp.Verification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+otpColumns+`
		FROM otp_verifications
		WHERE subject_id = $1
		ORDER BY issued_at DESC, seq DESC
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]otp.Verification, 0)
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// rowScanner lo cumplen pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(row rowScanner) (otp.Verification, error) {
	var v otp.Verification
	var purpose, delivery string
	err := row.Scan(
		&v.ID, &v.RequesterID, &v.SubjectID, &purpose, &v.ReferenceID, &v.Code,
		&v.IssuedAt, &v.ExpiresAt, &v.VerifiedAt, &v.Consumed, &delivery, &v.DeliveryError,
	)
	if err != nil {
		return otp.Verification{}, err
	}
	v.Purpose = otp.Purpose(purpose)
	v.Delivery = otp.DeliveryStatus(delivery)
	return v, nil
}
