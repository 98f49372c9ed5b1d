package postgres

import (
	"context"
	"strings"

	"medivault/internal/domain/profiles"
	"medivault/internal/ports/auth"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfilesRepo struct {
	pool *pgxpool.Pool
}

func NewProfilesRepo(pool *pgxpool.Pool) *ProfilesRepo {
	return &ProfilesRepo{pool: pool}
}

const profileColumns = `
	user_id, full_name, email, phone, role, COALESCE(patient_code, ''),
	created_at, updated_at`

func (r *ProfilesRepo) Upsert(ctx context.Context, p profiles.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, email, phone, role, patient_code, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6, ''),$7,$8)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name    = EXCLUDED.full_name,
			email        = EXCLUDED.email,
			phone        = EXCLUDED.phone,
			role         = EXCLUDED.role,
			patient_code = EXCLUDED.patient_code,
			updated_at   = EXCLUDED.updated_at
	`,
		p.UserID, p.FullName, p.Email, p.Phone, string(p.Role), p.PatientCode,
		p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err, "profiles_patient_code_uq") {
		return profiles.ErrPatientCodeTaken
	}
	return err
}

func (r *ProfilesRepo) GetByUserID(ctx context.Context, userID string) (profiles.Profile, error) {
	return r.one(ctx, `user_id = $1`, userID)
}

func (r *ProfilesRepo) FindByEmail(ctx context.Context, email string) (profiles.Profile, error) {
	return r.one(ctx, `lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *ProfilesRepo) FindByPatientCode(ctx context.Context, code string) (profiles.Profile, error) {
	return r.one(ctx, `patient_code = $1`, code)
}

func (r *ProfilesRepo) one(ctx context.Context, where string, arg string) (profiles.Profile, error) {
	var p profiles.Profile
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE `+where+` LIMIT 1
	`, arg).Scan(
		&p.UserID, &p.FullName, &p.Email, &p.Phone, &role, &p.PatientCode,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if isNoRows(err) {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	if err != nil {
		return profiles.Profile{}, err
	}
	p.Role = auth.Role(role)
	return p, nil
}
