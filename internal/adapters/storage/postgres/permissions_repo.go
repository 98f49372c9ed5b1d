package postgres

import (
	"context"
	"fmt"
	"time"

	"medivault/internal/domain/accesspermissions"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PermissionsRepo struct {
	pool *pgxpool.Pool
}

func NewPermissionsRepo(pool *pgxpool.Pool) *PermissionsRepo {
	return &PermissionsRepo{pool: pool}
}

const permissionColumns = `
	id, subject_id, granted_to_id, scope, granted_at, expires_at,
	active, notes, revoked_at, verification_id`

// currentPermission replica Permission.CurrentlyAuthorized.
const currentPermission = `
	subject_id = $1 AND granted_to_id = $2
	AND active = TRUE AND revoked_at IS NULL
	AND (expires_at IS NULL OR expires_at > $3)`

// Grant serializa por par (subject, grantee) con un advisory lock de la
// transacción: dos verificaciones simultáneas no crean dos filas vigentes.
func (r *PermissionsRepo) Grant(ctx context.Context, p accesspermissions.Permission, now time.Time) (accesspermissions.Permission, error) {
	var out accesspermissions.Permission

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.SubjectID+":"+p.GrantedToID); err != nil {
			return fmt.Errorf("lock pair: %w", err)
		}

		cur, err := scanPermission(tx.QueryRow(ctx, `
			SELECT `+permissionColumns+`
			FROM access_permissions
			WHERE `+currentPermission+`
			ORDER BY granted_at DESC, seq DESC
			LIMIT 1
			FOR UPDATE
		`, p.SubjectID, p.GrantedToID, now))

		switch {
		case err == nil:
			cur.GrantedAt = p.GrantedAt
			cur.ExpiresAt = p.ExpiresAt
			cur.Notes = p.Notes
			cur.VerificationID = p.VerificationID
			if _, err := tx.Exec(ctx, `
				UPDATE access_permissions
				SET granted_at = $2, expires_at = $3, notes = $4, verification_id = $5
				WHERE id = $1
			`, cur.ID, cur.GrantedAt, cur.ExpiresAt, cur.Notes, cur.VerificationID); err != nil {
				return err
			}
			out = cur
			return nil

		case isNoRows(err):
			if _, err := tx.Exec(ctx, `
				INSERT INTO access_permissions (`+permissionColumns+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`,
				p.ID, p.SubjectID, p.GrantedToID, string(p.Scope), p.GrantedAt, p.ExpiresAt,
				p.Active, p.Notes, p.RevokedAt, p.VerificationID,
			); err != nil {
				return err
			}
			out = p
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return accesspermissions.Permission{}, err
	}
	return out, nil
}

func (r *PermissionsRepo) Update(ctx context.Context, p accesspermissions.Permission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE access_permissions
		SET scope = $2, granted_at = $3, expires_at = $4, active = $5,
		    notes = $6, revoked_at = $7, verification_id = $8
		WHERE id = $1
	`, p.ID, string(p.Scope), p.GrantedAt, p.ExpiresAt, p.Active, p.Notes, p.RevokedAt, p.VerificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return accesspermissions.ErrNotFound
	}
	return nil
}

func (r *PermissionsRepo) GetByID(ctx context.Context, id string) (accesspermissions.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+` FROM access_permissions WHERE id = $1
	`, id))
	if isNoRows(err) {
		return accesspermissions.Permission{}, accesspermissions.ErrNotFound
	}
	return p, err
}

func (r *PermissionsRepo) FindCurrent(ctx context.Context, subjectID, grantedToID string, now time.Time) (accesspermissions.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM access_permissions
		WHERE `+currentPermission+`
		ORDER BY granted_at DESC, seq DESC
		LIMIT 1
	`, subjectID, grantedToID, now))
	if isNoRows(err) {
		return accesspermissions.Permission{}, accesspermissions.ErrNotFound
	}
	return p, err
}

func (r *PermissionsRepo) ListBySubject(ctx context.Context, subjectID string) ([]accesspermissions.Permission, error) {
	return r.list(ctx, `subject_id = $1`, subjectID)
}

func (r *PermissionsRepo) ListByGrantee(ctx context.Context, grantedToID string) ([]accesspermissions.Permission, error) {
	return r.list(ctx, `granted_to_id = $1`, grantedToID)
}

func (r *PermissionsRepo) list(ctx context.Context, where string, arg string) ([]accesspermissions.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM access_permissions
		WHERE `+where+`
		ORDER BY granted_at DESC, seq DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accesspermissions.Permission, 0)
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPermission(row rowScanner) (accesspermissions.Permission, error) {
	var p accesspermissions.Permission
	var scope string
	err := row.Scan(
		&p.ID, &p.SubjectID, &p.GrantedToID, &scope, &p.GrantedAt, &p.ExpiresAt,
		&p.Active, &p.Notes, &p.RevokedAt, &p.VerificationID,
	)
	if err != nil {
		return accesspermissions.Permission{}, err
	}
	p.Scope = accesspermissions.Scope(scope)
	return p, nil
}
