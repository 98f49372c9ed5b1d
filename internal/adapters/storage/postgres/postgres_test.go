package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"medivault/internal/domain/accesspermissions"
	"medivault/internal/domain/deletionrequests"
	"medivault/internal/domain/documents"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	_ otp.Repository               = (*OTPRepo)(nil)
	_ accesspermissions.Repository = (*PermissionsRepo)(nil)
	_ documents.Repository         = (*DocumentsRepo)(nil)
	_ deletionrequests.Repository  = (*DeletionRequestsRepo)(nil)
	_ profiles.Repository          = (*ProfilesRepo)(nil)
)

func TestIsUniqueViolation(t *testing.T) {
	pending := &pgconn.PgError{Code: "23505", ConstraintName: "deletion_requests_pending_uq"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"matching constraint", pending, "deletion_requests_pending_uq", true},
		{"wrapped", fmt.Errorf("insert: %w", pending), "deletion_requests_pending_uq", true},
		{"any constraint", pending, "", true},
		{"other constraint", pending, "profiles_patient_code_uq", false},
		{"other code", &pgconn.PgError{Code: "23503"}, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("isUniqueViolation = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to match")
	}
	if isNoRows(errors.New("other")) {
		t.Fatalf("unexpected match")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	if len(names) == 0 || names[0] != "migrations/001_init.sql" {
		t.Fatalf("expected 001_init.sql embedded, got %v", names)
	}
}
