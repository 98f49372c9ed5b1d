package profiles

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("profile not found")

// ErrPatientCodeTaken lo devuelve Upsert si el código ya pertenece a otro usuario.
var ErrPatientCodeTaken = errors.New("patient code already taken")

type Repository interface {
	Upsert(ctx context.Context, p Profile) error
	GetByUserID(ctx context.Context, userID string) (Profile, error)
	FindByEmail(ctx context.Context, email string) (Profile, error)
	FindByPatientCode(ctx context.Context, code string) (Profile, error)
}
