package accesspermissions

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("permission not found")

type Repository interface {
	// Grant refresca el permiso vigente de (subject, grantedTo) o inserta p si no
	// hay ninguno. Atómico por par: dos grants concurrentes no duplican filas.
	Grant(ctx context.Context, p Permission, now time.Time) (Permission, error)

	Update(ctx context.Context, p Permission) error
	GetByID(ctx context.Context, id string) (Permission, error)

	// FindCurrent devuelve el permiso vigente más reciente del par.
	FindCurrent(ctx context.Context, subjectID, grantedToID string, now time.Time) (Permission, error)

	ListBySubject(ctx context.Context, subjectID string) ([]Permission, error)
	ListByGrantee(ctx context.Context, grantedToID string) ([]Permission, error)
}
