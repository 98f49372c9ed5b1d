package deletionrequests

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("deletion request not found")

type Repository interface {
	// Create devuelve ErrConflictingRequest si ya hay un pending para el documento.
	Create(ctx context.Context, r Request) error

	GetByID(ctx context.Context, id string) (Request, error)

	// UpdateFrom persiste r solo si el status guardado sigue siendo from.
	// Si otro request lo cambió antes devuelve ErrBadState.
	UpdateFrom(ctx context.Context, r Request, from Status) error

	ListByStatus(ctx context.Context, status Status) ([]Request, error)
	ListByPatient(ctx context.Context, patientID string) ([]Request, error)
}
