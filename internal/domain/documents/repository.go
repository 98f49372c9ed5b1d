package documents

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

type Repository interface {
	Create(ctx context.Context, d Document) error
	Update(ctx context.Context, d Document) error
	GetByID(ctx context.Context, id string) (Document, error)

	// ListByPatient devuelve activos (trashed=false) o la papelera (trashed=true),
	// más recientes primero.
	ListByPatient(ctx context.Context, patientID string, trashed bool) ([]Document, error)
}
