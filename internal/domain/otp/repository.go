package otp

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound lo devuelven los stores cuando no hay fila elegible.
	ErrNotFound = errors.New("otp: not found")
	// ErrAlreadyConsumed lo devuelve Consume cuando perdió el compare-and-set.
	ErrAlreadyConsumed = errors.New("otp: already consumed")
)

type Repository interface {
	Create(ctx context.Context, v Verification) error

	// FindLatestEligible: mismo Match y código, sin consumir, ExpiresAt > now y
	// delivery != failed. Gana el IssuedAt más reciente (empate: último insertado).
	FindLatestEligible(ctx context.Context, m Match, code string, now time.Time) (Verification, error)

	// Consume marca consumed=true solo si estaba en false.
	Consume(ctx context.Context, id string, at time.Time) error

	MarkDelivery(ctx context.Context, id string, status DeliveryStatus, detail string) error

	ListBySubject(ctx context.Context, subjectID string) ([]Verification, error)
}
