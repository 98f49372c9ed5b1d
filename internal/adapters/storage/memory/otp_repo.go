package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"medivault/internal/domain/otp"
)

// otpRepo guarda las filas en orden de inserción; el desempate de
// FindLatestEligible sale de ahí.
type otpRepo struct {
	mu   sync.Mutex
	rows []otp.Verification
	byID map[string]int
}

func NewOTPRepo() otp.Repository {
	return &otpRepo{byID: make(map[string]int)}
}

func (r *otpRepo) Create(ctx context.Context, v otp.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(v.ID) == "" {
		return errors.New("otp id required")
	}
	if _, exists := r.byID[v.ID]; exists {
		return errors.New("otp already exists")
	}
	r.byID[v.ID] = len(r.rows)
	r.rows = append(r.rows, v)
	return nil
}

func (r *otpRepo) FindLatestEligible(ctx context.Context, m otp.Match, code string, now time.Time) (otp.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var winner otp.Verification
	has := false
	for _, v := range r.rows {
		if !v.Eligible(m, code, now) {
			continue
		}
		// >= : en empate de IssuedAt gana el insertado después
		if !has || !v.IssuedAt.Before(winner.IssuedAt) {
			winner = v
			has = true
		}
	}
	if !has {
		return otp.Verification{}, otp.ErrNotFound
	}
	return winner, nil
}

// Consume es el compare-and-set: bajo el mismo lock que la lectura.
func (r *otpRepo) Consume(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return otp.ErrNotFound
	}
	if r.rows[i].Consumed {
		return otp.ErrAlreadyConsumed
	}
	r.rows[i].Consumed = true
	r.rows[i].VerifiedAt = &at
	return nil
}

func (r *otpRepo) MarkDelivery(ctx context.Context, id string, status otp.DeliveryStatus, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return otp.ErrNotFound
	}
	r.rows[i].Delivery = status
	r.rows[i].DeliveryError = detail
	return nil
}

func (r *otpRepo) ListBySubject(ctx context.Context, subjectID string) ([]otp.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]otp.Verification, 0)
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].SubjectID == subjectID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}
