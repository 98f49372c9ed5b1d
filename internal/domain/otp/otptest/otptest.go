// Package otptest trae un store y un sender en memoria para tests de los
// paquetes que consumen otp.Service (efectores).
package otptest

import (
	"context"
	"sync"
	"time"

	"medivault/internal/domain/otp"
)

type Repo struct {
	mu   sync.Mutex
	rows []otp.Verification
}

func NewRepo() *Repo { return &Repo{} }

func (r *Repo) Create(ctx context.Context, v otp.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, v)
	return nil
}

func (r *Repo) FindLatestEligible(ctx context.Context, m otp.Match, code string, now time.Time) (otp.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].Eligible(m, code, now) {
			return r.rows[i], nil
		}
	}
	return otp.Verification{}, otp.ErrNotFound
}

func (r *Repo) Consume(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		if r.rows[i].Consumed {
			return otp.ErrAlreadyConsumed
		}
		r.rows[i].Consumed = true
		r.rows[i].VerifiedAt = &at
		return nil
	}
	return otp.ErrNotFound
}

func (r *Repo) MarkDelivery(ctx context.Context, id string, status otp.DeliveryStatus, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Delivery = status
			r.rows[i].DeliveryError = detail
			return nil
		}
	}
	return otp.ErrNotFound
}

func (r *Repo) ListBySubject(ctx context.Context, subjectID string) ([]otp.Verification, error) {
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

// Sender guarda los mensajes en vez de enviarlos. Err != nil simula caída.
type Sender struct {
	mu   sync.Mutex
	msgs []otp.Message
	Err  error
}

func (s *Sender) Send(ctx context.Context, msg otp.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

// SetErr cambia la falla simulada con el sender ya en uso.
func (s *Sender) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

func (s *Sender) Messages() []otp.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]otp.Message(nil), s.msgs...)
}

// LastCode devuelve el último código entregado a ese email o teléfono.
func (s *Sender) LastCode(address string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].To.Email == address || s.msgs[i].To.Phone == address {
			return s.msgs[i].Code, true
		}
	}
	return "", false
}

// NewService arma un otp.Service sin throttle sobre Repo y Sender nuevos.
func NewService() (*otp.Service, *Repo, *Sender) {
	repo := NewRepo()
	sender := &Sender{}
	return otp.NewService(repo, sender, otp.Options{}), repo, sender
}
