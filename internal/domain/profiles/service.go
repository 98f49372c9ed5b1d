package profiles

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"medivault/internal/ports/auth"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRoleChange       = errors.New("role cannot be changed")
)

const patientCodePrefix = "PAT-"

var patientCodeSpace = big.NewInt(100_000_000)

type Service struct {
	repo Repository
	now  func() time.Time

	newPatientCode func() (string, error)
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:           repo,
		now:            time.Now,
		newPatientCode: generatePatientCode,
	}
}

type UpsertInput struct {
	FullName string
	Email    string
	Phone    string
	Role     auth.Role
}

// Upsert guarda el perfil propio. El rol queda fijo en el primer guardado y
// los pacientes reciben su código en ese momento.
func (s *Service) Upsert(ctx context.Context, userID string, in UpsertInput) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, ErrNotAuthenticated
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return Profile{}, fmt.Errorf("%w: email", ErrInvalidInput)
		}
	}
	if !in.Role.Valid() {
		return Profile{}, fmt.Errorf("%w: role", ErrInvalidInput)
	}

	now := s.now()

	p, err := s.repo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = Profile{UserID: userID, Role: in.Role, CreatedAt: now}
	case err != nil:
		return Profile{}, err
	case p.Role != in.Role:
		return Profile{}, ErrRoleChange
	}

	p.FullName = strings.TrimSpace(in.FullName)
	p.Email = email
	p.Phone = strings.TrimSpace(in.Phone)
	p.UpdatedAt = now

	if p.IsPatient() && p.PatientCode == "" {
		return s.assignPatientCode(ctx, p)
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// assignPatientCode reintenta ante colisión; 1e8 códigos hacen que sea raro.
func (s *Service) assignPatientCode(ctx context.Context, p Profile) (Profile, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := s.newPatientCode()
		if err != nil {
			return Profile{}, err
		}
		p.PatientCode = code

		err = s.repo.Upsert(ctx, p)
		if errors.Is(err, ErrPatientCodeTaken) {
			continue
		}
		if err != nil {
			return Profile{}, err
		}
		return p, nil
	}
	return Profile{}, fmt.Errorf("assign patient code: %w", ErrPatientCodeTaken)
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, ErrInvalidInput
	}
	return s.repo.GetByUserID(ctx, userID)
}

// FindPatient busca por email o por código PAT-XXXXXXXX. Solo devuelve pacientes.
func (s *Service) FindPatient(ctx context.Context, query string) (Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Profile{}, ErrInvalidInput
	}

	var (
		p   Profile
		err error
	)
	if strings.HasPrefix(strings.ToUpper(query), patientCodePrefix) {
		p, err = s.repo.FindByPatientCode(ctx, strings.ToUpper(query))
	} else {
		p, err = s.repo.FindByEmail(ctx, strings.ToLower(query))
	}
	if err != nil {
		return Profile{}, err
	}
	if !p.IsPatient() {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func generatePatientCode() (string, error) {
	n, err := rand.Int(rand.Reader, patientCodeSpace)
	if err != nil {
		return "", fmt.Errorf("generate patient code: %w", err)
	}
	return fmt.Sprintf("%s%08d", patientCodePrefix, n.Int64()), nil
}
