package accesspermissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
	"medivault/internal/platform/logger"
	"medivault/internal/ports/auth"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// OTP es lo que este paquete usa de otp.Service.
type OTP interface {
	Issue(ctx context.Context, in otp.IssueInput) (otp.Issued, error)
	Verify(ctx context.Context, in otp.VerifyInput) (otp.Proof, error)
}

// Directory resuelve perfiles (nombre, email, rol) sin acoplarse al store.
type Directory interface {
	Get(ctx context.Context, userID string) (profiles.Profile, error)
}

type Options struct {
	// GrantTTL > 0 pone vencimiento a los permisos nuevos; 0 => sin vencimiento.
	GrantTTL time.Duration
	Logger   logger.Logger
}

type Service struct {
	repo      Repository
	otp       OTP
	directory Directory
	grantTTL  time.Duration
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, otpSvc OTP, directory Directory, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		otp:       otpSvc,
		directory: directory,
		grantTTL:  opts.GrantTTL,
		log:       log.With(map[string]any{"component": "accesspermissions"}),
		now:       time.Now,
	}
}

// RequestAccess manda al paciente un código document_access para este doctor.
func (s *Service) RequestAccess(ctx context.Context, doctorID, patientID string) (otp.Issued, error) {
	doctorID = strings.TrimSpace(doctorID)
	patientID = strings.TrimSpace(patientID)
	if doctorID == "" {
		return otp.Issued{}, otp.ErrNotAuthenticated
	}
	if patientID == "" || patientID == doctorID {
		return otp.Issued{}, ErrInvalidInput
	}

	doctor, err := s.directory.Get(ctx, doctorID)
	if errors.Is(err, profiles.ErrNotFound) {
		return otp.Issued{}, fmt.Errorf("%w: doctor profile required", ErrForbidden)
	}
	if err != nil {
		return otp.Issued{}, err
	}
	if doctor.Role != auth.RoleDoctor {
		return otp.Issued{}, ErrForbidden
	}

	patient, err := s.directory.Get(ctx, patientID)
	if err != nil {
		return otp.Issued{}, err
	}
	if !patient.IsPatient() {
		return otp.Issued{}, profiles.ErrNotFound
	}

	return s.otp.Issue(ctx, otp.IssueInput{
		RequesterID:   doctorID,
		RequesterName: doctor.DisplayName(),
		SubjectID:     patientID,
		Purpose:       otp.PurposeDocumentAccess,
		Recipient: otp.Recipient{
			Name:  patient.DisplayName(),
			Email: patient.Email,
			Phone: patient.Phone,
		},
	})
}

// VerifyAccess consume el código y otorga el permiso.
func (s *Service) VerifyAccess(ctx context.Context, doctorID, patientID, code string) (Permission, error) {
	proof, err := s.otp.Verify(ctx, otp.VerifyInput{
		RequesterID: doctorID,
		SubjectID:   patientID,
		Purpose:     otp.PurposeDocumentAccess,
		Code:        code,
	})
	if err != nil {
		return Permission{}, err
	}
	return s.Grant(ctx, proof)
}

// Grant es el efector: solo con una Proof document_access. Si la escritura
// falla el código ya está consumido y se informa ErrEffectorWriteFailed.
func (s *Service) Grant(ctx context.Context, proof otp.Proof) (Permission, error) {
	if err := proof.Require(otp.PurposeDocumentAccess); err != nil {
		return Permission{}, err
	}

	now := s.now()
	p := Permission{
		ID:             uuid.NewString(),
		SubjectID:      proof.SubjectID(),
		GrantedToID:    proof.RequesterID(),
		Scope:          ScopeViewOnly,
		GrantedAt:      now,
		Active:         true,
		Notes:          grantNote,
		VerificationID: proof.VerificationID(),
	}
	if s.grantTTL > 0 {
		exp := now.Add(s.grantTTL)
		p.ExpiresAt = &exp
	}

	fields := map[string]any{
		"subject_id":      p.SubjectID,
		"granted_to_id":   p.GrantedToID,
		"verification_id": p.VerificationID,
	}

	granted, err := s.repo.Grant(ctx, p, now)
	if err != nil {
		fields["err"] = err
		s.log.Error("access grant not persisted after otp verification", fields)
		return Permission{}, fmt.Errorf("%w: grant access: %v", otp.ErrEffectorWriteFailed, err)
	}

	fields["permission_id"] = granted.ID
	s.log.Info("access granted", fields)
	return granted, nil
}

// Revoke lo hace el paciente dueño, sin OTP. Idempotente.
func (s *Service) Revoke(ctx context.Context, patientID, permissionID string) (Permission, error) {
	patientID = strings.TrimSpace(patientID)
	permissionID = strings.TrimSpace(permissionID)
	if patientID == "" {
		return Permission{}, otp.ErrNotAuthenticated
	}
	if permissionID == "" {
		return Permission{}, ErrInvalidInput
	}

	p, err := s.repo.GetByID(ctx, permissionID)
	if err != nil {
		return Permission{}, err
	}
	if p.SubjectID != patientID {
		return Permission{}, ErrForbidden
	}
	if !p.Active {
		return p, nil
	}

	now := s.now()
	p.Active = false
	p.RevokedAt = &now
	if err := s.repo.Update(ctx, p); err != nil {
		return Permission{}, err
	}

	s.log.Info("access revoked", map[string]any{
		"permission_id": p.ID,
		"subject_id":    p.SubjectID,
		"granted_to_id": p.GrantedToID,
	})
	return p, nil
}

// IsCurrentlyAuthorized es el chequeo que usa la ruta de lectura de documentos.
func (s *Service) IsCurrentlyAuthorized(ctx context.Context, subjectID, grantedToID string) (bool, error) {
	subjectID = strings.TrimSpace(subjectID)
	grantedToID = strings.TrimSpace(grantedToID)
	if subjectID == "" || grantedToID == "" {
		return false, nil
	}

	now := s.now()
	p, err := s.repo.FindCurrent(ctx, subjectID, grantedToID, now)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.CurrentlyAuthorized(now), nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]Permission, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, otp.ErrNotAuthenticated
	}
	return s.repo.ListBySubject(ctx, subjectID)
}

// ListCurrentByGrantee: "mis pacientes" del doctor, solo permisos vigentes.
func (s *Service) ListCurrentByGrantee(ctx context.Context, grantedToID string) ([]Permission, error) {
	grantedToID = strings.TrimSpace(grantedToID)
	if grantedToID == "" {
		return nil, otp.ErrNotAuthenticated
	}
	items, err := s.repo.ListByGrantee(ctx, grantedToID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Permission, 0, len(items))
	for _, p := range items {
		if p.CurrentlyAuthorized(now) {
			out = append(out, p)
		}
	}
	return out, nil
}
