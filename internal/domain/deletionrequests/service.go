package deletionrequests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medivault/internal/domain/documents"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
	"medivault/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrBadState           = errors.New("invalid state")
	ErrConflictingRequest = errors.New("a pending deletion request already exists for this document")
)

const maxReasonLen = 1000

type OTP interface {
	Issue(ctx context.Context, in otp.IssueInput) (otp.Issued, error)
	Verify(ctx context.Context, in otp.VerifyInput) (otp.Proof, error)
}

// Documents es lo que usa este paquete de documents.Service.
type Documents interface {
	GetOwned(ctx context.Context, patientID, documentID string) (documents.Document, error)
	TrashApproved(ctx context.Context, proof otp.Proof, documentID, processedBy string) (documents.Document, error)
}

type Directory interface {
	Get(ctx context.Context, userID string) (profiles.Profile, error)
}

type Service struct {
	repo      Repository
	otp       OTP
	docs      Documents
	directory Directory
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, otpSvc OTP, docs Documents, directory Directory, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		otp:       otpSvc,
		docs:      docs,
		directory: directory,
		log:       log.With(map[string]any{"component": "deletionrequests"}),
		now:       time.Now,
	}
}

// Create lo hace el paciente dueño sobre un documento no borrado.
func (s *Service) Create(ctx context.Context, patientID, documentID, reason string) (Request, error) {
	patientID = strings.TrimSpace(patientID)
	documentID = strings.TrimSpace(documentID)
	reason = strings.TrimSpace(reason)

	if patientID == "" {
		return Request{}, otp.ErrNotAuthenticated
	}
	if documentID == "" || len(reason) > maxReasonLen {
		return Request{}, ErrInvalidInput
	}

	d, err := s.docs.GetOwned(ctx, patientID, documentID)
	if err != nil {
		return Request{}, err
	}
	if d.Trashed {
		return Request{}, fmt.Errorf("%w: document already in trash", ErrBadState)
	}

	// Chequeo previo barato; el store lo vuelve a garantizar al insertar.
	pending, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return Request{}, err
	}
	for _, p := range pending {
		if p.DocumentID == documentID && p.Status == StatusPending {
			return Request{}, ErrConflictingRequest
		}
	}

	req := Request{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		PatientID:   patientID,
		Reason:      reason,
		Status:      StatusPending,
		RequestedAt: s.now(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return Request{}, err
	}

	s.log.Info("deletion requested", map[string]any{
		"request_id":  req.ID,
		"document_id": documentID,
		"patient_id":  patientID,
	})
	return req, nil
}

// SendApprovalOTP manda al paciente un código document_deletion atado a este pedido.
func (s *Service) SendApprovalOTP(ctx context.Context, adminID, requestID string) (otp.Issued, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return otp.Issued{}, otp.ErrNotAuthenticated
	}

	req, err := s.pending(ctx, requestID)
	if err != nil {
		return otp.Issued{}, err
	}

	patient, err := s.directory.Get(ctx, req.PatientID)
	if err != nil {
		return otp.Issued{}, fmt.Errorf("resolve patient: %w", err)
	}
	requesterName := "Hospital administrator"
	if admin, err := s.directory.Get(ctx, adminID); err == nil && admin.DisplayName() != "" {
		requesterName = admin.DisplayName()
	}

	return s.otp.Issue(ctx, otp.IssueInput{
		RequesterID:   adminID,
		RequesterName: requesterName,
		SubjectID:     req.PatientID,
		Purpose:       otp.PurposeDocumentDeletion,
		ReferenceID:   req.ID,
		Recipient: otp.Recipient{
			Name:  patient.DisplayName(),
			Email: patient.Email,
			Phone: patient.Phone,
		},
	})
}

// Approve: verifica (consume) -> pending->approved -> trash del documento.
// Cualquier falla después de consumir el código es ErrEffectorWriteFailed.
func (s *Service) Approve(ctx context.Context, adminID, requestID, code string) (Request, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return Request{}, otp.ErrNotAuthenticated
	}

	req, err := s.pending(ctx, requestID)
	if err != nil {
		return Request{}, err
	}

	proof, err := s.otp.Verify(ctx, otp.VerifyInput{
		RequesterID: adminID,
		SubjectID:   req.PatientID,
		Purpose:     otp.PurposeDocumentDeletion,
		ReferenceID: req.ID,
		Code:        code,
	})
	if err != nil {
		return Request{}, err
	}

	fields := map[string]any{
		"request_id":      req.ID,
		"document_id":     req.DocumentID,
		"patient_id":      req.PatientID,
		"admin_id":        adminID,
		"verification_id": proof.VerificationID(),
	}

	approved, err := req.transition(StatusApproved, adminID, s.now())
	if err == nil {
		err = s.repo.UpdateFrom(ctx, approved, StatusPending)
	}
	if err != nil {
		fields["err"] = err
		s.log.Error("deletion approval not persisted after otp verification", fields)
		return Request{}, fmt.Errorf("%w: approve request: %w", otp.ErrEffectorWriteFailed, err)
	}

	if _, err := s.docs.TrashApproved(ctx, proof, req.DocumentID, adminID); err != nil {
		fields["err"] = err
		s.log.Error("request approved but document not trashed", fields)
		return approved, fmt.Errorf("%w: trash document: %w", otp.ErrEffectorWriteFailed, err)
	}

	s.log.Info("deletion approved", fields)
	return approved, nil
}

// Reject no pide OTP: cualquier admin puede rechazar. El documento no se toca.
func (s *Service) Reject(ctx context.Context, adminID, requestID string) (Request, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return Request{}, otp.ErrNotAuthenticated
	}

	req, err := s.pending(ctx, requestID)
	if err != nil {
		return Request{}, err
	}

	rejected, err := req.transition(StatusRejected, adminID, s.now())
	if err != nil {
		return Request{}, err
	}
	if err := s.repo.UpdateFrom(ctx, rejected, StatusPending); err != nil {
		return Request{}, err
	}

	s.log.Info("deletion rejected", map[string]any{
		"request_id": req.ID,
		"admin_id":   adminID,
	})
	return rejected, nil
}

// ListPending es la cola del admin, más nuevos primero.
func (s *Service) ListPending(ctx context.Context) ([]Request, error) {
	return s.repo.ListByStatus(ctx, StatusPending)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Request, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, otp.ErrNotAuthenticated
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) pending(ctx context.Context, requestID string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return Request{}, ErrInvalidInput
	}
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: request already %s", ErrBadState, req.Status)
	}
	return req, nil
}
