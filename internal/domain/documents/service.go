package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)

// Authorizer responde si grantedToID puede leer los documentos de subjectID
// (lo implementa accesspermissions.Service).
type Authorizer interface {
	IsCurrentlyAuthorized(ctx context.Context, subjectID, grantedToID string) (bool, error)
}

type Service struct {
	repo  Repository
	authz Authorizer
	log   logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, authz Authorizer, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		authz: authz,
		log:   log.With(map[string]any{"component": "documents"}),
		now:   time.Now,
	}
}

type CreateInput struct {
	PatientID string

	FileName       string
	FilePath       string
	FileType       string
	DocumentType   string
	Description    string
	HospitalName   string
	DateOfDocument *time.Time
	Tags           []string
}

// Create registra la metadata de un archivo ya subido. Solo el paciente
// sube a su propio expediente (los permisos de doctores son view_only).
func (s *Service) Create(ctx context.Context, uploaderID string, in CreateInput) (Document, error) {
	uploaderID = strings.TrimSpace(uploaderID)
	patientID := strings.TrimSpace(in.PatientID)
	if uploaderID == "" {
		return Document{}, ErrNotAuthenticated
	}
	if patientID == "" {
		patientID = uploaderID
	}
	if patientID != uploaderID {
		return Document{}, ErrForbidden
	}

	fileName := strings.TrimSpace(in.FileName)
	filePath := strings.TrimSpace(in.FilePath)
	if fileName == "" || filePath == "" {
		return Document{}, fmt.Errorf("%w: file_name and file_path are required", ErrInvalidInput)
	}

	now := s.now()
	d := Document{
		ID:             uuid.NewString(),
		PatientID:      patientID,
		UploadedBy:     uploaderID,
		FileName:       fileName,
		FilePath:       filePath,
		FileType:       strings.TrimSpace(in.FileType),
		DocumentType:   strings.TrimSpace(in.DocumentType),
		Description:    strings.TrimSpace(in.Description),
		HospitalName:   strings.TrimSpace(in.HospitalName),
		DateOfDocument: in.DateOfDocument,
		Tags:           normalizeTags(in.Tags),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return Document{}, err
	}
	return d, nil
}

// ListActive: el dueño o un doctor con permiso vigente.
func (s *Service) ListActive(ctx context.Context, viewerID, patientID string) ([]Document, error) {
	viewerID = strings.TrimSpace(viewerID)
	patientID = strings.TrimSpace(patientID)
	if viewerID == "" {
		return nil, ErrNotAuthenticated
	}
	if patientID == "" {
		return nil, ErrInvalidInput
	}

	if err := s.canRead(ctx, viewerID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID, false)
}

// Get aplica la misma regla; la papelera solo la ve el dueño.
func (s *Service) Get(ctx context.Context, viewerID, documentID string) (Document, error) {
	viewerID = strings.TrimSpace(viewerID)
	documentID = strings.TrimSpace(documentID)
	if viewerID == "" {
		return Document{}, ErrNotAuthenticated
	}
	if documentID == "" {
		return Document{}, ErrInvalidInput
	}

	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if d.PatientID == viewerID {
		return d, nil
	}
	if d.Trashed {
		return Document{}, ErrNotFound
	}
	if err := s.canRead(ctx, viewerID, d.PatientID); err != nil {
		return Document{}, err
	}
	return d, nil
}

// GetOwned es para flujos del dueño (pedir borrado): nunca consulta permisos.
func (s *Service) GetOwned(ctx context.Context, patientID, documentID string) (Document, error) {
	d, err := s.repo.GetByID(ctx, strings.TrimSpace(documentID))
	if err != nil {
		return Document{}, err
	}
	if d.PatientID != strings.TrimSpace(patientID) {
		return Document{}, ErrForbidden
	}
	return d, nil
}

func (s *Service) ListTrashed(ctx context.Context, patientID string) ([]Document, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.repo.ListByPatient(ctx, patientID, true)
}

// Restore es autoservicio del paciente sobre su papelera, sin OTP.
func (s *Service) Restore(ctx context.Context, patientID, documentID string) (Document, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Document{}, ErrNotAuthenticated
	}

	d, err := s.GetOwned(ctx, patientID, documentID)
	if err != nil {
		return Document{}, err
	}
	if !d.Trashed {
		return d, nil
	}

	d = d.restore(s.now())
	if err := s.repo.Update(ctx, d); err != nil {
		return Document{}, err
	}

	s.log.Info("document restored", map[string]any{"document_id": d.ID, "patient_id": d.PatientID})
	return d, nil
}

// TrashApproved es la única escritura de un no-dueño sobre un documento: exige
// una Proof document_deletion del paciente dueño, emitida al mismo processedBy.
func (s *Service) TrashApproved(ctx context.Context, proof otp.Proof, documentID, processedBy string) (Document, error) {
	if err := proof.Require(otp.PurposeDocumentDeletion); err != nil {
		return Document{}, err
	}
	processedBy = strings.TrimSpace(processedBy)
	if processedBy == "" || proof.RequesterID() != processedBy {
		return Document{}, otp.ErrInvalidProof
	}

	d, err := s.repo.GetByID(ctx, strings.TrimSpace(documentID))
	if err != nil {
		return Document{}, err
	}
	if d.PatientID != proof.SubjectID() {
		return Document{}, otp.ErrInvalidProof
	}
	if d.Trashed {
		return d, nil
	}

	d = d.trash(processedBy, s.now())
	if err := s.repo.Update(ctx, d); err != nil {
		return Document{}, err
	}

	s.log.Info("document trashed after approved deletion", map[string]any{
		"document_id":     d.ID,
		"patient_id":      d.PatientID,
		"processed_by":    processedBy,
		"verification_id": proof.VerificationID(),
	})
	return d, nil
}

func (s *Service) canRead(ctx context.Context, viewerID, patientID string) error {
	if viewerID == patientID {
		return nil
	}
	ok, err := s.authz.IsCurrentlyAuthorized(ctx, patientID, viewerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func normalizeTags(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := strings.ToLower(strings.TrimSpace(raw))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
