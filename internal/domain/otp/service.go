package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medivault/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidOrExpired = errors.New("otp invalid or expired")
	ErrDeliveryFailed   = errors.New("otp delivery failed")
	ErrTooManyAttempts  = errors.New("too many otp attempts")
	ErrInvalidProof     = errors.New("invalid verification proof")

	// ErrEffectorWriteFailed: la verificación salió bien pero el efecto prometido
	// (grant, trash) no se pudo escribir. Lo usan los efectores de otros paquetes.
	ErrEffectorWriteFailed = errors.New("verified but effect not applied")
)

const DefaultTTL = 10 * time.Minute

type Options struct {
	TTL time.Duration

	// MaxAttempts <= 0 desactiva el throttle.
	MaxAttempts   int
	AttemptWindow time.Duration

	Logger logger.Logger
}

type Service struct {
	repo     Repository
	sender   Sender
	ttl      time.Duration
	throttle *Throttle
	log      logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, sender Sender, opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		sender:   sender,
		ttl:      ttl,
		throttle: NewThrottle(opts.MaxAttempts, opts.AttemptWindow),
		log:      log.With(map[string]any{"component": "otp"}),
		now:      time.Now,
	}
}

type IssueInput struct {
	RequesterID   string
	RequesterName string
	SubjectID     string
	Purpose       Purpose
	ReferenceID   string
	Recipient     Recipient
}

type Issued struct {
	VerificationID string
	Code           string
	ExpiresAt      time.Time
}

// Issue persiste el código y lo entrega. Si la entrega falla devuelve
// ErrDeliveryFailed: la fila queda (auditoría) pero marcada failed y no verificable.
func (s *Service) Issue(ctx context.Context, in IssueInput) (Issued, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	subjectID := strings.TrimSpace(in.SubjectID)
	referenceID := strings.TrimSpace(in.ReferenceID)

	if requesterID == "" {
		return Issued{}, ErrNotAuthenticated
	}
	if subjectID == "" || !in.Purpose.Valid() {
		return Issued{}, ErrValidation
	}
	if strings.TrimSpace(in.Recipient.Email) == "" && strings.TrimSpace(in.Recipient.Phone) == "" {
		return Issued{}, fmt.Errorf("%w: recipient has no delivery address", ErrValidation)
	}

	code, err := GenerateCode()
	if err != nil {
		return Issued{}, err
	}

	now := s.now()
	v := Verification{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		SubjectID:   subjectID,
		Purpose:     in.Purpose,
		ReferenceID: referenceID,
		Code:        code,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		Delivery:    DeliveryPending,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return Issued{}, fmt.Errorf("store otp: %w", err)
	}

	fields := map[string]any{
		"verification_id": v.ID,
		"requester_id":    requesterID,
		"subject_id":      subjectID,
		"purpose":         string(in.Purpose),
	}

	sendErr := s.sender.Send(ctx, Message{
		Purpose:       in.Purpose,
		To:            in.Recipient,
		RequesterName: strings.TrimSpace(in.RequesterName),
		Code:          code,
		ExpiresAt:     v.ExpiresAt,
	})
	if sendErr != nil {
		if err := s.repo.MarkDelivery(ctx, v.ID, DeliveryFailed, sendErr.Error()); err != nil {
			fields["mark_err"] = err
		}
		fields["err"] = sendErr
		s.log.Warn("otp delivery failed", fields)
		return Issued{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
	}

	if err := s.repo.MarkDelivery(ctx, v.ID, DeliverySent, ""); err != nil {
		// El código ya llegó al paciente; la fila queda en pending, que sigue siendo elegible.
		fields["err"] = err
		s.log.Warn("otp delivery status not recorded", fields)
	}

	s.log.Info("otp issued", fields)
	return Issued{VerificationID: v.ID, Code: code, ExpiresAt: v.ExpiresAt}, nil
}

type VerifyInput struct {
	RequesterID string
	SubjectID   string
	Purpose     Purpose
	ReferenceID string
	Code        string
}

// Verify consume el código (compare-and-set) antes de devolver la Proof.
// Código incorrecto, usado o vencido => ErrInvalidOrExpired, sin distinguir.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (Proof, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	subjectID := strings.TrimSpace(in.SubjectID)

	if requesterID == "" {
		return Proof{}, ErrNotAuthenticated
	}
	if subjectID == "" || !in.Purpose.Valid() {
		return Proof{}, ErrValidation
	}
	code, ok := NormalizeCode(in.Code)
	if !ok {
		return Proof{}, fmt.Errorf("%w: code must be exactly %d digits", ErrValidation, CodeLength)
	}

	if !s.throttle.Allow(requesterID, subjectID, s.now()) {
		s.log.Warn("otp verification throttled", map[string]any{
			"requester_id": requesterID,
			"subject_id":   subjectID,
		})
		return Proof{}, ErrTooManyAttempts
	}

	m := Match{
		RequesterID: requesterID,
		SubjectID:   subjectID,
		Purpose:     in.Purpose,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
	}

	// Un reintento: si otro request consumió la fila entre lookup y CAS,
	// volvemos a buscar; normalmente ya no queda nada elegible.
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()

		v, err := s.repo.FindLatestEligible(ctx, m, code, now)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return Proof{}, fmt.Errorf("lookup otp: %w", err)
		}

		err = s.repo.Consume(ctx, v.ID, now)
		if errors.Is(err, ErrAlreadyConsumed) {
			continue
		}
		if err != nil {
			return Proof{}, fmt.Errorf("consume otp: %w", err)
		}

		s.throttle.Reset(requesterID, subjectID)
		s.log.Info("otp verified", map[string]any{
			"verification_id": v.ID,
			"requester_id":    requesterID,
			"subject_id":      subjectID,
			"purpose":         string(in.Purpose),
		})
		return Proof{
			verificationID: v.ID,
			requesterID:    v.RequesterID,
			subjectID:      v.SubjectID,
			purpose:        v.Purpose,
			referenceID:    v.ReferenceID,
			verifiedAt:     now,
		}, nil
	}

	s.log.Info("otp rejected", map[string]any{
		"requester_id": requesterID,
		"subject_id":   subjectID,
		"purpose":      string(in.Purpose),
	})
	return Proof{}, ErrInvalidOrExpired
}

// AuditTrail lista los códigos emitidos para un paciente, sin el código en claro.
func (s *Service) AuditTrail(ctx context.Context, subjectID string) ([]Verification, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, ErrNotAuthenticated
	}
	items, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Code = ""
	}
	return items, nil
}
