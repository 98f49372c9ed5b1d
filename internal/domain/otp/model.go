package otp

import "time"

// Purpose indica qué autoriza el código.
// @Enum document_access, document_deletion
type Purpose string

const (
	PurposeDocumentAccess   Purpose = "document_access"
	PurposeDocumentDeletion Purpose = "document_deletion"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeDocumentAccess, PurposeDocumentDeletion:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Verification es una fila del store de OTP. Solo se muta una vez (Consumed=true)
// y nunca se borra.
type Verification struct {
	ID string

	RequesterID string // doctor o admin que inicia
	SubjectID   string // paciente que autoriza
	Purpose     Purpose
	ReferenceID string // p.ej. id de DeletionRequest; vacío para document_access

	Code string

	IssuedAt   time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
	Consumed   bool

	Delivery      DeliveryStatus
	DeliveryError string
}

// Match es la tupla a la que queda atado un código.
type Match struct {
	RequesterID string
	SubjectID   string
	Purpose     Purpose
	ReferenceID string
}

func (v Verification) Match() Match {
	return Match{
		RequesterID: v.RequesterID,
		SubjectID:   v.SubjectID,
		Purpose:     v.Purpose,
		ReferenceID: v.ReferenceID,
	}
}

// Eligible replica el filtro de FindLatestEligible para stores en memoria.
func (v Verification) Eligible(m Match, code string, now time.Time) bool {
	return v.Match() == m &&
		v.Code == code &&
		!v.Consumed &&
		v.ExpiresAt.After(now) &&
		v.Delivery != DeliveryFailed
}

type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Message es lo que recibe el Delivery Service.
type Message struct {
	Purpose       Purpose
	To            Recipient
	RequesterName string
	Code          string
	ExpiresAt     time.Time
}
