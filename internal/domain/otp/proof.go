package otp

import "time"

// Proof solo la construye Service.Verify. Los efectores la exigen como
// constancia de que el paciente autorizó la acción.
type Proof struct {
	verificationID string
	requesterID    string
	subjectID      string
	purpose        Purpose
	referenceID    string
	verifiedAt     time.Time
}

func (p Proof) VerificationID() string { return p.verificationID }
func (p Proof) RequesterID() string    { return p.requesterID }
func (p Proof) SubjectID() string      { return p.subjectID }
func (p Proof) Purpose() Purpose       { return p.purpose }
func (p Proof) ReferenceID() string    { return p.referenceID }
func (p Proof) VerifiedAt() time.Time  { return p.verifiedAt }

// Require valida que la prueba exista y sea del propósito esperado.
func (p Proof) Require(purpose Purpose) error {
	if p.verificationID == "" || p.purpose != purpose {
		return ErrInvalidProof
	}
	return nil
}
