package accesspermissions

import "time"

type Scope string

const ScopeViewOnly Scope = "view_only"

const grantNote = "Access granted via OTP verification"

// Permission autoriza a GrantedToID (doctor) a leer documentos de SubjectID (paciente).
type Permission struct {
	ID string

	SubjectID   string // paciente
	GrantedToID string // doctor

	Scope     Scope
	GrantedAt time.Time
	ExpiresAt *time.Time // nil => sin vencimiento
	Active    bool
	Notes     string

	RevokedAt *time.Time

	// Verificación OTP que originó (o refrescó) el permiso.
	VerificationID string
}

// CurrentlyAuthorized: active y no vencido. Es el único criterio de lectura.
func (p Permission) CurrentlyAuthorized(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}
