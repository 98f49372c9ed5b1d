package profiles

import (
	"time"

	"medivault/internal/ports/auth"
)

// Profile es el directorio de usuarios: nombre y direcciones de contacto
// para entregar OTPs, más el código visible del paciente (PAT-XXXXXXXX).
type Profile struct {
	UserID string

	FullName string
	Email    string
	Phone    string
	Role     auth.Role

	// Solo pacientes.
	PatientCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) IsPatient() bool { return p.Role == auth.RolePatient }

// DisplayName cae al email si el perfil no tiene nombre cargado.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
