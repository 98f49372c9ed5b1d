package auth

type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctor        Role = "doctor"
	RoleHospitalAdmin Role = "hospital_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleHospitalAdmin:
		return true
	}
	return false
}

// Claims representa la identidad autenticada del request.
type Claims struct {
	UserID string
	Email  string
	Role   Role
}
