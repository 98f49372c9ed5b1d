package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medivault/internal/middleware"
	"medivault/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me/profile", func(mr chi.Router) {
		mr.Get("/", getMyProfileHandler(svc))
		mr.Put("/", upsertMyProfileHandler(svc))
	})

	// Búsqueda de pacientes para doctores (email o PAT-XXXXXXXX)
	r.With(middleware.RequireRole(auth.RoleDoctor)).Get("/patients/search", searchPatientHandler(svc))
}

type upsertProfileRequest struct {
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Role     auth.Role `json:"role"`
}

type profileResponse struct {
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Role        auth.Role `json:"role"`
	PatientCode string    `json:"patient_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// patientSearchResponse no expone teléfono ni email completo del paciente.
type patientSearchResponse struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	PatientCode string `json:"patient_code"`
}

// getMyProfileHandler godoc
// @Summary  Current user's profile
// @Tags     profiles
// @Produce  json
// @Success  200 {object} profileResponse
// @Router   /me/profile [get]
func getMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

// upsertMyProfileHandler godoc
// @Summary  Create or update the current user's profile
// @Tags     profiles
// @Accept   json
// @Produce  json
// @Param    body body upsertProfileRequest true "profile"
// @Success  200 {object} profileResponse
// @Router   /me/profile [put]
func upsertMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req upsertProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		// El rol del token manda; el body solo sirve cuando el proveedor no lo trae.
		role := claims.Role
		if role == "" {
			role = auth.Role(strings.TrimSpace(string(req.Role)))
		}
		email := req.Email
		if strings.TrimSpace(email) == "" {
			email = claims.Email
		}

		p, err := svc.Upsert(r.Context(), claims.UserID, UpsertInput{
			FullName: req.FullName,
			Email:    email,
			Phone:    req.Phone,
			Role:     role,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

// searchPatientHandler godoc
// @Summary  Find a patient by email or patient code
// @Tags     profiles
// @Produce  json
// @Param    q query string true "email or PAT-XXXXXXXX"
// @Success  200 {object} patientSearchResponse
// @Router   /patients/search [get]
func searchPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.FindPatient(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, patientSearchResponse{
			UserID:      p.UserID,
			FullName:    p.FullName,
			PatientCode: p.PatientCode,
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotAuthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrRoleChange):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		FullName:    p.FullName,
		Email:       p.Email,
		Phone:       p.Phone,
		Role:        p.Role,
		PatientCode: p.PatientCode,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
