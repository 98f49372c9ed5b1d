package accesspermissions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
	"medivault/internal/middleware"
	"medivault/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, directory Directory) {
	// Doctor: pedir y verificar acceso a un paciente
	r.Group(func(dr chi.Router) {
		dr.Use(middleware.RequireRole(auth.RoleDoctor))
		dr.Post("/patients/{patientID}/access/otp", requestAccessHandler(svc))
		dr.Post("/patients/{patientID}/access/verify", verifyAccessHandler(svc))
		dr.Get("/me/patients", listMyPatientsHandler(svc, directory))
	})

	// Paciente: ver y revocar quién tiene acceso
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireRole(auth.RolePatient))
		pr.Get("/me/permissions", listMyPermissionsHandler(svc, directory))
		pr.Post("/permissions/{permissionID}/revoke", revokePermissionHandler(svc))
	})
}

type verifyAccessRequest struct {
	Code string `json:"code"`
}

// otpIssuedResponse nunca lleva el código: viaja solo por el canal de entrega.
type otpIssuedResponse struct {
	VerificationID string    `json:"verification_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type permissionResponse struct {
	ID            string     `json:"id"`
	SubjectID     string     `json:"subject_id"`
	SubjectName   string     `json:"subject_name,omitempty"`
	GrantedToID   string     `json:"granted_to_id"`
	GrantedToName string     `json:"granted_to_name,omitempty"`
	Scope         Scope      `json:"scope"`
	GrantedAt     time.Time  `json:"granted_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Active        bool       `json:"active"`
	Notes         string     `json:"notes,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// requestAccessHandler godoc
// @Summary  Send a document-access code to the patient
// @Tags     access
// @Produce  json
// @Param    patientID path string true "patient user id"
// @Success  201 {object} otpIssuedResponse
// @Failure  502 {string} string "code could not be delivered"
// @Router   /patients/{patientID}/access/otp [post]
func requestAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		issued, err := svc.RequestAccess(r.Context(), claims.UserID, chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, otpIssuedResponse{
			VerificationID: issued.VerificationID,
			ExpiresAt:      issued.ExpiresAt,
		})
	}
}

// verifyAccessHandler godoc
// @Summary  Verify the patient's code and grant view access
// @Tags     access
// @Accept   json
// @Produce  json
// @Param    patientID path string true "patient user id"
// @Param    body body verifyAccessRequest true "code relayed by the patient"
// @Success  201 {object} permissionResponse
// @Failure  422 {string} string "invalid or expired code"
// @Router   /patients/{patientID}/access/verify [post]
func verifyAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req verifyAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.VerifyAccess(r.Context(), claims.UserID, chi.URLParam(r, "patientID"), req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPermissionResponse(p))
	}
}

// listMyPermissionsHandler godoc
// @Summary  Doctors with access to the current patient's documents
// @Tags     access
// @Produce  json
// @Success  200 {array} permissionResponse
// @Router   /me/permissions [get]
func listMyPermissionsHandler(svc *Service, directory Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListBySubject(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]permissionResponse, 0, len(items))
		for _, p := range items {
			resp := toPermissionResponse(p)
			if doc, err := directory.Get(r.Context(), p.GrantedToID); err == nil {
				resp.GrantedToName = doc.DisplayName()
			}
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listMyPatientsHandler godoc
// @Summary  Patients the current doctor is currently authorized for
// @Tags     access
// @Produce  json
// @Success  200 {array} permissionResponse
// @Router   /me/patients [get]
func listMyPatientsHandler(svc *Service, directory Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListCurrentByGrantee(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]permissionResponse, 0, len(items))
		for _, p := range items {
			resp := toPermissionResponse(p)
			if pat, err := directory.Get(r.Context(), p.SubjectID); err == nil {
				resp.SubjectName = pat.DisplayName()
			}
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// revokePermissionHandler godoc
// @Summary  Revoke a doctor's access
// @Tags     access
// @Produce  json
// @Param    permissionID path string true "permission id"
// @Success  200 {object} permissionResponse
// @Router   /permissions/{permissionID}/revoke [post]
func revokePermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		p, err := svc.Revoke(r.Context(), claims.UserID, chi.URLParam(r, "permissionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPermissionResponse(p))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, profiles.ErrNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	default:
		otp.WriteError(w, err)
	}
}

func toPermissionResponse(p Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		SubjectID:   p.SubjectID,
		GrantedToID: p.GrantedToID,
		Scope:       p.Scope,
		GrantedAt:   p.GrantedAt,
		ExpiresAt:   p.ExpiresAt,
		Active:      p.Active,
		Notes:       p.Notes,
		RevokedAt:   p.RevokedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
