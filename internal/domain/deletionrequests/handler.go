package deletionrequests

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"medivault/internal/domain/documents"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
	"medivault/internal/middleware"
	"medivault/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Paciente
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireRole(auth.RolePatient))
		pr.Post("/documents/{documentID}/deletion-requests", createRequestHandler(svc))
		pr.Get("/me/deletion-requests", listMyRequestsHandler(svc))
	})

	// Admin del hospital
	r.Route("/admin/deletion-requests", func(ar chi.Router) {
		ar.Use(middleware.RequireRole(auth.RoleHospitalAdmin))
		ar.Get("/", listPendingHandler(svc))
		ar.Post("/{requestID}/otp", sendApprovalOTPHandler(svc))
		ar.Post("/{requestID}/approve", approveHandler(svc))
		ar.Post("/{requestID}/reject", rejectHandler(svc))
	})
}

type createRequestRequest struct {
	Reason string `json:"reason"`
}

type approveRequest struct {
	Code string `json:"code"`
}

type requestResponse struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	PatientID   string     `json:"patient_id"`
	Reason      string     `json:"reason,omitempty"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
}

type otpIssuedResponse struct {
	VerificationID string    `json:"verification_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// createRequestHandler godoc
// @Summary  Ask the hospital to delete one of my documents
// @Tags     deletion
// @Accept   json
// @Produce  json
// @Param    documentID path string true "document id"
// @Param    body body createRequestRequest false "optional reason"
// @Success  201 {object} requestResponse
// @Failure  409 {string} string "a pending request already exists"
// @Router   /documents/{documentID}/deletion-requests [post]
func createRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		// body opcional
		var req createRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		dr, err := svc.Create(r.Context(), claims.UserID, chi.URLParam(r, "documentID"), req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRequestResponse(dr))
	}
}

// listMyRequestsHandler godoc
// @Summary  Current patient's deletion requests
// @Tags     deletion
// @Produce  json
// @Success  200 {array} requestResponse
// @Router   /me/deletion-requests [get]
func listMyRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListByPatient(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// listPendingHandler godoc
// @Summary  Pending deletion requests queue
// @Tags     deletion
// @Produce  json
// @Success  200 {array} requestResponse
// @Router   /admin/deletion-requests [get]
func listPendingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListPending(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// sendApprovalOTPHandler godoc
// @Summary  Send the patient a code to confirm the deletion
// @Tags     deletion
// @Produce  json
// @Param    requestID path string true "deletion request id"
// @Success  201 {object} otpIssuedResponse
// @Failure  502 {string} string "code could not be delivered"
// @Router   /admin/deletion-requests/{requestID}/otp [post]
func sendApprovalOTPHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		issued, err := svc.SendApprovalOTP(r.Context(), claims.UserID, chi.URLParam(r, "requestID"))
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

// approveHandler godoc
// @Summary  Approve with the code relayed by the patient; trashes the document
// @Tags     deletion
// @Accept   json
// @Produce  json
// @Param    requestID path string true "deletion request id"
// @Param    body body approveRequest true "code"
// @Success  200 {object} requestResponse
// @Failure  422 {string} string "invalid or expired code"
// @Router   /admin/deletion-requests/{requestID}/approve [post]
func approveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req approveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		dr, err := svc.Approve(r.Context(), claims.UserID, chi.URLParam(r, "requestID"), req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(dr))
	}
}

// rejectHandler godoc
// @Summary  Reject a pending request (no code needed)
// @Tags     deletion
// @Produce  json
// @Param    requestID path string true "deletion request id"
// @Success  200 {object} requestResponse
// @Router   /admin/deletion-requests/{requestID}/reject [post]
func rejectHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		dr, err := svc.Reject(r.Context(), claims.UserID, chi.URLParam(r, "requestID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(dr))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	// Primero: puede venir envuelto junto con ErrBadState.
	case errors.Is(err, otp.ErrEffectorWriteFailed):
		otp.WriteError(w, err)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, documents.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, documents.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, profiles.ErrNotFound):
		http.Error(w, "patient profile not found", http.StatusNotFound)
	case errors.Is(err, ErrConflictingRequest):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		otp.WriteError(w, err)
	}
}

func toRequestResponses(items []Request) []requestResponse {
	out := make([]requestResponse, 0, len(items))
	for _, dr := range items {
		out = append(out, toRequestResponse(dr))
	}
	return out
}

func toRequestResponse(dr Request) requestResponse {
	return requestResponse{
		ID:          dr.ID,
		DocumentID:  dr.DocumentID,
		PatientID:   dr.PatientID,
		Reason:      dr.Reason,
		Status:      dr.Status,
		RequestedAt: dr.RequestedAt,
		ProcessedAt: dr.ProcessedAt,
		ProcessedBy: dr.ProcessedBy,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
