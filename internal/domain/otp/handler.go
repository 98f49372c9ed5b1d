package otp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"medivault/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Paciente: quién le pidió códigos y en qué quedaron
	r.Get("/me/otp-requests", listMyOTPRequestsHandler(svc))
}

type verificationResponse struct {
	ID            string         `json:"id"`
	RequesterID   string         `json:"requester_id"`
	Purpose       Purpose        `json:"purpose"`
	ReferenceID   string         `json:"reference_id,omitempty"`
	IssuedAt      time.Time      `json:"issued_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	VerifiedAt    *time.Time     `json:"verified_at,omitempty"`
	Consumed      bool           `json:"consumed"`
	Delivery      DeliveryStatus `json:"delivery"`
	DeliveryError string         `json:"delivery_error,omitempty"`
}

// listMyOTPRequestsHandler godoc
// @Summary  OTP audit trail for the current patient
// @Tags     otp
// @Produce  json
// @Success  200 {array} verificationResponse
// @Router   /me/otp-requests [get]
func listMyOTPRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.AuditTrail(r.Context(), claims.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}

		out := make([]verificationResponse, 0, len(items))
		for _, v := range items {
			out = append(out, verificationResponse{
				ID:            v.ID,
				RequesterID:   v.RequesterID,
				Purpose:       v.Purpose,
				ReferenceID:   v.ReferenceID,
				IssuedAt:      v.IssuedAt,
				ExpiresAt:     v.ExpiresAt,
				VerifiedAt:    v.VerifiedAt,
				Consumed:      v.Consumed,
				Delivery:      v.Delivery,
				DeliveryError: v.DeliveryError,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// WriteError traduce los errores del protocolo OTP a status HTTP.
// Los handlers de accesspermissions y deletionrequests lo usan como default
// después de mapear sus propios errores; lo desconocido es 500.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotAuthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidOrExpired):
		http.Error(w, "invalid or expired code", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrTooManyAttempts):
		http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
	case errors.Is(err, ErrDeliveryFailed):
		http.Error(w, "verification code could not be delivered", http.StatusBadGateway)
	case errors.Is(err, ErrEffectorWriteFailed):
		http.Error(w, "code verified but the change was not saved; contact support", http.StatusInternalServerError)
	case errors.Is(err, ErrInvalidProof):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
