package documents

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/middleware"
	"medivault/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Paciente: su expediente y su papelera
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireRole(auth.RolePatient))
		pr.Post("/documents", createDocumentHandler(svc))
		pr.Get("/me/documents", listMyDocumentsHandler(svc))
		pr.Get("/me/documents/trash", listMyTrashHandler(svc))
		pr.Post("/documents/{documentID}/restore", restoreDocumentHandler(svc))
	})

	// Lectura: dueño o doctor con permiso vigente
	r.Get("/documents/{documentID}", getDocumentHandler(svc))
	r.Get("/patients/{patientID}/documents", listPatientDocumentsHandler(svc))
}

type createDocumentRequest struct {
	FileName       string   `json:"file_name"`
	FilePath       string   `json:"file_path"`
	FileType       string   `json:"file_type"`
	DocumentType   string   `json:"document_type"`
	Description    string   `json:"description"`
	HospitalName   string   `json:"hospital_name"`
	DateOfDocument string   `json:"date_of_document"` // YYYY-MM-DD, opcional
	Tags           []string `json:"tags"`
}

type documentResponse struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	UploadedBy     string     `json:"uploaded_by"`
	FileName       string     `json:"file_name"`
	FilePath       string     `json:"file_path"`
	FileType       string     `json:"file_type,omitempty"`
	DocumentType   string     `json:"document_type,omitempty"`
	Description    string     `json:"description,omitempty"`
	HospitalName   string     `json:"hospital_name,omitempty"`
	DateOfDocument string     `json:"date_of_document,omitempty"`
	Tags           []string   `json:"tags"`
	Active         bool       `json:"active"`
	Trashed        bool       `json:"trashed"`
	TrashedAt      *time.Time `json:"trashed_at,omitempty"`
	TrashedBy      string     `json:"trashed_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const dateLayout = "2006-01-02"

// createDocumentHandler godoc
// @Summary  Register an uploaded document
// @Tags     documents
// @Accept   json
// @Produce  json
// @Param    body body createDocumentRequest true "document metadata"
// @Success  201 {object} documentResponse
// @Router   /documents [post]
func createDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var date *time.Time
		if req.DateOfDocument != "" {
			t, err := time.Parse(dateLayout, req.DateOfDocument)
			if err != nil {
				http.Error(w, "date_of_document must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			date = &t
		}

		d, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			PatientID:      claims.UserID,
			FileName:       req.FileName,
			FilePath:       req.FilePath,
			FileType:       req.FileType,
			DocumentType:   req.DocumentType,
			Description:    req.Description,
			HospitalName:   req.HospitalName,
			DateOfDocument: date,
			Tags:           req.Tags,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDocumentResponse(d))
	}
}

// listMyDocumentsHandler godoc
// @Summary  Current patient's active documents
// @Tags     documents
// @Produce  json
// @Success  200 {array} documentResponse
// @Router   /me/documents [get]
func listMyDocumentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListActive(r.Context(), claims.UserID, claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponses(items))
	}
}

// listMyTrashHandler godoc
// @Summary  Current patient's trashed documents
// @Tags     documents
// @Produce  json
// @Success  200 {array} documentResponse
// @Router   /me/documents/trash [get]
func listMyTrashHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListTrashed(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponses(items))
	}
}

// restoreDocumentHandler godoc
// @Summary  Restore a trashed document
// @Tags     documents
// @Produce  json
// @Param    documentID path string true "document id"
// @Success  200 {object} documentResponse
// @Router   /documents/{documentID}/restore [post]
func restoreDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		d, err := svc.Restore(r.Context(), claims.UserID, chi.URLParam(r, "documentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponse(d))
	}
}

// getDocumentHandler godoc
// @Summary  Document metadata (owner or authorized doctor)
// @Tags     documents
// @Produce  json
// @Param    documentID path string true "document id"
// @Success  200 {object} documentResponse
// @Failure  403 {string} string "no current permission"
// @Router   /documents/{documentID} [get]
func getDocumentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "documentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponse(d))
	}
}

// listPatientDocumentsHandler godoc
// @Summary  A patient's active documents (owner or authorized doctor)
// @Tags     documents
// @Produce  json
// @Param    patientID path string true "patient user id"
// @Success  200 {array} documentResponse
// @Failure  403 {string} string "no current permission"
// @Router   /patients/{patientID}/documents [get]
func listPatientDocumentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListActive(r.Context(), claims.UserID, chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDocumentResponses(items))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotAuthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		otp.WriteError(w, err)
	}
}

func toDocumentResponses(items []Document) []documentResponse {
	out := make([]documentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDocumentResponse(d))
	}
	return out
}

func toDocumentResponse(d Document) documentResponse {
	resp := documentResponse{
		ID:           d.ID,
		PatientID:    d.PatientID,
		UploadedBy:   d.UploadedBy,
		FileName:     d.FileName,
		FilePath:     d.FilePath,
		FileType:     d.FileType,
		DocumentType: d.DocumentType,
		Description:  d.Description,
		HospitalName: d.HospitalName,
		Tags:         d.Tags,
		Active:       d.Active,
		Trashed:      d.Trashed,
		TrashedAt:    d.TrashedAt,
		TrashedBy:    d.TrashedBy,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.DateOfDocument != nil {
		resp.DateOfDocument = d.DateOfDocument.Format(dateLayout)
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
