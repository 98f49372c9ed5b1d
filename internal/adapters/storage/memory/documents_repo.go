package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medivault/internal/domain/documents"
)

type documentRepo struct {
	mu   sync.RWMutex
	byID map[string]documents.Document
}

func NewDocumentsRepo() documents.Repository {
	return &documentRepo{byID: make(map[string]documents.Document)}
}

func (r *documentRepo) Create(ctx context.Context, d documents.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("document already exists")
	}
	r.byID[d.ID] = cloneDocument(d)
	return nil
}

func (r *documentRepo) Update(ctx context.Context, d documents.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return documents.ErrNotFound
	}
	r.byID[d.ID] = cloneDocument(d)
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return documents.Document{}, documents.ErrNotFound
	}
	return cloneDocument(d), nil
}

func (r *documentRepo) ListByPatient(ctx context.Context, patientID string, trashed bool) ([]documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]documents.Document, 0)
	for _, d := range r.byID {
		if d.PatientID == patientID && d.Trashed == trashed {
			out = append(out, cloneDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Tags es un slice: sin copia el caller podría mutar lo guardado.
func cloneDocument(d documents.Document) documents.Document {
	if d.Tags != nil {
		d.Tags = append([]string(nil), d.Tags...)
	}
	return d
}
