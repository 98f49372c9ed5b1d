package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medivault/internal/domain/deletionrequests"
)

type deletionRequestRepo struct {
	mu   sync.RWMutex
	byID map[string]deletionrequests.Request
}

func NewDeletionRequestsRepo() deletionrequests.Repository {
	return &deletionRequestRepo{byID: make(map[string]deletionrequests.Request)}
}

func (r *deletionRequestRepo) Create(ctx context.Context, req deletionrequests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(req.ID) == "" {
		return errors.New("deletion request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return errors.New("deletion request already exists")
	}
	// un solo pending por documento
	for _, cur := range r.byID {
		if cur.DocumentID == req.DocumentID && cur.Status == deletionrequests.StatusPending {
			return deletionrequests.ErrConflictingRequest
		}
	}
	r.byID[req.ID] = req
	return nil
}

func (r *deletionRequestRepo) GetByID(ctx context.Context, id string) (deletionrequests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return deletionrequests.Request{}, deletionrequests.ErrNotFound
	}
	return req, nil
}

func (r *deletionRequestRepo) UpdateFrom(ctx context.Context, req deletionrequests.Request, from deletionrequests.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[req.ID]
	if !ok {
		return deletionrequests.ErrNotFound
	}
	if cur.Status != from {
		return deletionrequests.ErrBadState
	}
	r.byID[req.ID] = req
	return nil
}

func (r *deletionRequestRepo) ListByStatus(ctx context.Context, status deletionrequests.Status) ([]deletionrequests.Request, error) {
	return r.list(func(req deletionrequests.Request) bool { return req.Status == status }), nil
}

func (r *deletionRequestRepo) ListByPatient(ctx context.Context, patientID string) ([]deletionrequests.Request, error) {
	return r.list(func(req deletionrequests.Request) bool { return req.PatientID == patientID }), nil
}

func (r *deletionRequestRepo) list(keep func(deletionrequests.Request) bool) []deletionrequests.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]deletionrequests.Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}
