package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medivault/internal/domain/accesspermissions"
)

type permissionRepo struct {
	mu   sync.RWMutex
	byID map[string]accesspermissions.Permission
	seq  map[string]int // orden de inserción, para desempates
	next int
}

func NewPermissionsRepo() accesspermissions.Repository {
	return &permissionRepo{
		byID: make(map[string]accesspermissions.Permission),
		seq:  make(map[string]int),
	}
}

func (r *permissionRepo) Grant(ctx context.Context, p accesspermissions.Permission, now time.Time) (accesspermissions.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return accesspermissions.Permission{}, errors.New("permission id required")
	}

	if cur, ok := r.currentLocked(p.SubjectID, p.GrantedToID, now); ok {
		cur.GrantedAt = p.GrantedAt
		cur.ExpiresAt = p.ExpiresAt
		cur.Notes = p.Notes
		cur.VerificationID = p.VerificationID
		r.byID[cur.ID] = cur
		return cur, nil
	}

	if _, exists := r.byID[p.ID]; exists {
		return accesspermissions.Permission{}, errors.New("permission already exists")
	}
	r.byID[p.ID] = p
	r.seq[p.ID] = r.next
	r.next++
	return p, nil
}

func (r *permissionRepo) Update(ctx context.Context, p accesspermissions.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return accesspermissions.ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *permissionRepo) GetByID(ctx context.Context, id string) (accesspermissions.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return accesspermissions.Permission{}, accesspermissions.ErrNotFound
	}
	return p, nil
}

func (r *permissionRepo) FindCurrent(ctx context.Context, subjectID, grantedToID string, now time.Time) (accesspermissions.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.currentLocked(subjectID, grantedToID, now)
	if !ok {
		return accesspermissions.Permission{}, accesspermissions.ErrNotFound
	}
	return p, nil
}

func (r *permissionRepo) ListBySubject(ctx context.Context, subjectID string) ([]accesspermissions.Permission, error) {
	return r.list(func(p accesspermissions.Permission) bool { return p.SubjectID == subjectID }), nil
}

func (r *permissionRepo) ListByGrantee(ctx context.Context, grantedToID string) ([]accesspermissions.Permission, error) {
	return r.list(func(p accesspermissions.Permission) bool { return p.GrantedToID == grantedToID }), nil
}

// currentLocked: el vigente más reciente por GrantedAt (empate: insertado después).
func (r *permissionRepo) currentLocked(subjectID, grantedToID string, now time.Time) (accesspermissions.Permission, bool) {
	var winner accesspermissions.Permission
	has := false

	for _, p := range r.byID {
		if p.SubjectID != subjectID || p.GrantedToID != grantedToID {
			continue
		}
		if !p.CurrentlyAuthorized(now) {
			continue
		}
		if !has || r.newer(p, winner) {
			winner = p
			has = true
		}
	}
	return winner, has
}

func (r *permissionRepo) newer(a, b accesspermissions.Permission) bool {
	if a.GrantedAt.Equal(b.GrantedAt) {
		return r.seq[a.ID] > r.seq[b.ID]
	}
	return a.GrantedAt.After(b.GrantedAt)
}

func (r *permissionRepo) list(keep func(accesspermissions.Permission) bool) []accesspermissions.Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accesspermissions.Permission, 0)
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.newer(out[i], out[j]) })
	return out
}
