package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medivault/internal/domain/profiles"
)

type profileRepo struct {
	mu     sync.RWMutex
	byUser map[string]profiles.Profile
}

func NewProfilesRepo() profiles.Repository {
	return &profileRepo{byUser: make(map[string]profiles.Profile)}
}

func (r *profileRepo) Upsert(ctx context.Context, p profiles.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("profile user id required")
	}
	if p.PatientCode != "" {
		for uid, cur := range r.byUser {
			if uid != p.UserID && cur.PatientCode == p.PatientCode {
				return profiles.ErrPatientCodeTaken
			}
		}
	}
	r.byUser[p.UserID] = p
	return nil
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byUser[userID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

func (r *profileRepo) FindByEmail(ctx context.Context, email string) (profiles.Profile, error) {
	return r.find(func(p profiles.Profile) bool { return strings.EqualFold(p.Email, email) })
}

func (r *profileRepo) FindByPatientCode(ctx context.Context, code string) (profiles.Profile, error) {
	return r.find(func(p profiles.Profile) bool { return p.PatientCode == code })
}

func (r *profileRepo) find(match func(profiles.Profile) bool) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byUser {
		if match(p) {
			return p, nil
		}
	}
	return profiles.Profile{}, profiles.ErrNotFound
}
