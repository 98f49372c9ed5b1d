package accesspermissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medivault/internal/domain/otp"
	"medivault/internal/domain/otp/otptest"
	"medivault/internal/domain/profiles"
	"medivault/internal/ports/auth"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu       sync.Mutex
	byID     map[string]Permission
	order    []string
	grantErr error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Permission{}}
}

func (r *testRepo) Grant(ctx context.Context, p Permission, now time.Time) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grantErr != nil {
		return Permission{}, r.grantErr
	}
	for _, id := range r.order {
		cur := r.byID[id]
		if cur.SubjectID == p.SubjectID && cur.GrantedToID == p.GrantedToID && cur.CurrentlyAuthorized(now) {
			cur.GrantedAt = p.GrantedAt
			cur.ExpiresAt = p.ExpiresAt
			cur.Notes = p.Notes
			cur.VerificationID = p.VerificationID
			r.byID[id] = cur
			return cur, nil
		}
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
	return p, nil
}

func (r *testRepo) Update(ctx context.Context, p Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) FindCurrent(ctx context.Context, subjectID, grantedToID string, now time.Time) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.byID[r.order[i]]
		if p.SubjectID == subjectID && p.GrantedToID == grantedToID && p.CurrentlyAuthorized(now) {
			return p, nil
		}
	}
	return Permission{}, ErrNotFound
}

func (r *testRepo) ListBySubject(ctx context.Context, subjectID string) ([]Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Permission, 0)
	for _, id := range r.order {
		if r.byID[id].SubjectID == subjectID {
			out = append(out, r.byID[id])
		}
	}
	return out, nil
}

func (r *testRepo) ListByGrantee(ctx context.Context, grantedToID string) ([]Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Permission, 0)
	for _, id := range r.order {
		if r.byID[id].GrantedToID == grantedToID {
			out = append(out, r.byID[id])
		}
	}
	return out, nil
}

type testDirectory map[string]profiles.Profile

func (d testDirectory) Get(ctx context.Context, userID string) (profiles.Profile, error) {
	p, ok := d[userID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

func seedDirectory() testDirectory {
	return testDirectory{
		"doctor-1":  {UserID: "doctor-1", FullName: "Dr. House", Email: "house@example.com", Role: auth.RoleDoctor},
		"doctor-2":  {UserID: "doctor-2", FullName: "Dr. Grey", Email: "grey@example.com", Role: auth.RoleDoctor},
		"patient-1": {UserID: "patient-1", FullName: "Ana", Email: "ana@example.com", Role: auth.RolePatient, PatientCode: "PAT-00000001"},
	}
}

type fixture struct {
	svc    *Service
	repo   *testRepo
	otpSvc *otp.Service
	sender *otptest.Sender
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	otpSvc, _, sender := otptest.NewService()
	repo := newTestRepo()
	return fixture{
		svc:    NewService(repo, otpSvc, seedDirectory(), opts),
		repo:   repo,
		otpSvc: otpSvc,
		sender: sender,
	}
}

func (f fixture) requestAndVerify(t *testing.T, doctorID string) Permission {
	t.Helper()
	if _, err := f.svc.RequestAccess(context.Background(), doctorID, "patient-1"); err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	code, ok := f.sender.LastCode("ana@example.com")
	if !ok {
		t.Fatalf("expected code delivered to patient")
	}
	p, err := f.svc.VerifyAccess(context.Background(), doctorID, "patient-1", code)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	return p
}

// -------------------------
// Tests
// -------------------------

func TestService_RequestAndVerify_GrantsViewOnly(t *testing.T) {
	f := newFixture(t, Options{})

	p := f.requestAndVerify(t, "doctor-1")
	if !p.Active || p.Scope != ScopeViewOnly || p.GrantedToID != "doctor-1" || p.SubjectID != "patient-1" {
		t.Fatalf("unexpected permission: %+v", p)
	}
	if p.ExpiresAt != nil {
		t.Fatalf("expected unbounded grant by default")
	}
	if p.Notes != grantNote {
		t.Fatalf("expected grant note, got %q", p.Notes)
	}

	msgs := f.sender.Messages()
	if msgs[0].RequesterName != "Dr. House" || msgs[0].To.Name != "Ana" || msgs[0].Purpose != otp.PurposeDocumentAccess {
		t.Fatalf("unexpected delivery context: %+v", msgs[0])
	}

	ok, err := f.svc.IsCurrentlyAuthorized(context.Background(), "patient-1", "doctor-1")
	if err != nil || !ok {
		t.Fatalf("expected currently authorized, got %v err=%v", ok, err)
	}
	ok, _ = f.svc.IsCurrentlyAuthorized(context.Background(), "patient-1", "doctor-2")
	if ok {
		t.Fatalf("other doctor must not be authorized")
	}
}

func TestService_Grant_UpsertsInsteadOfDuplicating(t *testing.T) {
	f := newFixture(t, Options{})

	first := f.requestAndVerify(t, "doctor-1")
	second := f.requestAndVerify(t, "doctor-1")

	if second.ID != first.ID {
		t.Fatalf("expected same permission refreshed, got %s vs %s", first.ID, second.ID)
	}
	if second.VerificationID == first.VerificationID {
		t.Fatalf("expected verification id refreshed")
	}
	items, _ := f.svc.ListBySubject(context.Background(), "patient-1")
	if len(items) != 1 {
		t.Fatalf("expected 1 row, got %d", len(items))
	}
}

func TestService_Revoke_ThenNotAuthorized_AndRegrantCreatesNewRow(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.requestAndVerify(t, "doctor-1")

	if _, err := f.svc.Revoke(context.Background(), "doctor-1", p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected only the patient to revoke, got %v", err)
	}

	revoked, err := f.svc.Revoke(context.Background(), "patient-1", p.ID)
	if err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if revoked.Active || revoked.RevokedAt == nil {
		t.Fatalf("expected inactive with revoked_at, got %+v", revoked)
	}
	// idempotente
	if _, err := f.svc.Revoke(context.Background(), "patient-1", p.ID); err != nil {
		t.Fatalf("Revoke #2 error: %v", err)
	}

	ok, _ := f.svc.IsCurrentlyAuthorized(context.Background(), "patient-1", "doctor-1")
	if ok {
		t.Fatalf("expected not authorized after revoke")
	}

	again := f.requestAndVerify(t, "doctor-1")
	if again.ID == p.ID {
		t.Fatalf("expected new row after revoke (history kept)")
	}
	items, _ := f.svc.ListBySubject(context.Background(), "patient-1")
	if len(items) != 2 {
		t.Fatalf("expected revoked + new row, got %d", len(items))
	}
}

func TestService_Revoke_IgnoresFutureExpiry(t *testing.T) {
	f := newFixture(t, Options{GrantTTL: 24 * time.Hour})
	p := f.requestAndVerify(t, "doctor-1")
	if p.ExpiresAt == nil {
		t.Fatalf("expected expires_at with GrantTTL")
	}

	if _, err := f.svc.Revoke(context.Background(), "patient-1", p.ID); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	ok, _ := f.svc.IsCurrentlyAuthorized(context.Background(), "patient-1", "doctor-1")
	if ok {
		t.Fatalf("revoked permission must not authorize even before expiry")
	}
}

func TestService_GrantTTL_Expires(t *testing.T) {
	f := newFixture(t, Options{GrantTTL: time.Hour})
	p := f.requestAndVerify(t, "doctor-1")

	f.svc.now = func() time.Time { return p.ExpiresAt.Add(time.Second) }
	ok, _ := f.svc.IsCurrentlyAuthorized(context.Background(), "patient-1", "doctor-1")
	if ok {
		t.Fatalf("expected expired grant to not authorize")
	}
	mine, _ := f.svc.ListCurrentByGrantee(context.Background(), "doctor-1")
	if len(mine) != 0 {
		t.Fatalf("expected expired grant hidden from my patients")
	}
}

func TestService_Grant_RejectsWrongProof(t *testing.T) {
	f := newFixture(t, Options{})

	if _, err := f.svc.Grant(context.Background(), otp.Proof{}); !errors.Is(err, otp.ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof for zero proof, got %v", err)
	}

	// Proof real pero de deletion
	if _, err := f.otpSvc.Issue(context.Background(), otp.IssueInput{
		RequesterID: "doctor-1",
		SubjectID:   "patient-1",
		Purpose:     otp.PurposeDocumentDeletion,
		Recipient:   otp.Recipient{Email: "ana@example.com"},
	}); err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	code, _ := f.sender.LastCode("ana@example.com")
	proof, err := f.otpSvc.Verify(context.Background(), otp.VerifyInput{
		RequesterID: "doctor-1",
		SubjectID:   "patient-1",
		Purpose:     otp.PurposeDocumentDeletion,
		Code:        code,
	})
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if _, err := f.svc.Grant(context.Background(), proof); !errors.Is(err, otp.ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof for deletion proof, got %v", err)
	}
}

func TestService_Grant_WriteFailureIsLoud(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.grantErr = errors.New("db down")

	if _, err := f.svc.RequestAccess(context.Background(), "doctor-1", "patient-1"); err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	code, _ := f.sender.LastCode("ana@example.com")

	_, err := f.svc.VerifyAccess(context.Background(), "doctor-1", "patient-1", code)
	if !errors.Is(err, otp.ErrEffectorWriteFailed) {
		t.Fatalf("expected ErrEffectorWriteFailed, got %v", err)
	}

	// El código quedó consumido: no se puede reintentar con el mismo.
	f.repo.grantErr = nil
	if _, err := f.svc.VerifyAccess(context.Background(), "doctor-1", "patient-1", code); !errors.Is(err, otp.ErrInvalidOrExpired) {
		t.Fatalf("expected consumed code to be rejected, got %v", err)
	}
}

func TestService_RequestAccess_Validation(t *testing.T) {
	f := newFixture(t, Options{})

	if _, err := f.svc.RequestAccess(context.Background(), "", "patient-1"); !errors.Is(err, otp.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := f.svc.RequestAccess(context.Background(), "patient-1", "doctor-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-doctor requester, got %v", err)
	}
	if _, err := f.svc.RequestAccess(context.Background(), "doctor-1", "doctor-2"); !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("expected not found for non-patient subject, got %v", err)
	}
	if _, err := f.svc.RequestAccess(context.Background(), "doctor-1", "ghost"); !errors.Is(err, profiles.ErrNotFound) {
		t.Fatalf("expected not found for unknown patient, got %v", err)
	}
}

func TestService_RequestAccess_DeliveryFailureSurfaces(t *testing.T) {
	f := newFixture(t, Options{})
	f.sender.Err = errors.New("sendgrid 500")

	if _, err := f.svc.RequestAccess(context.Background(), "doctor-1", "patient-1"); !errors.Is(err, otp.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}
