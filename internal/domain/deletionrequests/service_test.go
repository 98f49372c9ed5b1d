package deletionrequests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"medivault/internal/domain/documents"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/otp/otptest"
	"medivault/internal/domain/profiles"
	"medivault/internal/ports/auth"
)

var testNow = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

// -------------------------
// Fakes
// -------------------------

type testRepo struct {
	mu        sync.Mutex
	byID      map[string]Request
	updateErr error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Request{}}
}

func (r *testRepo) Create(ctx context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if other.DocumentID == req.DocumentID && other.Status == StatusPending {
			return ErrConflictingRequest
		}
	}
	r.byID[req.ID] = req
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *testRepo) UpdateFrom(ctx context.Context, req Request, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cur, ok := r.byID[req.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrBadState
	}
	r.byID[req.ID] = req
	return nil
}

func (r *testRepo) ListByStatus(ctx context.Context, status Status) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, 0)
	for _, req := range r.byID {
		if req.Status == status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, 0)
	for _, req := range r.byID {
		if req.PatientID == patientID {
			out = append(out, req)
		}
	}
	return out, nil
}

// testDocs imita documents.Service: exige Proof de deletion del dueño.
type testDocs struct {
	byID     map[string]documents.Document
	trashErr error
	trashed  []string
}

func (d *testDocs) GetOwned(ctx context.Context, patientID, documentID string) (documents.Document, error) {
	doc, ok := d.byID[documentID]
	if !ok {
		return documents.Document{}, documents.ErrNotFound
	}
	if doc.PatientID != patientID {
		return documents.Document{}, documents.ErrForbidden
	}
	return doc, nil
}

func (d *testDocs) TrashApproved(ctx context.Context, proof otp.Proof, documentID, processedBy string) (documents.Document, error) {
	if err := proof.Require(otp.PurposeDocumentDeletion); err != nil {
		return documents.Document{}, err
	}
	if d.trashErr != nil {
		return documents.Document{}, d.trashErr
	}
	doc := d.byID[documentID]
	if doc.PatientID != proof.SubjectID() {
		return documents.Document{}, otp.ErrInvalidProof
	}
	doc.Trashed = true
	doc.Active = false
	doc.TrashedBy = processedBy
	d.byID[documentID] = doc
	d.trashed = append(d.trashed, documentID)
	return doc, nil
}

type testDirectory map[string]profiles.Profile

func (t testDirectory) Get(ctx context.Context, userID string) (profiles.Profile, error) {
	p, ok := t[userID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

type fixture struct {
	svc    *Service
	repo   *testRepo
	docs   *testDocs
	sender *otptest.Sender
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	otpSvc, _, sender := otptest.NewService()
	repo := newTestRepo()
	docs := &testDocs{byID: map[string]documents.Document{
		"doc-x": {ID: "doc-x", PatientID: "patient-1", Active: true},
		"doc-y": {ID: "doc-y", PatientID: "patient-2", Active: true},
	}}
	dir := testDirectory{
		"patient-1": {UserID: "patient-1", FullName: "Ana", Email: "ana@example.com", Role: auth.RolePatient},
		"admin-1":   {UserID: "admin-1", FullName: "Admin Uno", Email: "admin@example.com", Role: auth.RoleHospitalAdmin},
	}
	return fixture{
		svc:    NewService(repo, otpSvc, docs, dir, nil),
		repo:   repo,
		docs:   docs,
		sender: sender,
	}
}

func (f fixture) sendCode(t *testing.T, adminID, requestID string) string {
	t.Helper()
	if _, err := f.svc.SendApprovalOTP(context.Background(), adminID, requestID); err != nil {
		t.Fatalf("SendApprovalOTP error: %v", err)
	}
	code, ok := f.sender.LastCode("ana@example.com")
	if !ok {
		t.Fatalf("expected code delivered to patient")
	}
	return code
}

// -------------------------
// Tests
// -------------------------

func TestTransition_TerminalStates(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusPending, Status("deleted"), false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusApproved, false},
	}
	for _, tc := range cases {
		_, err := Request{Status: tc.from}.transition(tc.to, "admin-1", testNow)
		if (err == nil) != tc.ok {
			t.Fatalf("%s -> %s: expected ok=%v, got err=%v", tc.from, tc.to, tc.ok, err)
		}
		if err != nil && !errors.Is(err, ErrBadState) {
			t.Fatalf("%s -> %s: expected ErrBadState, got %v", tc.from, tc.to, err)
		}
	}
}

func TestService_Create_SecondPendingConflicts(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), "patient-1", "doc-x", "duplicado")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}

	if _, err := f.svc.Create(context.Background(), "patient-1", "doc-x", ""); !errors.Is(err, ErrConflictingRequest) {
		t.Fatalf("expected ErrConflictingRequest, got %v", err)
	}
}

func TestService_Create_OwnerOnly(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Create(context.Background(), "patient-1", "doc-y", ""); !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for someone else's document, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), "patient-1", "nope", ""); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), "", "doc-x", ""); !errors.Is(err, otp.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestService_Approve_TrashesDocument(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	code := f.sendCode(t, "admin-1", req.ID)

	msg := f.sender.Messages()[0]
	if msg.Purpose != otp.PurposeDocumentDeletion || msg.RequesterName != "Admin Uno" {
		t.Fatalf("unexpected delivery context: %+v", msg)
	}

	approved, err := f.svc.Approve(context.Background(), "admin-1", req.ID, code)
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if approved.Status != StatusApproved || approved.ProcessedBy != "admin-1" || approved.ProcessedAt == nil {
		t.Fatalf("unexpected approved request: %+v", approved)
	}

	doc := f.docs.byID["doc-x"]
	if !doc.Trashed || doc.Active || doc.TrashedBy != "admin-1" {
		t.Fatalf("expected doc trashed, got %+v", doc)
	}

	// Terminal: no se puede rechazar ni re-aprobar.
	if _, err := f.svc.Reject(context.Background(), "admin-1", req.ID); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState after approval, got %v", err)
	}

	// Y el documento ya en papelera no admite un pedido nuevo.
	if _, err := f.svc.Create(context.Background(), "patient-1", "doc-x", ""); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState for trashed doc, got %v", err)
	}
}

func TestService_Approve_CodeBoundToRequestAndAdmin(t *testing.T) {
	f := newFixture(t)
	f.docs.byID["doc-z"] = documents.Document{ID: "doc-z", PatientID: "patient-1", Active: true}

	r1, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
	r2, _ := f.svc.Create(context.Background(), "patient-1", "doc-z", "")

	code := f.sendCode(t, "admin-1", r1.ID)

	if _, err := f.svc.Approve(context.Background(), "admin-1", r2.ID, code); !errors.Is(err, otp.ErrInvalidOrExpired) {
		t.Fatalf("expected code for r1 to be useless on r2, got %v", err)
	}
	if _, err := f.svc.Approve(context.Background(), "admin-2", r1.ID, code); !errors.Is(err, otp.ErrInvalidOrExpired) {
		t.Fatalf("expected code to be bound to the admin who sent it, got %v", err)
	}
	if len(f.docs.trashed) != 0 {
		t.Fatalf("no document should be trashed")
	}
}

func TestService_Reject_NoOTPNoDocumentChange(t *testing.T) {
	f := newFixture(t)

	req, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")

	rejected, err := f.svc.Reject(context.Background(), "admin-1", req.ID)
	if err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.ProcessedBy != "admin-1" {
		t.Fatalf("unexpected rejected request: %+v", rejected)
	}
	if len(f.sender.Messages()) != 0 {
		t.Fatalf("reject must not send any code")
	}
	if f.docs.byID["doc-x"].Trashed {
		t.Fatalf("reject must not touch the document")
	}

	// Tras rechazar se puede volver a pedir.
	if _, err := f.svc.Create(context.Background(), "patient-1", "doc-x", "otra vez"); err != nil {
		t.Fatalf("expected new request after rejection, got %v", err)
	}
}

func TestService_Approve_WriteFailuresAreLoud(t *testing.T) {
	t.Run("request update", func(t *testing.T) {
		f := newFixture(t)
		req, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
		code := f.sendCode(t, "admin-1", req.ID)

		f.repo.updateErr = errors.New("db down")
		_, err := f.svc.Approve(context.Background(), "admin-1", req.ID, code)
		if !errors.Is(err, otp.ErrEffectorWriteFailed) {
			t.Fatalf("expected ErrEffectorWriteFailed, got %v", err)
		}
		if len(f.docs.trashed) != 0 {
			t.Fatalf("document must not be trashed when the request write failed")
		}
	})

	t.Run("document trash", func(t *testing.T) {
		f := newFixture(t)
		req, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
		code := f.sendCode(t, "admin-1", req.ID)

		f.docs.trashErr = errors.New("db down")
		_, err := f.svc.Approve(context.Background(), "admin-1", req.ID, code)
		if !errors.Is(err, otp.ErrEffectorWriteFailed) {
			t.Fatalf("expected ErrEffectorWriteFailed, got %v", err)
		}
	})

	t.Run("rejected concurrently", func(t *testing.T) {
		f := newFixture(t)
		req, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
		code := f.sendCode(t, "admin-1", req.ID)

		// Otro admin rechaza entre el GetByID y el CAS: simulado marcando el store.
		f.repo.updateErr = ErrBadState
		_, err := f.svc.Approve(context.Background(), "admin-1", req.ID, code)
		if !errors.Is(err, otp.ErrEffectorWriteFailed) || !errors.Is(err, ErrBadState) {
			t.Fatalf("expected ErrEffectorWriteFailed wrapping ErrBadState, got %v", err)
		}
	})
}

func TestService_SendApprovalOTP_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	req, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")

	f.sender.Err = errors.New("twilio 500")
	if _, err := f.svc.SendApprovalOTP(context.Background(), "admin-1", req.ID); !errors.Is(err, otp.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestService_ListPending(t *testing.T) {
	f := newFixture(t)
	f.docs.byID["doc-z"] = documents.Document{ID: "doc-z", PatientID: "patient-1", Active: true}

	r1, _ := f.svc.Create(context.Background(), "patient-1", "doc-x", "")
	if _, err := f.svc.Create(context.Background(), "patient-1", "doc-z", ""); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.Reject(context.Background(), "admin-1", r1.ID); err != nil {
		t.Fatalf("Reject error: %v", err)
	}

	items, err := f.svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(items) != 1 || items[0].DocumentID != "doc-z" {
		t.Fatalf("expected only doc-z pending, got %+v", items)
	}
}
